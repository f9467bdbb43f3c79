package agent

import (
	"fmt"
	"strings"

	"github.com/chipchip/marketing-agent/pkg/dataset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChartData is the chart payload returned to clients. Data holds records
// for table charts and a ChartSeries for bar, line and pie charts.
type ChartData struct {
	Type  ChartKind `json:"type"`
	Title string    `json:"title"`
	Data  any       `json:"data"`
}

type ChartSeries struct {
	Labels   []any          `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label string `json:"label"`
	Data  []any  `json:"data"`
}

// HumanizeColumn turns a column name such as total_quantity into
// "Total Quantity".
func HumanizeColumn(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// FormatChart builds the chart payload for a suggestion. It returns nil for
// ChartNone and for empty results. Suggestions that reference columns
// missing from result are downgraded to ChartTable. A panic while formatting
// is returned as an error.
func FormatChart(s ChartSuggestion, result *dataset.ResultSet) (chart *ChartData, err error) {
	defer func() {
		if r := recover(); r != nil {
			chart, err = nil, fmt.Errorf("chart formatting panicked: %v", r)
		}
	}()

	if result == nil || result.Empty() || !s.ChartNeeded || s.ChartType == ChartNone {
		return nil, nil
	}

	kind := s.ChartType
	switch kind {
	case ChartBar, ChartLine, ChartPie:
		if s.XAxisColumn == nil || *s.XAxisColumn == "" || len(s.YAxisColumns) == 0 ||
			!result.HasColumns(*s.XAxisColumn) || !result.HasColumns(s.YAxisColumns...) {
			kind = ChartTable
		}
	case ChartTable:
	default:
		kind = ChartTable
	}

	if kind == ChartTable {
		return &ChartData{Type: ChartTable, Title: s.Title, Data: result.Records()}, nil
	}

	labels, _ := result.ColumnValues(*s.XAxisColumn)
	series := ChartSeries{Labels: labels, Datasets: make([]ChartDataset, 0, len(s.YAxisColumns))}
	for _, col := range s.YAxisColumns {
		values, _ := result.ColumnValues(col)
		series.Datasets = append(series.Datasets, ChartDataset{Label: HumanizeColumn(col), Data: values})
	}
	return &ChartData{Type: kind, Title: s.Title, Data: series}, nil
}
