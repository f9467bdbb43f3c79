package agent

import (
	"encoding/json"
	"testing"

	"github.com/chipchip/marketing-agent/pkg/dataset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestChartSchema_Parse(t *testing.T) {
	t.Parallel()

	schema, err := newChartSchema()
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		want    ChartSuggestion
		wantErr bool
	}{
		{
			name: "valid bar",
			raw:  `{"chart_needed": true, "chart_type": "bar", "title": "Top", "x_axis_column": "name", "y_axis_columns": ["qty"]}`,
			want: ChartSuggestion{ChartNeeded: true, ChartType: ChartBar, Title: "Top", XAxisColumn: strPtr("name"), YAxisColumns: []string{"qty"}},
		},
		{
			name: "bar without title",
			raw:  `{"chart_needed": true, "chart_type": "bar", "x_axis_column": "name", "y_axis_columns": ["qty"]}`,
			want: ChartSuggestion{ChartNeeded: true, ChartType: ChartBar, XAxisColumn: strPtr("name"), YAxisColumns: []string{"qty"}},
		},
		{
			name: "line without title",
			raw:  `{"chart_needed": true, "chart_type": "line", "x_axis_column": "day", "y_axis_columns": ["orders"]}`,
			want: ChartSuggestion{ChartNeeded: true, ChartType: ChartLine, XAxisColumn: strPtr("day"), YAxisColumns: []string{"orders"}},
		},
		{
			name: "fenced with prose",
			raw:  "Here you go:\n```json\n{\"chart_needed\": true, \"chart_type\": \"line\", \"title\": \"Trend\", \"x_axis_column\": \"day\", \"y_axis_columns\": [\"orders\", \"revenue\"]}\n```",
			want: ChartSuggestion{ChartNeeded: true, ChartType: ChartLine, Title: "Trend", XAxisColumn: strPtr("day"), YAxisColumns: []string{"orders", "revenue"}},
		},
		{
			name: "not needed forces none",
			raw:  `{"chart_needed": false, "chart_type": "bar", "title": "", "x_axis_column": "name", "y_axis_columns": ["qty"]}`,
			want: ChartSuggestion{ChartType: ChartNone, XAxisColumn: strPtr("name"), YAxisColumns: []string{"qty"}},
		},
		{
			name:    "malformed json",
			raw:     "{not valid json",
			want:    ChartSuggestion{ChartType: ChartNone},
			wantErr: true,
		},
		{
			name:    "no object",
			raw:     "I think a bar chart would work.",
			want:    ChartSuggestion{ChartType: ChartNone},
			wantErr: true,
		},
		{
			name:    "unknown chart type falls back to table",
			raw:     `{"chart_needed": true, "chart_type": "scatter", "title": "Spread", "x_axis_column": "a", "y_axis_columns": ["b"]}`,
			want:    ChartSuggestion{ChartNeeded: true, ChartType: ChartTable, Title: "Spread"},
			wantErr: true,
		},
		{
			name:    "wrong field types fall back to table",
			raw:     `{"chart_needed": true, "chart_type": "bar", "title": "T", "x_axis_column": "a", "y_axis_columns": "b"}`,
			want:    ChartSuggestion{ChartNeeded: true, ChartType: ChartTable, Title: "T"},
			wantErr: true,
		},
		{
			name:    "invalid shape that declines a chart is none",
			raw:     `{"chart_needed": false}`,
			want:    ChartSuggestion{ChartType: ChartNone},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := schema.Parse(tt.raw)
			if tt.wantErr {
				var decodeErr *ChartDecodeError
				require.ErrorAs(t, err, &decodeErr)
				require.Equal(t, tt.raw, decodeErr.Raw)
			} else {
				require.NoError(t, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("suggestion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChartSchema_Text(t *testing.T) {
	t.Parallel()

	schema, err := newChartSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(schema.text), &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"chart_needed", "chart_type", "title", "x_axis_column", "y_axis_columns"} {
		require.Contains(t, props, field)
	}
	require.Equal(t, []any{"bar", "line", "pie", "table", "none"}, props["chart_type"].(map[string]any)["enum"])
}

func TestFormatChart(t *testing.T) {
	t.Parallel()

	result := &dataset.ResultSet{
		Columns: []string{"month", "total_orders", "revenue_etb"},
		Rows: [][]any{
			{"2024-04", int64(10), 1500.5},
			{"2024-05", int64(14), 2100.0},
		},
	}

	tests := []struct {
		name string
		in   ChartSuggestion
		want *ChartData
	}{
		{
			name: "line with two series",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartLine, Title: "Monthly", XAxisColumn: strPtr("month"), YAxisColumns: []string{"total_orders", "revenue_etb"}},
			want: &ChartData{Type: ChartLine, Title: "Monthly", Data: ChartSeries{
				Labels: []any{"2024-04", "2024-05"},
				Datasets: []ChartDataset{
					{Label: "Total Orders", Data: []any{int64(10), int64(14)}},
					{Label: "Revenue Etb", Data: []any{1500.5, 2100.0}},
				},
			}},
		},
		{
			name: "table",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartTable, Title: "All"},
			want: &ChartData{Type: ChartTable, Title: "All", Data: []map[string]any{
				{"month": "2024-04", "total_orders": int64(10), "revenue_etb": 1500.5},
				{"month": "2024-05", "total_orders": int64(14), "revenue_etb": 2100.0},
			}},
		},
		{
			name: "missing y column downgrades to table",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartBar, Title: "Bad", XAxisColumn: strPtr("month"), YAxisColumns: []string{"profit"}},
			want: &ChartData{Type: ChartTable, Title: "Bad", Data: result.Records()},
		},
		{
			name: "missing x column downgrades to table",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartPie, XAxisColumn: strPtr("category"), YAxisColumns: []string{"revenue_etb"}},
			want: &ChartData{Type: ChartTable, Data: result.Records()},
		},
		{
			name: "no axes downgrades to table",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartBar},
			want: &ChartData{Type: ChartTable, Data: result.Records()},
		},
		{
			name: "none",
			in:   ChartSuggestion{ChartNeeded: true, ChartType: ChartNone},
		},
		{
			name: "not needed",
			in:   ChartSuggestion{ChartType: ChartBar, XAxisColumn: strPtr("month"), YAxisColumns: []string{"revenue_etb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FormatChart(tt.in, result)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("chart mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatChart_UntitledSuggestionKeepsChartType(t *testing.T) {
	t.Parallel()

	schema, err := newChartSchema()
	require.NoError(t, err)

	suggestion, err := schema.Parse(`{"chart_needed":true,"chart_type":"bar","x_axis_column":"name","y_axis_columns":["qty"]}`)
	require.NoError(t, err)

	result := &dataset.ResultSet{Columns: []string{"name", "qty"}, Rows: [][]any{{"Teff", int64(3)}, {"Onion", int64(1)}}}
	got, err := FormatChart(suggestion, result)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, ChartBar, got.Type)
	require.Empty(t, got.Title)
	series, ok := got.Data.(ChartSeries)
	require.True(t, ok)
	require.Equal(t, []any{"Teff", "Onion"}, series.Labels)
}

func TestFormatChart_EmptyResult(t *testing.T) {
	t.Parallel()

	got, err := FormatChart(ChartSuggestion{ChartNeeded: true, ChartType: ChartTable}, &dataset.ResultSet{Columns: []string{"a"}})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFormatChart_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	ragged := &dataset.ResultSet{Columns: []string{"a", "b"}, Rows: [][]any{{"x"}}}
	got, err := FormatChart(ChartSuggestion{ChartNeeded: true, ChartType: ChartBar, XAxisColumn: strPtr("a"), YAxisColumns: []string{"b"}}, ragged)
	require.Error(t, err)
	require.Nil(t, got)
}

func TestHumanizeColumn(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Total Quantity", HumanizeColumn("total_quantity"))
	require.Equal(t, "Revenue", HumanizeColumn("revenue"))
	require.Equal(t, "Avg Order Value", HumanizeColumn("AVG_ORDER_VALUE"))
}
