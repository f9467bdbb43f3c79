package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

type ChartKind string

const (
	ChartNone  ChartKind = "none"
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartPie   ChartKind = "pie"
	ChartTable ChartKind = "table"
)

// ChartSuggestion is the model's decision on how to visualize a result.
type ChartSuggestion struct {
	ChartNeeded  bool      `json:"chart_needed" jsonschema:"whether the result benefits from a visualization"`
	ChartType    ChartKind `json:"chart_type" jsonschema:"one of bar, line, pie, table, none"`
	Title        string    `json:"title,omitempty" jsonschema:"short chart title, may be omitted"`
	XAxisColumn  *string   `json:"x_axis_column" jsonschema:"result column for labels or the x axis, or null"`
	YAxisColumns []string  `json:"y_axis_columns" jsonschema:"numeric result columns to plot"`
}

// chartSchema validates decoded chart suggestions.
type chartSchema struct {
	text     string
	resolved *jsonschema.Resolved
}

func newChartSchema() (*chartSchema, error) {
	schema, err := jsonschema.For[ChartSuggestion](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart schema: %w", err)
	}
	prop, ok := schema.Properties["chart_type"]
	if !ok {
		return nil, errors.New("chart schema has no chart_type property")
	}
	prop.Enum = []any{string(ChartBar), string(ChartLine), string(ChartPie), string(ChartTable), string(ChartNone)}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chart schema: %w", err)
	}
	text, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart schema: %w", err)
	}
	return &chartSchema{text: string(text), resolved: resolved}, nil
}

// Parse decodes raw model output into a suggestion. Output that is not a
// JSON object yields ChartNone. An object that fails schema validation
// yields ChartTable unless it explicitly declines a chart. Both cases also
// return a *ChartDecodeError for logging.
func (s *chartSchema) Parse(raw string) (ChartSuggestion, error) {
	none := ChartSuggestion{ChartType: ChartNone}

	body := extractJSONObject(raw)
	if body == "" {
		return none, &ChartDecodeError{Raw: raw, Err: errors.New("no JSON object found")}
	}
	var instance map[string]any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return none, &ChartDecodeError{Raw: raw, Err: err}
	}

	if err := s.resolved.Validate(instance); err != nil {
		if needed, ok := instance["chart_needed"].(bool); ok && !needed {
			return none, &ChartDecodeError{Raw: raw, Err: err}
		}
		fallback := ChartSuggestion{ChartNeeded: true, ChartType: ChartTable}
		if title, ok := instance["title"].(string); ok {
			fallback.Title = title
		}
		return fallback, &ChartDecodeError{Raw: raw, Err: err}
	}

	var suggestion ChartSuggestion
	if err := json.Unmarshal([]byte(body), &suggestion); err != nil {
		return none, &ChartDecodeError{Raw: raw, Err: err}
	}
	if !suggestion.ChartNeeded {
		suggestion.ChartType = ChartNone
	}
	return suggestion, nil
}

// extractJSONObject returns the outermost {...} span of s, ignoring any
// surrounding prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

type chartPromptData struct {
	Schema   string
	Columns  string
	Question string
	Result   string
}

// SuggestChart asks the model whether and how to chart the result. It never
// fails the request: model or decode failures yield a suggestion of
// ChartNone or ChartTable, with the cause logged.
func (a *Agent) SuggestChart(ctx context.Context, question, rendered string, columns []string) ChartSuggestion {
	none := ChartSuggestion{ChartType: ChartNone}

	prompt, err := render(a.cfg.Prompts.Chart, chartPromptData{
		Schema:   a.chartSchema.text,
		Columns:  strings.Join(columns, ", "),
		Question: question,
		Result:   rendered,
	})
	if err != nil {
		a.log.Error("agent: failed to render chart prompt", "error", err)
		return none
	}

	raw, err := a.cfg.LLM.Complete(ctx, a.system, prompt)
	if err != nil {
		stageErrors.WithLabelValues(StageSuggestChart).Inc()
		a.log.Warn("agent: chart suggestion failed", "error", &ModelError{Stage: StageSuggestChart, Err: err})
		return none
	}

	suggestion, err := a.chartSchema.Parse(raw)
	if err != nil {
		stageErrors.WithLabelValues(StageSuggestChart).Inc()
		a.log.Warn("agent: chart suggestion rejected", "fallback", suggestion.ChartType, "error", err)
	}
	return suggestion
}
