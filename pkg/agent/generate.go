package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

type sqlPromptData struct {
	DateAnchor
	Dialect  string
	TopK     int
	Schema   string
	History  string
	Question string
}

// GenerateSQL asks the model for a query answering question. The returned
// SQL is sanitized; it is also returned alongside a *SQLGenerationError so
// callers can show what the model produced.
func (a *Agent) GenerateSQL(ctx context.Context, question, history string) (string, error) {
	schema, err := a.cfg.Schema.Describe(ctx)
	if err != nil {
		return "", &QueryExecutionError{Err: fmt.Errorf("describe schema: %w", err)}
	}

	prompt, err := render(a.cfg.Prompts.SQL, sqlPromptData{
		DateAnchor: NewDateAnchor(a.cfg.Clock.Now()),
		Dialect:    a.cfg.Dialect,
		TopK:       a.cfg.TopK,
		Schema:     schema,
		History:    history,
		Question:   question,
	})
	if err != nil {
		return "", err
	}

	raw, err := a.cfg.LLM.Complete(ctx, a.system, prompt)
	if err != nil {
		return "", &ModelError{Stage: StageGenerateSQL, Err: err}
	}

	sql := SanitizeSQL(raw)
	if err := ValidateSQL(sql); err != nil {
		return sql, err
	}
	return sql, nil
}

// fenceTags are the language tags accepted after an opening code fence.
var fenceTags = map[string]bool{
	"sql":        true,
	"clickhouse": true,
	"postgres":   true,
	"postgresql": true,
	"pgsql":      true,
	"psql":       true,
}

// SanitizeSQL strips markdown code fences and their language tag,
// surrounding whitespace and a trailing semicolon from model output. When
// the output holds a complete fenced block, only that block is kept.
func SanitizeSQL(raw string) string {
	s := strings.TrimSpace(raw)
	if parts := strings.Split(s, "```"); len(parts) >= 3 {
		s = parts[1]
	} else {
		s = strings.ReplaceAll(s, "```", "")
	}
	s = stripFenceTag(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

func stripFenceTag(s string) string {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end == -1 {
		end = len(s)
	}
	if !fenceTags[strings.ToLower(s[:end])] {
		return s
	}
	return strings.TrimSpace(s[end:])
}

// ValidateSQL rejects candidates that contain no SELECT or that carry the
// model's error marker.
func ValidateSQL(sql string) error {
	switch {
	case sql == "":
		return &SQLGenerationError{Raw: sql, Reason: "empty output"}
	case strings.Contains(sql, "Error"):
		return &SQLGenerationError{Raw: sql, Reason: "model reported an error"}
	case !strings.Contains(strings.ToUpper(sql), "SELECT"):
		return &SQLGenerationError{Raw: sql, Reason: "no SELECT statement"}
	}
	return nil
}
