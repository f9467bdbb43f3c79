package agent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyQuestion  = errors.New("question is required")
	ErrEmptySessionID = errors.New("session id is required")
)

// ConfigurationError reports collaborators missing at construction.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "agent is missing required collaborators: " + strings.Join(e.Missing, ", ")
}

// SQLGenerationError is returned when the model output is not usable SQL.
type SQLGenerationError struct {
	Raw    string
	Reason string
}

func (e *SQLGenerationError) Error() string {
	return fmt.Sprintf("invalid SQL generated (%s): %q", e.Reason, e.Raw)
}

// QueryExecutionError is returned when the database rejects or fails a query.
type QueryExecutionError struct {
	SQL string
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// ChartDecodeError is returned when the chart suggestion is not valid JSON or
// does not match the suggestion schema.
type ChartDecodeError struct {
	Raw string
	Err error
}

func (e *ChartDecodeError) Error() string {
	return fmt.Sprintf("failed to decode chart suggestion: %v", e.Err)
}

func (e *ChartDecodeError) Unwrap() error { return e.Err }

// ModelError wraps a completion failure in a named pipeline stage.
type ModelError struct {
	Stage string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed during %s: %v", e.Stage, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// UserMessage maps a pipeline error to text that is safe to show callers.
func UserMessage(err error) string {
	var (
		genErr   *SQLGenerationError
		execErr  *QueryExecutionError
		modelErr *ModelError
	)
	switch {
	case errors.As(err, &genErr):
		return "Could not generate a valid SQL query for this question."
	case errors.As(err, &execErr):
		return "The database could not run the generated query."
	case errors.As(err, &modelErr):
		return "The language model is currently unavailable."
	default:
		return "An unexpected error occurred while processing the request."
	}
}
