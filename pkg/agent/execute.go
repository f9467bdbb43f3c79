package agent

import (
	"context"

	"github.com/chipchip/marketing-agent/pkg/dataset"
)

// Executor runs a SQL query against the analytical database.
type Executor interface {
	Run(ctx context.Context, sql string) (dataset.RawResult, error)
}

// Execute runs sql on the query worker pool and normalizes the result.
// Undecodable encoded results are logged and treated as empty.
func (a *Agent) Execute(ctx context.Context, sql string) (*dataset.ResultSet, error) {
	task := a.queryPool.SubmitErr(func() (dataset.RawResult, error) {
		return a.cfg.Executor.Run(ctx, sql)
	})
	raw, err := task.Wait()
	if err != nil {
		return nil, &QueryExecutionError{SQL: sql, Err: err}
	}

	result, err := dataset.Normalize(raw, sql)
	if err != nil {
		a.log.Warn("agent: could not decode encoded result, treating as empty", "kind", raw.Kind, "error", err)
	}
	a.log.Debug("agent: query executed", "kind", raw.Kind, "rows", result.Len(), "columns", result.Columns)
	return result, nil
}
