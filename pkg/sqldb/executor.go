package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chipchip/marketing-agent/pkg/dataset"
)

// Dialect names the SQL flavour a database speaks, as shown to the model.
type Dialect string

const (
	DialectClickHouse Dialect = "ClickHouse"
	DialectPostgres   Dialect = "PostgreSQL"
)

// Executor runs read queries through database/sql.
type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) (*Executor, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Executor{db: db}, nil
}

// Run executes query and returns its rows with the driver's column names.
func (e *Executor) Run(ctx context.Context, query string) (dataset.RawResult, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return dataset.RawResult{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, values, err := scanAll(rows)
	if err != nil {
		return dataset.RawResult{}, err
	}
	return dataset.Rows(columns, values), nil
}

func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return columns, out, nil
}
