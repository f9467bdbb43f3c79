package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chipchip/marketing-agent/pkg/dataset"
)

type DescriberConfig struct {
	Logger  *slog.Logger
	DB      *sql.DB
	Dialect Dialect

	// Database is the ClickHouse database or Postgres schema to describe.
	Database string

	// Tables restricts and orders the description. Empty means every table
	// in Database.
	Tables []string

	// SampleRows is the number of example rows shown per table.
	SampleRows int
}

func (cfg *DescriberConfig) Validate() error {
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Dialect {
	case DialectClickHouse:
	case DialectPostgres:
		if cfg.Database == "" {
			cfg.Database = "public"
		}
	default:
		return fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	if cfg.Database == "" {
		return errors.New("database is required")
	}
	if cfg.SampleRows < 0 {
		cfg.SampleRows = 0
	}
	return nil
}

// Describer renders the queryable tables, their columns and sample rows as
// prompt text.
type Describer struct {
	log *slog.Logger
	cfg DescriberConfig
}

func NewDescriber(cfg DescriberConfig) (*Describer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Describer{log: cfg.Logger, cfg: cfg}, nil
}

type columnInfo struct {
	Name string
	Type string
}

func (d *Describer) Describe(ctx context.Context) (string, error) {
	columns, order, err := d.fetchColumns(ctx)
	if err != nil {
		return "", err
	}

	tables := d.cfg.Tables
	if len(tables) == 0 {
		tables = order
	}

	var sb strings.Builder
	described := 0
	for _, table := range tables {
		cols, ok := columns[table]
		if !ok {
			d.log.Warn("schema: configured table not found", "table", table, "database", d.cfg.Database)
			continue
		}
		if described > 0 {
			sb.WriteString("\n\n")
		}
		described++

		fmt.Fprintf(&sb, "Table: %s\nColumns:\n", table)
		for _, c := range cols {
			fmt.Fprintf(&sb, "  - %s (%s)\n", c.Name, c.Type)
		}

		if d.cfg.SampleRows == 0 {
			continue
		}
		sample, err := d.sample(ctx, table)
		if err != nil {
			d.log.Warn("schema: failed to sample table", "table", table, "error", err)
			continue
		}
		if !sample.Empty() {
			fmt.Fprintf(&sb, "%d sample rows from %s:\n%s", sample.Len(), table, sample.Render(d.cfg.SampleRows))
		}
	}

	if described == 0 {
		return "", fmt.Errorf("no tables found in %s", d.cfg.Database)
	}
	return sb.String(), nil
}

func (d *Describer) fetchColumns(ctx context.Context) (map[string][]columnInfo, []string, error) {
	var query string
	switch d.cfg.Dialect {
	case DialectPostgres:
		query = `SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = $1 ORDER BY table_name, ordinal_position`
	default:
		query = `SELECT table, name, type FROM system.columns WHERE database = ? ORDER BY table, position`
	}

	rows, err := d.cfg.DB.QueryContext(ctx, query, d.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]columnInfo)
	var order []string
	for rows.Next() {
		var table string
		var c columnInfo
		if err := rows.Scan(&table, &c.Name, &c.Type); err != nil {
			return nil, nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if _, seen := columns[table]; !seen {
			order = append(order, table)
		}
		columns[table] = append(columns[table], c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return columns, order, nil
}

func (d *Describer) sample(ctx context.Context, table string) (*dataset.ResultSet, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.quote(table), d.cfg.SampleRows)
	rows, err := d.cfg.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, values, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	return &dataset.ResultSet{Columns: columns, Rows: values}, nil
}

func (d *Describer) quote(ident string) string {
	if d.cfg.Dialect == DialectPostgres {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(ident, "`", "\\`") + "`"
}
