package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

type Config struct {
	Logger *slog.Logger

	// URL is a libpq-style connection string or postgres:// URL.
	URL string

	// StatementTimeout is applied to every session.
	StatementTimeout time.Duration

	// ConnectTimeout bounds the startup ping retries.
	ConnectTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.URL == "" {
		return errors.New("url is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 60 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	return nil
}

// Open returns a database/sql handle backed by pgx, retrying the initial
// ping with exponential backoff.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	connCfg.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	connCfg.RuntimeParams["default_transaction_read_only"] = "on"

	db := stdlib.OpenDB(*connCfg)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if err := db.PingContext(ctx); err != nil {
			cfg.Logger.Warn("postgres: ping failed", "host", connCfg.Host, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(cfg.ConnectTimeout))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres at %s: %w", connCfg.Host, err)
	}

	cfg.Logger.Info("postgres: connected", "host", connCfg.Host, "database", connCfg.Database)
	return db, nil
}
