package clickhouse

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/cenkalti/backoff/v5"
)

type Config struct {
	Logger   *slog.Logger
	Addr     string
	Database string
	Username string
	Password string
	Secure   bool

	// HTTP selects the HTTP interface instead of the native protocol.
	HTTP bool

	// MaxExecutionTime is sent as the max_execution_time setting.
	MaxExecutionTime time.Duration

	// ConnectTimeout bounds the startup ping retries.
	ConnectTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	if cfg.Database == "" {
		return errors.New("database is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.MaxExecutionTime <= 0 {
		cfg.MaxExecutionTime = 60 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	return nil
}

// Open connects to ClickHouse over the native protocol and returns a
// database/sql handle. It retries the initial ping with exponential backoff
// until cfg.ConnectTimeout elapses.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.MaxExecutionTime.Seconds()),
		},
		DialTimeout: 5 * time.Second,
		Protocol:    clickhouse.Native,
	}
	if cfg.HTTP {
		opts.Protocol = clickhouse.HTTP
	}
	if cfg.Secure {
		opts.TLS = &tls.Config{}
	}
	db := clickhouse.OpenDB(opts)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			cfg.Logger.Warn("clickhouse: ping failed", "addr", cfg.Addr, "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(cfg.ConnectTimeout))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to clickhouse at %s: %w", cfg.Addr, err)
	}

	cfg.Logger.Info("clickhouse: connected", "addr", cfg.Addr, "database", cfg.Database, "protocol", opts.Protocol.String())
	return db, nil
}
