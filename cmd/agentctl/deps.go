package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chipchip/marketing-agent/pkg/agent"
	"github.com/chipchip/marketing-agent/pkg/clickhouse"
	"github.com/chipchip/marketing-agent/pkg/config"
	"github.com/chipchip/marketing-agent/pkg/memory"
	"github.com/chipchip/marketing-agent/pkg/postgres"
	"github.com/chipchip/marketing-agent/pkg/sqldb"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 10 * time.Second

// deps holds the wired collaborators of the agent and releases them in
// reverse order on close.
type deps struct {
	log      *slog.Logger
	db       *sql.DB
	executor agent.Executor
	dialect  sqldb.Dialect
	schema   *agent.CachedSchema
	agent    *agent.Agent
	closers  []func()
}

func (d *deps) onClose(f func()) {
	d.closers = append(d.closers, f)
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// newDataDeps connects to the analytical database and builds the cached
// schema describer.
func newDataDeps(ctx context.Context, log *slog.Logger, cfg *config.Config) (*deps, error) {
	d := &deps{log: log}
	if err := d.openDatabase(ctx, cfg); err != nil {
		d.Close()
		return nil, err
	}

	database := cfg.ClickHouse.Database
	if d.dialect == sqldb.DialectPostgres {
		database = ""
	}
	describer, err := sqldb.NewDescriber(sqldb.DescriberConfig{
		Logger:     log,
		DB:         d.db,
		Dialect:    d.dialect,
		Database:   database,
		Tables:     cfg.TableNames,
		SampleRows: 1,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create schema describer: %w", err)
	}
	d.schema, err = agent.NewCachedSchema(describer, cfg.SchemaCacheTTL)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.onClose(d.schema.Close)
	return d, nil
}

// newAgentDeps wires the full question pipeline.
func newAgentDeps(ctx context.Context, log *slog.Logger, cfg *config.Config) (*deps, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	d, err := newDataDeps(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	store, err := d.sessionStore(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	mem, err := memory.NewManager(memory.Config{
		Logger:   log,
		Store:    store,
		TTL:      cfg.SessionTTL,
		MaxTurns: cfg.SessionMaxTurns,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create session memory: %w", err)
	}

	llm, err := agent.NewAnthropicClient(agent.AnthropicConfig{
		Logger:    log,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: int64(cfg.LLMMaxTokens),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	prompts, err := agent.LoadPrompts()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	d.agent, err = agent.New(agent.Config{
		Logger:       log,
		Clock:        clockwork.NewRealClock(),
		LLM:          llm,
		Executor:     d.executor,
		Schema:       d.schema,
		Memory:       mem,
		Prompts:      prompts,
		Dialect:      string(d.dialect),
		QueryWorkers: cfg.QueryWorkers,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	d.onClose(d.agent.Close)

	log.Info("agent: ready", "dialect", d.dialect, "model", cfg.LLMModel, "sessions", cfg.SessionBackend, "tables", len(cfg.TableNames))
	return d, nil
}

func (d *deps) openDatabase(ctx context.Context, cfg *config.Config) error {
	switch cfg.DBDriver {
	case config.DriverClickHouse, config.DriverClickHouseHTTP:
		isHTTP := cfg.DBDriver == config.DriverClickHouseHTTP
		db, err := clickhouse.Open(ctx, clickhouse.Config{
			Logger:   d.log,
			Addr:     cfg.ClickHouseAddr(),
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Secure:   cfg.ClickHouse.Secure,
			HTTP:     isHTTP,
		})
		if err != nil {
			return err
		}
		d.db = db
		d.onClose(func() { _ = db.Close() })
		d.dialect = sqldb.DialectClickHouse

		if !isHTTP {
			d.executor, err = sqldb.NewExecutor(db)
			return err
		}
		// Questions use the raw HTTP interface. The schema still goes through database/sql.
		d.executor, err = clickhouse.NewHTTPExecutor(clickhouse.HTTPConfig{
			URL:      cfg.ClickHouseHTTPURL(),
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		return err

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, postgres.Config{Logger: d.log, URL: cfg.PostgresURL})
		if err != nil {
			return err
		}
		d.db = db
		d.onClose(func() { _ = db.Close() })
		d.dialect = sqldb.DialectPostgres
		d.executor, err = sqldb.NewExecutor(db)
		return err
	}
	return fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// sessionStore returns the configured transcript store. An unreachable
// Redis is not fatal: the store is kept and each session operation
// degrades to an empty history.
func (d *deps) sessionStore(ctx context.Context, cfg *config.Config) (memory.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		store := memory.NewCacheStore()
		d.onClose(func() { _ = store.Close() })
		return store, nil

	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := memory.NewRedisStore(client)
		d.onClose(func() { _ = store.Close() })

		attempt := 0
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			attempt++
			if err := store.Ping(ctx); err != nil {
				d.log.Debug("memory: redis ping failed", "addr", cfg.RedisAddr(), "attempt", attempt, "error", err)
				return struct{}{}, err
			}
			return struct{}{}, nil
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(redisPingTimeout))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			d.log.Warn("memory: redis unavailable, sessions will start without history", "addr", cfg.RedisAddr(), "error", err)
		} else {
			d.log.Info("memory: connected to redis", "addr", cfg.RedisAddr(), "db", cfg.Redis.DB)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported session backend %q", cfg.SessionBackend)
}
