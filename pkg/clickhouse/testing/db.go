package clickhousetesting

import (
	"database/sql"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/chipchip/marketing-agent/pkg/clickhouse"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

type DBConfig struct {
	Database       string
	Username       string
	Password       string
	ContainerImage string
}

func (cfg *DBConfig) Validate() error {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "clickhouse/clickhouse-server:latest"
	}
	return nil
}

type DB struct {
	*sql.DB
	Database string
	Username string
	Password string

	// HTTPURL is the base URL of the container's HTTP interface.
	HTTPURL string
}

// NewDB starts a ClickHouse container and returns a connected handle. The
// container is terminated when the test ends.
func NewDB(t testing.TB, cfg *DBConfig) *DB {
	t.Helper()
	ctx := t.Context()

	if cfg == nil {
		cfg = &DBConfig{}
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("failed to validate DB config: %v", err)
	}

	var container *tcch.ClickHouseContainer
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		var err error
		container, err = tcch.Run(ctx,
			cfg.ContainerImage,
			tcch.WithDatabase(cfg.Database),
			tcch.WithUsername(cfg.Username),
			tcch.WithPassword(cfg.Password),
		)
		if err == nil {
			break
		}
		lastErr = err
		if !strings.Contains(err.Error(), "wait until ready") || attempt == 3 {
			t.Fatalf("failed to start ClickHouse container: %v", err)
		}
		time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
	}
	if container == nil {
		t.Fatalf("failed to start ClickHouse container after retries: %v", lastErr)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate ClickHouse container: %v", err)
		}
	})

	addr, err := container.ConnectionHost(ctx)
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)
	httpPort, err := container.MappedPort(ctx, "8123/tcp")
	require.NoError(t, err)

	db, err := clickhouse.Open(ctx, clickhouse.Config{
		Logger:         slog.Default(),
		Addr:           addr,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		ConnectTimeout: 20 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close ClickHouse: %v", err)
		}
	})

	return &DB{
		DB:       db,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
		HTTPURL:  "http://" + net.JoinHostPort(host, httpPort.Port()),
	}
}
