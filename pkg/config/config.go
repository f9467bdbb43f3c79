package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverClickHouse     = "clickhouse"
	DriverClickHouseHTTP = "clickhouse-http"
	DriverPostgres       = "postgres"

	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

var DefaultTableNames = []string{
	"users_poc",
	"categories_poc",
	"products_poc",
	"orders_poc",
	"order_items_poc",
	"group_deals_poc",
	"groups_poc",
	"group_members_poc",
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Secure   bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type Config struct {
	AppName            string
	APIPrefix          string
	ListenAddr         string
	CORSAllowedOrigins []string

	AnthropicAPIKey string
	LLMModel        string
	LLMMaxTokens    int

	DBDriver    string
	ClickHouse  ClickHouseConfig
	PostgresURL string

	SessionBackend  string
	Redis           RedisConfig
	SessionTTL      time.Duration
	SessionMaxTurns int

	TableNames     []string
	SchemaCacheTTL time.Duration
	QueryWorkers   int
}

// Load reads the configuration from the environment. Variables already set
// in the environment take precedence over those in envFile. An empty
// envFile loads .env from the working directory if it exists.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a validated Config from the given variable lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		AppName:            e.str("APP_NAME"),
		APIPrefix:          e.str("API_PREFIX"),
		ListenAddr:         e.str("LISTEN_ADDR"),
		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),

		AnthropicAPIKey: e.str("ANTHROPIC_API_KEY"),
		LLMModel:        e.str("LLM_MODEL_NAME"),
		LLMMaxTokens:    e.int("LLM_MAX_TOKENS"),

		DBDriver: strings.ToLower(e.str("DB_DRIVER")),
		ClickHouse: ClickHouseConfig{
			Host:     e.str("CLICKHOUSE_HOST"),
			Port:     e.int("CLICKHOUSE_PORT"),
			Username: e.str("CLICKHOUSE_USERNAME"),
			Password: e.str("CLICKHOUSE_PASSWORD"),
			Database: e.str("CLICKHOUSE_DATABASE"),
			Secure:   e.bool("CLICKHOUSE_SECURE"),
		},
		PostgresURL: e.str("POSTGRES_URL"),

		SessionBackend: strings.ToLower(e.str("SESSION_BACKEND")),
		Redis: RedisConfig{
			Host:     e.str("REDIS_HOST"),
			Port:     e.int("REDIS_PORT"),
			Password: e.str("REDIS_PASSWORD"),
			DB:       e.int("REDIS_DB"),
		},
		SessionTTL:      e.seconds("SESSION_TTL"),
		SessionMaxTurns: e.int("SESSION_MAX_TURNS"),

		TableNames:     e.list("POC_TABLE_NAMES"),
		SchemaCacheTTL: e.seconds("SCHEMA_CACHE_TTL"),
		QueryWorkers:   e.int("QUERY_WORKERS"),
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.AppName == "" {
		cfg.AppName = "ChipChip AI Marketing Agent"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "claude-sonnet-4-5"
	}
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 2048
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverClickHouse
	}
	switch cfg.DBDriver {
	case DriverClickHouse, DriverClickHouseHTTP:
		if cfg.ClickHouse.Host == "" {
			cfg.ClickHouse.Host = "localhost"
		}
		if cfg.ClickHouse.Port == 0 {
			cfg.ClickHouse.Port = defaultClickHousePort(cfg.DBDriver, cfg.ClickHouse.Secure)
		}
		if cfg.ClickHouse.Username == "" {
			cfg.ClickHouse.Username = "default"
		}
		if cfg.ClickHouse.Database == "" {
			cfg.ClickHouse.Database = "chipchip_db"
		}
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required when DB_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.SessionBackend == "" {
		cfg.SessionBackend = SessionBackendRedis
	}
	switch cfg.SessionBackend {
	case SessionBackendRedis:
		if cfg.Redis.Host == "" {
			cfg.Redis.Host = "localhost"
		}
		if cfg.Redis.Port == 0 {
			cfg.Redis.Port = 6379
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.SessionBackend)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1800 * time.Second
	}
	if cfg.SessionMaxTurns <= 0 {
		cfg.SessionMaxTurns = 20
	}

	if len(cfg.TableNames) == 0 {
		cfg.TableNames = append([]string(nil), DefaultTableNames...)
	}
	if cfg.SchemaCacheTTL <= 0 {
		cfg.SchemaCacheTTL = 5 * time.Minute
	}
	if cfg.QueryWorkers <= 0 {
		cfg.QueryWorkers = 8
	}
	return nil
}

// RequireLLM reports an error when no model credentials are configured.
func (cfg *Config) RequireLLM() error {
	if cfg.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required")
	}
	return nil
}

func (cfg *Config) ClickHouseAddr() string {
	return net.JoinHostPort(cfg.ClickHouse.Host, strconv.Itoa(cfg.ClickHouse.Port))
}

func (cfg *Config) ClickHouseHTTPURL() string {
	scheme := "http"
	if cfg.ClickHouse.Secure {
		scheme = "https"
	}
	return scheme + "://" + cfg.ClickHouseAddr()
}

func (cfg *Config) RedisAddr() string {
	return net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))
}

func defaultClickHousePort(driver string, secure bool) int {
	switch {
	case driver == DriverClickHouseHTTP && secure:
		return 8443
	case driver == DriverClickHouseHTTP:
		return 8123
	case secure:
		return 9440
	default:
		return 9000
	}
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key string) string {
	v, _ := e.lookup(key)
	return strings.TrimSpace(v)
}

func (e *env) list(key string) []string {
	var out []string
	for _, item := range strings.Split(e.str(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (e *env) int(key string) int {
	v := e.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
	}
	return n
}

func (e *env) bool(key string) bool {
	v := e.str(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
	}
	return b
}

// seconds accepts a Go duration ("5m") or a bare number of seconds ("1800").
func (e *env) seconds(key string) time.Duration {
	v := e.str(key)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
	}
	return d
}
