package clickhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/chipchip/marketing-agent/pkg/dataset"
)

// HTTPExecutor runs queries against the ClickHouse HTTP interface.
//
// Queries without an explicit FORMAT clause are sent with FORMAT
// JSONCompact and decoded into rows. Any other 200 response body is handed
// back as encoded text for the caller to normalize.
var formatClauseRe = regexp.MustCompile(`(?i)\bFORMAT\s+\w+\s*$`)

// Settings sent with every query. 64-bit integers stay JSON numbers so
// counts decode like other numeric cells.
var httpQuerySettings = url.Values{
	"output_format_json_quote_64bit_integers": {"0"},
}

type HTTPExecutor struct {
	baseURL  string
	endpoint string
	database string
	username string
	password string
	client   *http.Client
}

type HTTPConfig struct {
	// URL is the base HTTP endpoint, e.g. http://localhost:8123.
	URL      string
	Database string
	Username string
	Password string
	Client   *http.Client
}

func NewHTTPExecutor(cfg HTTPConfig) (*HTTPExecutor, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimSuffix(cfg.URL, "/") + "/"
	return &HTTPExecutor{
		baseURL:  base,
		endpoint: base + "?" + httpQuerySettings.Encode(),
		database: cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
		client:   client,
	}, nil
}

func (e *HTTPExecutor) Run(ctx context.Context, query string) (dataset.RawResult, error) {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	if !formatClauseRe.MatchString(query) {
		query += " FORMAT JSONCompact"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(query))
	if err != nil {
		return dataset.RawResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if e.database != "" {
		req.Header.Set("X-ClickHouse-Database", e.database)
	}
	if e.username != "" {
		req.Header.Set("X-ClickHouse-User", e.username)
		req.Header.Set("X-ClickHouse-Key", e.password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return dataset.RawResult{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dataset.RawResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if r := []rune(msg); len(r) > 500 {
			msg = string(r[:500]) + "..."
		}
		return dataset.RawResult{}, fmt.Errorf("clickhouse returned %d: %s", resp.StatusCode, msg)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return dataset.Empty(), nil
	}

	var compact struct {
		Meta []struct {
			Name string `json:"name"`
		} `json:"meta"`
		Data [][]any `json:"data"`
	}
	if err := json.Unmarshal(body, &compact); err != nil || compact.Meta == nil {
		return dataset.EncodedText(text), nil
	}

	columns := make([]string, 0, len(compact.Meta))
	for _, m := range compact.Meta {
		columns = append(columns, m.Name)
	}
	return dataset.Rows(columns, compact.Data), nil
}

// Ping checks that the HTTP interface answers.
func (e *HTTPExecutor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"ping", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned %d", resp.StatusCode)
	}
	return nil
}
