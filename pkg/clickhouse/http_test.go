package clickhouse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chipchip/marketing-agent/pkg/dataset"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *HTTPExecutor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	exec, err := NewHTTPExecutor(HTTPConfig{URL: srv.URL, Database: "chipchip_db", Username: "default", Password: "secret"})
	require.NoError(t, err)
	return exec
}

func TestHTTPExecutor_JSONCompact(t *testing.T) {
	t.Parallel()

	var gotQuery string
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		require.Equal(t, "chipchip_db", r.Header.Get("X-ClickHouse-Database"))
		require.Equal(t, "default", r.Header.Get("X-ClickHouse-User"))
		require.Equal(t, "secret", r.Header.Get("X-ClickHouse-Key"))
		require.Equal(t, "0", r.URL.Query().Get("output_format_json_quote_64bit_integers"))
		_, _ = w.Write([]byte(`{"meta":[{"name":"name","type":"String"},{"name":"total","type":"Float64"}],"data":[["Tomato",12.5],["Onion",7]],"rows":2}`))
	})

	raw, err := exec.Run(context.Background(), "SELECT name, total FROM t;")
	require.NoError(t, err)
	require.Equal(t, "SELECT name, total FROM t FORMAT JSONCompact", gotQuery)
	require.Equal(t, dataset.RawRows, raw.Kind)
	require.Equal(t, []string{"name", "total"}, raw.Columns)
	require.Equal(t, [][]any{{"Tomato", 12.5}, {"Onion", float64(7)}}, raw.Rows)
}

func TestHTTPExecutor_EncodedText(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "SELECT name, total FROM t FORMAT Values", string(body))
		_, _ = w.Write([]byte("('Tomato',12),('Onion',7)\n"))
	})

	raw, err := exec.Run(context.Background(), "SELECT name, total FROM t FORMAT Values")
	require.NoError(t, err)
	require.Equal(t, dataset.RawEncodedText, raw.Kind)

	rs, err := dataset.Normalize(raw, "SELECT name, total FROM t")
	require.NoError(t, err)
	require.Equal(t, []string{"name", "total"}, rs.Columns)
	require.Equal(t, 2, rs.Len())
}

func TestHTTPExecutor_FormatClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		sent  string
	}{
		{
			name:  "format on its own line",
			query: "SELECT name FROM t\nFORMAT CSV",
			sent:  "SELECT name FROM t\nFORMAT CSV",
		},
		{
			name:  "lowercase format after tab",
			query: "SELECT name FROM t\tformat TSV;",
			sent:  "SELECT name FROM t\tformat TSV",
		},
		{
			name:  "format as a column name",
			query: "SELECT format FROM t",
			sent:  "SELECT format FROM t FORMAT JSONCompact",
		},
		{
			name:  "format function in select list",
			query: "SELECT format('{} kg', weight) AS w FROM t",
			sent:  "SELECT format('{} kg', weight) AS w FROM t FORMAT JSONCompact",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotQuery string
			exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotQuery = string(body)
				_, _ = w.Write([]byte("Tomato\n"))
			})

			_, err := exec.Run(context.Background(), tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.sent, gotQuery)
		})
	}
}

func TestHTTPExecutor_UInt64StaysNumeric(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("output_format_json_quote_64bit_integers") != "0" {
			_, _ = w.Write([]byte(`{"meta":[{"name":"orders","type":"UInt64"}],"data":[["42"]],"rows":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"meta":[{"name":"orders","type":"UInt64"}],"data":[[42]],"rows":1}`))
	})

	raw, err := exec.Run(context.Background(), "SELECT count() AS orders FROM orders_poc")
	require.NoError(t, err)
	require.Equal(t, [][]any{{float64(42)}}, raw.Rows)
}

func TestHTTPExecutor_EmptyBody(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {})

	raw, err := exec.Run(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Equal(t, dataset.RawEmpty, raw.Kind)
}

func TestHTTPExecutor_Error(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Code: 60. DB::Exception: Table chipchip_db.nope does not exist."))
	})

	_, err := exec.Run(context.Background(), "SELECT * FROM nope")
	require.ErrorContains(t, err, "clickhouse returned 404: Code: 60.")
}

func TestHTTPExecutor_Ping(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ping", r.URL.Path)
		_, _ = w.Write([]byte("Ok.\n"))
	})
	require.NoError(t, exec.Ping(context.Background()))
}

func TestNewHTTPExecutor_RequiresURL(t *testing.T) {
	t.Parallel()
	_, err := NewHTTPExecutor(HTTPConfig{})
	require.EqualError(t, err, "url is required")
}
