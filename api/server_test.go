package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chipchip/marketing-agent/pkg/agent"
	"github.com/stretchr/testify/require"
)

type stubAsker struct{}

func (stubAsker) Ask(_ context.Context, sessionID, question string) (*agent.Response, error) {
	return &agent.Response{SessionID: sessionID, Question: question, Answer: "ok"}, nil
}

func TestAPI_Config_Validate(t *testing.T) {
	t.Parallel()

	cfg := Config{AppName: "x", APIPrefix: "/api/v2/"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "/api/v2", cfg.APIPrefix)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	require.NotNil(t, cfg.Logger)

	cfg = Config{AppName: "x", APIPrefix: "api"}
	require.Error(t, cfg.Validate())

	cfg = Config{}
	require.Error(t, cfg.Validate())
}

func TestAPI_Router(t *testing.T) {
	t.Parallel()

	cfg := Config{AppName: "ChipChip Agent", Agent: stubAsker{}, AllowedOrigins: []string{"https://dash.example.com"}}
	require.NoError(t, cfg.Validate())
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)

	t.Run("ask under the prefix", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/ask", "application/json", strings.NewReader(`{"question":"q","session_id":"s"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got agent.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "ok", got.Answer)
		require.Equal(t, "s", got.SessionID)
	})

	t.Run("ask rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/ask")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("welcome", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"message":"Welcome to ChipChip Agent!"}`, string(body))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/ask", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://dash.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestAPI_Server_ServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewServer(Config{AppName: "x", Agent: stubAsker{}})
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
