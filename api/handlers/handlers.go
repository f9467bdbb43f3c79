package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chipchip/marketing-agent/api/metrics"
	"github.com/chipchip/marketing-agent/pkg/agent"
)

// Asker answers a question within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*agent.Response, error)
}

type Handler struct {
	log     *slog.Logger
	agent   Asker
	appName string
}

// New returns the API handlers. A nil asker makes the question endpoint
// answer 503.
func New(log *slog.Logger, asker Asker, appName string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, agent: asker, appName: appName}
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		metrics.ObserveAsk(metrics.AskUnavailable)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "Agent service is not available. Please check server logs."})
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveAsk(metrics.AskRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		metrics.ObserveAsk(metrics.AskRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "question is required"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		metrics.ObserveAsk(metrics.AskRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "session_id is required"})
		return
	}

	resp, err := h.agent.Ask(r.Context(), req.SessionID, req.Question)
	if errors.Is(err, agent.ErrEmptyQuestion) || errors.Is(err, agent.ErrEmptySessionID) {
		metrics.ObserveAsk(metrics.AskRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	if err != nil {
		metrics.ObserveAsk(metrics.AskError)
		h.log.Error("api: unexpected error answering question", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "An internal server error occurred."})
		return
	}

	if resp.Error != nil {
		metrics.ObserveAsk(metrics.AskFailed)
	} else {
		metrics.ObserveAsk(metrics.AskAnswered)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to " + h.appName + "!"})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: failed to encode response", "error", err)
	}
}
