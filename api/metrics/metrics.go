package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels requests that no route handled, so arbitrary paths
// do not create new series.
const UnmatchedRoute = "unmatched"

// Outcomes of a question sent to the ask endpoint.
const (
	AskAnswered    = "answered"
	AskFailed      = "failed"
	AskRejected    = "rejected"
	AskUnavailable = "unavailable"
	AskError       = "error"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information of the analytics agent",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "HTTP requests by route pattern and status",
		},
		[]string{"method", "path", "status"},
	)

	// Questions take seconds to minutes because of the model round trips.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"method", "path"},
	)

	AskResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_ask_responses_total",
			Help: "Questions handled by the ask endpoint, by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveAsk counts one ask request with the given outcome.
func ObserveAsk(outcome string) {
	AskResponsesTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latency labelled by chi route
// pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := RouteLabel(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RouteLabel returns the matched chi route pattern, or UnmatchedRoute.
func RouteLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return UnmatchedRoute
}
