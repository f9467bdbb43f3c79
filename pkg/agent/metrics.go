package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StageLoadMemory   = "load_memory"
	StageGenerateSQL  = "generate_sql"
	StageExecuteQuery = "execute_query"
	StageSynthesize   = "synthesize_answer"
	StageSuggestChart = "suggest_chart"
	StageFormatChart  = "format_chart"
	StageSaveMemory   = "save_memory"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_requests_total",
		Help: "Questions handled by the agent, by outcome",
	}, []string{"outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"stage"})

	stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_stage_errors_total",
		Help: "Pipeline stage failures, including ones recovered from",
	}, []string{"stage"})

	chartSuggestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_chart_suggestions_total",
		Help: "Chart types returned to clients",
	}, []string{"type"})
)
