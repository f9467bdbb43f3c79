package agent

import (
	"context"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/chipchip/marketing-agent/pkg/dataset"
	"github.com/jonboulle/clockwork"
)

const (
	// FailureAnswer is returned in place of an answer when a request fails.
	FailureAnswer = "Sorry, I encountered an issue processing your request."

	defaultTopK           = 100
	defaultRenderRows     = 10
	defaultPreviewRows    = 5
	defaultQueryWorkers   = 8
	defaultLLMConcurrency = 16
)

// Memory is the per-session conversation store.
type Memory interface {
	Load(ctx context.Context, sessionID string) string
	Save(ctx context.Context, sessionID, userText, assistantText string)
}

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	LLM      LLMClient
	Executor Executor
	Schema   SchemaDescriber
	Memory   Memory
	Prompts  *Prompts

	// Dialect names the database's SQL flavour in the prompts.
	Dialect string

	// TopK is the default row limit the model is asked to apply.
	TopK int

	// RenderRows is the number of rows shown to the model before the
	// rendering is truncated.
	RenderRows int

	// PreviewRows is the number of rows returned in the debug preview.
	PreviewRows int

	// QueryWorkers bounds concurrent database queries across requests.
	QueryWorkers int

	// LLMConcurrency bounds concurrent answer/chart model calls across
	// requests.
	LLMConcurrency int
}

// Validate fills defaults and returns a *ConfigurationError naming every
// missing collaborator.
func (cfg *Config) Validate() error {
	var missing []string
	if cfg.LLM == nil {
		missing = append(missing, "LLM client")
	}
	if cfg.Executor == nil {
		missing = append(missing, "query executor")
	}
	if cfg.Schema == nil {
		missing = append(missing, "schema describer")
	}
	if cfg.Memory == nil {
		missing = append(missing, "session memory")
	}
	if cfg.Prompts == nil {
		missing = append(missing, "prompts")
	} else {
		for _, p := range []struct {
			name string
			tmpl *template.Template
		}{
			{"system prompt", cfg.Prompts.System},
			{"SQL generation prompt", cfg.Prompts.SQL},
			{"answer synthesis prompt", cfg.Prompts.Answer},
			{"chart suggestion prompt", cfg.Prompts.Chart},
		} {
			if p.tmpl == nil {
				missing = append(missing, p.name)
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Dialect == "" {
		cfg.Dialect = "ClickHouse"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.RenderRows <= 0 {
		cfg.RenderRows = defaultRenderRows
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = defaultPreviewRows
	}
	if cfg.QueryWorkers <= 0 {
		cfg.QueryWorkers = defaultQueryWorkers
	}
	if cfg.LLMConcurrency <= 0 {
		cfg.LLMConcurrency = defaultLLMConcurrency
	}
	return nil
}

// Agent answers analytics questions: it generates SQL, runs it, and
// produces a prose answer plus an optional chart.
type Agent struct {
	log         *slog.Logger
	cfg         Config
	system      string
	chartSchema *chartSchema
	queryPool   pond.ResultPool[dataset.RawResult]
	llmPool     pond.ResultPool[fanOut]
}

func New(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	system, err := render(cfg.Prompts.System, struct{ Dialect string }{cfg.Dialect})
	if err != nil {
		return nil, err
	}
	schema, err := newChartSchema()
	if err != nil {
		return nil, err
	}

	return &Agent{
		log:         cfg.Logger,
		cfg:         cfg,
		system:      strings.TrimSpace(system),
		chartSchema: schema,
		queryPool:   pond.NewResultPool[dataset.RawResult](cfg.QueryWorkers),
		llmPool:     pond.NewResultPool[fanOut](cfg.LLMConcurrency),
	}, nil
}

// Close waits for in-flight work and stops the worker pools.
func (a *Agent) Close() {
	a.queryPool.StopAndWait()
	a.llmPool.StopAndWait()
}

// Response is the result of one question.
type Response struct {
	SessionID string     `json:"session_id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	ChartData *ChartData `json:"chart_data"`
	DebugInfo DebugInfo  `json:"debug_info"`
	Error     *string    `json:"error"`
}

// DebugInfo carries the SQL and a result preview for every response.
// SQLResultPreview is a slice of records, or a message when there is no data.
type DebugInfo struct {
	GeneratedSQL     *string `json:"generated_sql"`
	SQLResultPreview any     `json:"sql_result_preview"`
}

// Ask runs the full pipeline for one question. Pipeline failures are
// reported in the Response, with Answer set to FailureAnswer; the returned
// error is non-nil only for invalid input.
//
// Ask does not observe cancellation of ctx: once started, a request runs to
// completion or to its error state.
func (a *Agent) Ask(ctx context.Context, sessionID, question string) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	ctx = context.WithoutCancel(ctx)

	start := a.cfg.Clock.Now()
	resp := &Response{SessionID: sessionID, Question: question}
	log := a.log.With("session_id", sessionID)

	if err := a.run(ctx, log, resp); err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		log.Error("agent: request failed", "question", question, "sql", deref(resp.DebugInfo.GeneratedSQL), "error", err)
		a.fail(resp, err)
		return resp, nil
	}

	requestsTotal.WithLabelValues("success").Inc()
	log.Info("agent: request completed", "duration", a.cfg.Clock.Since(start), "chart", chartType(resp.ChartData))
	return resp, nil
}

func (a *Agent) run(ctx context.Context, log *slog.Logger, resp *Response) error {
	question := resp.Question

	stageStart := a.cfg.Clock.Now()
	history := a.cfg.Memory.Load(ctx, resp.SessionID)
	a.observe(StageLoadMemory, stageStart, nil)

	stageStart = a.cfg.Clock.Now()
	sql, err := a.GenerateSQL(ctx, question, history)
	a.observe(StageGenerateSQL, stageStart, err)
	if sql != "" {
		resp.DebugInfo.GeneratedSQL = &sql
	}
	if err != nil {
		return err
	}
	log.Info("agent: generated sql", "sql", sql)

	stageStart = a.cfg.Clock.Now()
	result, err := a.Execute(ctx, sql)
	a.observe(StageExecuteQuery, stageStart, err)
	if err != nil {
		return err
	}
	if result.Empty() {
		resp.DebugInfo.SQLResultPreview = dataset.NoDataMarker
	} else {
		resp.DebugInfo.SQLResultPreview = result.Preview(a.cfg.PreviewRows)
	}

	rendered := result.Render(a.cfg.RenderRows)
	answer, suggestion, err := a.answerAndSuggest(ctx, question, sql, rendered, result.Columns)
	if err != nil {
		return err
	}
	resp.Answer = answer

	stageStart = a.cfg.Clock.Now()
	chart, err := FormatChart(suggestion, result)
	a.observe(StageFormatChart, stageStart, err)
	if err != nil {
		log.Warn("agent: chart formatting failed, returning no chart", "error", err)
		chart = nil
	}
	resp.ChartData = chart
	chartSuggestions.WithLabelValues(chartType(chart)).Inc()

	stageStart = a.cfg.Clock.Now()
	a.cfg.Memory.Save(ctx, resp.SessionID, question, answer)
	a.observe(StageSaveMemory, stageStart, nil)
	return nil
}

// fanOut is the output of one of the two concurrent post-query stages.
type fanOut struct {
	answer     string
	suggestion ChartSuggestion
}

// answerAndSuggest runs answer synthesis and chart suggestion concurrently.
// Only a synthesis failure is returned; chart failures degrade inside
// SuggestChart.
func (a *Agent) answerAndSuggest(ctx context.Context, question, sql, rendered string, columns []string) (string, ChartSuggestion, error) {
	group := a.llmPool.NewGroupContext(ctx)
	group.SubmitErr(func() (fanOut, error) {
		start := a.cfg.Clock.Now()
		answer, err := a.Synthesize(ctx, question, sql, rendered)
		a.observe(StageSynthesize, start, err)
		return fanOut{answer: answer}, err
	})
	group.SubmitErr(func() (fanOut, error) {
		start := a.cfg.Clock.Now()
		suggestion := a.SuggestChart(ctx, question, rendered, columns)
		a.observe(StageSuggestChart, start, nil)
		return fanOut{suggestion: suggestion}, nil
	})

	results, err := group.Wait()
	if err != nil {
		return "", ChartSuggestion{}, err
	}
	return results[0].answer, results[1].suggestion, nil
}

func (a *Agent) fail(resp *Response, err error) {
	msg := UserMessage(err)
	resp.Answer = FailureAnswer
	resp.ChartData = nil
	resp.Error = &msg
	if resp.DebugInfo.GeneratedSQL == nil || strings.Contains(*resp.DebugInfo.GeneratedSQL, "Error") {
		placeholder := "Error during processing: " + msg
		resp.DebugInfo.GeneratedSQL = &placeholder
	}
}

func (a *Agent) observe(stage string, start time.Time, err error) {
	stageDuration.WithLabelValues(stage).Observe(a.cfg.Clock.Since(start).Seconds())
	if err != nil {
		stageErrors.WithLabelValues(stage).Inc()
	}
}

func chartType(c *ChartData) string {
	if c == nil {
		return string(ChartNone)
	}
	return string(c.Type)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
