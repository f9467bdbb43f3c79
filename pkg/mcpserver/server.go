package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chipchip/marketing-agent/pkg/agent"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const DefaultSessionID = "mcp"

type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*agent.Response, error)
}

type Config struct {
	Logger  *slog.Logger
	Agent   Asker
	Schema  agent.SchemaDescriber
	Version string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Agent == nil {
		return errors.New("agent is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return nil
}

type Server struct {
	log *slog.Logger
	mcp *mcp.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		log: cfg.Logger,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "ChipChip Analytics Agent",
			Version: cfg.Version,
		}, nil),
	}

	if err := registerAskTool(s.log, s.mcp, cfg.Agent); err != nil {
		return nil, err
	}
	if cfg.Schema != nil {
		if err := registerSchemaTool(s.log, s.mcp, cfg.Schema); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves the tools over transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("mcp: serving tools")
	if err := s.mcp.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}

type AskInput struct {
	Question  string `json:"question" jsonschema:"Business question about ChipChip sales, products, customers or group deals"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id; follow-up questions in the same session see earlier turns"`
}

type AskOutput struct {
	Answer    string `json:"answer"`
	SQL       string `json:"sql,omitempty"`
	ChartType string `json:"chart_type,omitempty"`
	Rows      any    `json:"rows,omitempty"`
	Error     string `json:"error,omitempty"`
}

func registerAskTool(log *slog.Logger, server *mcp.Server, asker Asker) error {
	in, err := jsonschema.For[AskInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create ask input schema: %w", err)
	}
	out, err := jsonschema.For[AskOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create ask output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask",
		Description: strings.TrimSpace(`
Answer a business question about the ChipChip e-commerce data.
The question is translated to SQL, run against the analytics database and summarized.
The response carries the answer, the SQL that produced it, a suggested chart type and a preview of the rows.
`),
		InputSchema:  in,
		OutputSchema: out,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req AskInput) (*mcp.CallToolResult, AskOutput, error) {
		sessionID := strings.TrimSpace(req.SessionID)
		if sessionID == "" {
			sessionID = DefaultSessionID
		}
		log.Debug("mcp/tool: ask", "session_id", sessionID, "question", req.Question)

		resp, err := asker.Ask(ctx, sessionID, req.Question)
		if err != nil {
			return nil, AskOutput{}, err
		}
		return nil, toAskOutput(resp), nil
	})
	return nil
}

func toAskOutput(resp *agent.Response) AskOutput {
	out := AskOutput{Answer: resp.Answer, Rows: resp.DebugInfo.SQLResultPreview}
	if resp.DebugInfo.GeneratedSQL != nil {
		out.SQL = *resp.DebugInfo.GeneratedSQL
	}
	if resp.ChartData != nil {
		out.ChartType = string(resp.ChartData.Type)
	}
	if resp.Error != nil {
		out.Error = *resp.Error
	}
	return out
}

type SchemaInput struct{}

type SchemaOutput struct {
	Schema string `json:"schema"`
}

func registerSchemaTool(log *slog.Logger, server *mcp.Server, schema agent.SchemaDescriber) error {
	in, err := jsonschema.For[SchemaInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create schema input schema: %w", err)
	}
	out, err := jsonschema.For[SchemaOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create schema output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "describe_schema",
		Description:  "Describe the tables, columns and sample rows the ask tool can query.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
		desc, err := schema.Describe(ctx)
		if err != nil {
			log.Error("mcp/tool: failed to describe schema", "error", err)
			return nil, SchemaOutput{}, fmt.Errorf("failed to describe schema: %w", err)
		}
		return nil, SchemaOutput{Schema: desc}, nil
	})
	return nil
}
