package main

import (
	"fmt"
	"os"

	"github.com/chipchip/marketing-agent/pkg/mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

type MCPCmd struct{}

func NewMCPCmd() *MCPCmd {
	return &MCPCmd{}
}

func (c *MCPCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the agent as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol.
			log, cfg, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			d, err := newAgentDeps(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			server, err := mcpserver.New(mcpserver.Config{
				Logger:  log,
				Agent:   d.agent,
				Schema:  d.schema,
				Version: version,
			})
			if err != nil {
				return fmt.Errorf("failed to create mcp server: %w", err)
			}
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
