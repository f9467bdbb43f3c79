package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/chipchip/marketing-agent/pkg/agent"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type AskCmd struct{}

func NewAskCmd() *AskCmd {
	return &AskCmd{}
}

func (c *AskCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}
			sessionID, err := cmd.Flags().GetString("session-id")
			if err != nil {
				return fmt.Errorf("failed to get session-id flag: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			d, err := newAgentDeps(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			resp, err := d.agent.Ask(ctx, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().String("session-id", "cli", "conversation id; reuse it to ask follow-up questions")

	return cmd
}

func printResponse(w io.Writer, resp *agent.Response) {
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	if resp.Error != nil {
		fmt.Fprintf(w, "error: %s\n", *resp.Error)
	}
	if resp.DebugInfo.GeneratedSQL != nil {
		fmt.Fprintf(w, "sql:   %s\n", *resp.DebugInfo.GeneratedSQL)
	}
	if resp.ChartData != nil {
		fmt.Fprintf(w, "chart: %s (%s)\n", resp.ChartData.Type, resp.ChartData.Title)
	}

	records, ok := resp.DebugInfo.SQLResultPreview.([]map[string]any)
	if !ok {
		if msg, isText := resp.DebugInfo.SQLResultPreview.(string); isText {
			fmt.Fprintf(w, "\n%s\n", msg)
		}
		return
	}
	if len(records) == 0 {
		return
	}
	printPreview(w, records)
}

func printPreview(w io.Writer, records []map[string]any) {
	columns := slices.Sorted(maps.Keys(records[0]))

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = fmt.Sprint(rec[col])
		}
		table.Append(row)
	}
	table.Render()
}
