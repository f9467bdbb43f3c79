package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chipchip/marketing-agent/pkg/config"
	"github.com/chipchip/marketing-agent/pkg/logger"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run() ExitCode {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "agentctl",
		Short:   "Ask business questions about ChipChip data in plain language.",
		Version: fmt.Sprintf("%s (commit: %s, date: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	var envFile string
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: .env if present)")

	rootCmd.AddCommand(
		NewServeCmd().Command(),
		NewAskCmd().Command(),
		NewSchemaCmd().Command(),
		NewMCPCmd().Command(),
	)
	return rootCmd
}

// setup reads the global flags and configuration shared by all commands.
// Logs go to w so that commands owning stdout can move them to stderr.
func setup(cmd *cobra.Command, w io.Writer) (*slog.Logger, *config.Config, error) {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	envFile, err := cmd.Root().PersistentFlags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}

	log := logger.New(w, verbose)
	slog.SetDefault(log)

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return log, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
