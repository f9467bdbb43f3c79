package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/chipchip/marketing-agent/api"
	"github.com/chipchip/marketing-agent/api/handlers"
	"github.com/chipchip/marketing-agent/api/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ServeCmd struct{}

func NewServeCmd() *ServeCmd {
	return &ServeCmd{}
}

func (c *ServeCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := setup(cmd, os.Stdout)
			if err != nil {
				return err
			}
			listenAddr, err := cmd.Flags().GetString("listen-addr")
			if err != nil {
				return fmt.Errorf("failed to get listen-addr flag: %w", err)
			}
			if listenAddr == "" {
				listenAddr = cfg.ListenAddr
			}
			metricsAddr, err := cmd.Flags().GetString("metrics-addr")
			if err != nil {
				return fmt.Errorf("failed to get metrics-addr flag: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			if metricsAddr != "" {
				metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
				metricsListener, err := net.Listen("tcp", metricsAddr)
				if err != nil {
					return fmt.Errorf("failed to listen on metrics address: %w", err)
				}
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				metricsServer := &http.Server{Handler: mux}
				go func() {
					log.Info("metrics: server listening", "address", metricsListener.Addr().String())
					if err := metricsServer.Serve(metricsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics: server failed", "error", err)
					}
				}()
				defer metricsServer.Close()
			}

			// Without an agent the API still serves and answers 503 on questions.
			var asker handlers.Asker
			d, err := newAgentDeps(ctx, log, cfg)
			if err != nil {
				log.Error("agent: failed to initialize, questions will be rejected", "error", err)
			} else {
				defer d.Close()
				asker = d.agent
			}

			server, err := api.NewServer(api.Config{
				Logger:         log,
				Agent:          asker,
				AppName:        cfg.AppName,
				APIPrefix:      cfg.APIPrefix,
				AllowedOrigins: cfg.CORSAllowedOrigins,
			})
			if err != nil {
				return fmt.Errorf("failed to create api server: %w", err)
			}

			listener, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
			}
			return server.Serve(ctx, listener)
		},
	}

	bindServeFlags(cmd.Flags())

	return cmd
}

func bindServeFlags(flags *pflag.FlagSet) {
	flags.String("listen-addr", "", "HTTP listen address (default: LISTEN_ADDR or :8000)")
	flags.String("metrics-addr", "", "Prometheus metrics listen address (disabled when empty)")
}
