package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"pnr_parser/internal/api"
	"pnr_parser/internal/metrics"
	"pnr_parser/internal/storage"
)

// newMetrics registers the parse metrics plus the Go runtime collectors on a
// fresh registry.
func newMetrics(namespace string) (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(namespace, reg), reg
}

// openStore opens the configured backend, logging which one is in use.
func openStore(ctx context.Context, a *app) (storage.Store, error) {
	store, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if store == nil {
		a.logger.Info("storage disabled")
	} else {
		a.logger.Info("storage ready", "backend", a.cfg.Storage.Backend)
	}
	return store, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCmd(a *app) *cobra.Command {
	var (
		port        int
		authEnabled bool
		apiKeys     []string
		backend     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			if cmd.Flags().Changed("auth") {
				a.cfg.AuthEnabled = authEnabled
			}
			if cmd.Flags().Changed("api-keys") {
				a.cfg.APIKeys = apiKeys
			}
			if cmd.Flags().Changed("storage") {
				a.cfg.Storage.Backend = backend
			}
			if a.cfg.AuthEnabled && len(a.cfg.APIKeys) == 0 {
				return fmt.Errorf("authentication enabled but no API keys configured")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			store, err := openStore(ctx, a)
			if err != nil {
				return err
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			m, reg := newMetrics(a.cfg.MetricsNamespace)
			opts := []api.Option{
				api.WithMetrics(m, reg),
				api.WithLogger(a.logger.With("component", "api")),
			}
			if store != nil {
				opts = append(opts, api.WithStore(store))
			}

			server := api.NewServer(api.Config{
				Port:         a.cfg.Port,
				ReadTimeout:  a.cfg.ReadTimeout,
				WriteTimeout: a.cfg.WriteTimeout,
				AuthEnabled:  a.cfg.AuthEnabled,
				APIKeys:      a.cfg.APIKeys,
				CORSOrigins:  a.cfg.CORSOrigins,
			}, opts...)

			return server.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (env: PNR_PORT)")
	cmd.Flags().BoolVar(&authEnabled, "auth", false, "Enable API key authentication (env: PNR_AUTH)")
	cmd.Flags().StringSliceVar(&apiKeys, "api-keys", nil, "Comma-separated list of valid API keys (env: PNR_API_KEYS)")
	cmd.Flags().StringVar(&backend, "storage", "", "Storage backend: sqlite, postgres, clickhouse or none (env: PNR_STORAGE)")

	return cmd
}
