package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pnr_parser/internal/ingest"
)

func workerCmd(a *app) *cobra.Command {
	var (
		natsURL     string
		backend     string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume OCR submissions from NATS and publish parse results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("nats-url") {
				a.cfg.NATSURL = natsURL
			}
			if cmd.Flags().Changed("storage") {
				a.cfg.Storage.Backend = backend
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
			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server failed", "error", err)
					}
				}()
				defer func() { _ = srv.Close() }()
			}

			w := ingest.NewWorker(ingest.Config{
				URL:           a.cfg.NATSURL,
				InputSubject:  a.cfg.InputSubject,
				OutputSubject: a.cfg.OutputSubject,
				QueueGroup:    a.cfg.QueueGroup,
				StoreTimeout:  a.cfg.RequestTimeout,
			}, store, m, a.logger.With("component", "worker"))

			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (env: NATS_URL)")
	cmd.Flags().StringVar(&backend, "storage", "", "Storage backend: sqlite, postgres, clickhouse or none (env: PNR_STORAGE)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9102")

	return cmd
}
