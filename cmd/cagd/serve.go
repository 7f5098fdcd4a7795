package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/tracing"
)

// serveCmd starts the long-running context engine daemon
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the context engine daemon",
		Long: `Run the context engine as a long-lived process.

The daemon keeps the pipeline services warm, runs the maintenance
scheduler (cache cleanup, memory and global memory maintenance, metrics
pruning, lock sweeping) and exposes /metrics and /healthz on the
configured address. Conversation processing happens through the same
services the one-shot commands use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes the engine, the scheduler and the HTTP endpoint,
// then blocks until a signal or a server error.
func runServer(ctx context.Context) error {
	log.Info().
		Str("data_dir", cfg.Storage.DataDir).
		Str("kv_backend", cfg.Storage.KVBackend).
		Str("addr", cfg.Addr()).
		Bool("remote_embeddings", cfg.IsEmbeddingConfigured()).
		Msg("starting context engine")

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer("cagd")
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Warn().Err(err).Msg("error shutting down tracer")
				}
			}()
			log.Info().Msg("tracing initialized")
		}
	}

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	registerMaintenanceJobs(e)
	e.maintenance.Start(ctx)
	defer e.maintenance.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("metrics endpoint listening")
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Info().Msg("server stopped")
		return nil
	}
}
