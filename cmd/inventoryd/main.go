// Command inventoryd runs the asset allocation engine: the HTTP API, the
// export worker, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inventorycore/internal/adapters/loans"
	"inventorycore/internal/core"
	"inventorycore/internal/infra/blob"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("inventoryd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return err
	}

	blobStore, err := blob.Open(ctx)
	if err != nil {
		return err
	}

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(nil)),
	)

	worker := loans.NewWorker(svc, blobStore, auditLog{logger: logger})
	worker.Start()

	handler := loans.NewHandler(svc)
	handler.Exports = worker
	handler.Logger = logger

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	addr := os.Getenv("INVENTORYCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "storage", os.Getenv("INVENTORYCORE_STORAGE_DRIVER"))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// auditLog routes export audit entries into the structured log.
type auditLog struct {
	logger *slog.Logger
}

func (a auditLog) Record(_ context.Context, entry loans.AuditEntry) {
	a.logger.Info("export audit",
		"id", entry.ID,
		"action", entry.Action,
		"actor", entry.Actor,
		"status", string(entry.Status),
		"reason", entry.Reason,
		"note", entry.Note,
	)
}
