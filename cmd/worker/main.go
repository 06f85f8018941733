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

	"github.com/medassist/claim-processor/internal/bootstrap"
	"github.com/medassist/claim-processor/internal/config"
	"github.com/medassist/claim-processor/internal/observability/logging"
	"github.com/medassist/claim-processor/internal/observability/metrics"
)

const serviceName = "claims-worker"

func main() {
	cfg := config.Load()
	log := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeClaimSubmitted(ctx, func(handlerCtx context.Context, claimID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.ProcessStarted()
		if claim, lookupErr := app.Repo.GetByID(processCtx, claimID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, claim.CreatedAt, start)
		}

		processErr := app.StoredProcessor.ProcessClaim(processCtx, claimID)
		status := "ok"
		if processErr != nil {
			status = "error"
		}
		workerMetrics.ProcessFinished(serviceName, status, time.Since(start))
		return processErr
	})
	if err != nil {
		log.Error("worker subscription failed", "error", err)
		os.Exit(1)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("worker metrics listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker metrics server failed", "error", err)
		}
	}()
	return server
}
