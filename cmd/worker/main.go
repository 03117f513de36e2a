package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/bootstrap"
	"github.com/hgottschalk/calaim-assistant/internal/config"
	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/observability/logging"
	"github.com/hgottschalk/calaim-assistant/internal/observability/metrics"
)

const serviceName = "calaim-worker"

const processTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "stream", cfg.NATSStream, "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobSubmitted(ctx, func(handlerCtx context.Context, jobID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		recordQueueLag(processCtx, app, workerMetrics, jobID)

		workerMetrics.StartJob()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, jobID)
		recordOutcome(processCtx, app, workerMetrics, jobID, time.Since(start), processErr)

		// A vanished job is not retryable; ack instead of redelivering forever.
		if domain.IsKind(processErr, domain.ErrJobNotFound) {
			logger.Warn("job not found, dropping delivery", "job_id", jobID)
			return nil
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func recordQueueLag(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, jobID string) {
	job, err := app.Store.GetByID(ctx, jobID)
	if err != nil {
		return
	}
	m.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
}

func recordOutcome(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, jobID string, elapsed time.Duration, processErr error) {
	status := domain.StatusFailed
	if job, err := app.Store.GetByID(ctx, jobID); err == nil {
		status = job.Status
	}
	m.FinishJob(serviceName, status, elapsed)

	if processErr == nil && status == domain.StatusCompleted {
		if result, err := app.Store.GetResult(ctx, jobID); err == nil {
			m.ObserveResult(serviceName, *result)
		}
	}
}
