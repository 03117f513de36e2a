package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/hgottschalk/calaim-assistant/internal/adapters/http"
	"github.com/hgottschalk/calaim-assistant/internal/bootstrap"
	"github.com/hgottschalk/calaim-assistant/internal/config"
	"github.com/hgottschalk/calaim-assistant/internal/observability/logging"
	"github.com/hgottschalk/calaim-assistant/internal/observability/metrics"
)

const serviceName = "calaim-api"

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
	app.StartInlineWorker(ctx)

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		app.SubmitUC,
		app.ReadUC,
		app.AnalyzeUC,
		httpMetrics,
		logger,
		serviceName,
		httpadapter.TrafficPolicy{
			RateLimitRPS:   cfg.APIRateLimitRPS,
			RateLimitBurst: cfg.APIRateLimitBurst,
			MaxConcurrent:  cfg.APIMaxConcurrent,
			OverloadWait:   time.Duration(cfg.APIOverloadWaitMS) * time.Millisecond,
		},
	)
	router.Dependencies = map[string]string{
		"jobStore":    cfg.JobStoreDriver,
		"queue":       cfg.QueueDriver,
		"extraction":  cfg.ExtractionMode,
		"recognition": cfg.RecognitionMode,
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
