// Package bootstrap wires adapters to use cases once, from configuration.
// Backend selection (mock vs real extraction and recognition, postgres vs
// memory store, nats vs in-process queue) happens here and nowhere else.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/config"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
	"github.com/hgottschalk/calaim-assistant/internal/core/usecase"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/extraction/documentai"
	localextract "github.com/hgottschalk/calaim-assistant/internal/infrastructure/extraction/local"
	mockextract "github.com/hgottschalk/calaim-assistant/internal/infrastructure/extraction/mock"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/notifier/webhook"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/queue/inproc"
	natsqueue "github.com/hgottschalk/calaim-assistant/internal/infrastructure/queue/nats"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/recognition/healthcarenl"
	mockrecognize "github.com/hgottschalk/calaim-assistant/internal/infrastructure/recognition/mock"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/repository/memory"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/repository/postgres"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/resilience"
	"github.com/hgottschalk/calaim-assistant/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store ports.JobStore
	Queue ports.MessageQueue

	SubmitUC  *usecase.SubmitJobUseCase
	ProcessUC *usecase.ProcessJobUseCase
	ReadUC    *usecase.ReadJobUseCase
	AnalyzeUC *usecase.AnalyzeTextUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, closeStore, err := newJobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	queue, closeQueue, err := newQueue(cfg, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	extractor, err := newExtractor(cfg, blobs)
	if err != nil {
		closeQueue()
		closeStore()
		return nil, err
	}
	recognizer := newRecognizer(cfg)

	notifier := webhook.New(time.Duration(cfg.CallbackTimeoutSeconds)*time.Second, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Queue:  queue,

		SubmitUC:  usecase.NewSubmitJobUseCase(store, blobs, queue),
		ProcessUC: usecase.NewProcessJobUseCase(store, extractor, recognizer, notifier, cfg.ConfidenceThreshold, logger),
		ReadUC:    usecase.NewReadJobUseCase(store),
		AnalyzeUC: usecase.NewAnalyzeTextUseCase(recognizer, cfg.ConfidenceThreshold),

		closeFn: func() {
			closeQueue()
			closeStore()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// StartInlineWorker drives job processing from a goroutine inside this
// process. The in-process queue never reaches a separate worker binary, so
// the API must consume its own submissions; broker-backed drivers ship jobs
// to cmd/worker instead and this is a no-op. The goroutine exits when ctx is
// cancelled.
func (a *App) StartInlineWorker(ctx context.Context) {
	if a.Config.QueueDriver != "inproc" {
		return
	}
	go func() {
		err := a.Queue.SubscribeJobSubmitted(ctx, func(ctx context.Context, jobID string) error {
			return a.ProcessUC.ProcessByID(ctx, jobID)
		})
		if err != nil {
			a.Logger.Error("inline worker stopped", "error", err)
		}
	}()
}

func newJobStore(ctx context.Context, cfg config.Config) (ports.JobStore, func(), error) {
	switch cfg.JobStoreDriver {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewJobRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	case "memory":
		return memory.NewJobStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown job store driver %q", cfg.JobStoreDriver)
	}
}

func newQueue(cfg config.Config, logger *slog.Logger) (ports.MessageQueue, func(), error) {
	switch cfg.QueueDriver {
	case "nats":
		executor := resilience.NewExecutor(resilience.Policy{
			MaxAttempts:    cfg.RetryMaxAttempts,
			BreakerEnabled: cfg.BreakerEnabled,
		}, logger)
		queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSStream, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init message queue: %w", err)
		}
		return queue, queue.Close, nil
	case "inproc":
		queue := inproc.New(logger)
		return queue, queue.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

func newExtractor(cfg config.Config, blobs ports.BlobStore) (ports.TextExtractor, error) {
	switch cfg.ExtractionMode {
	case "mock":
		return mockextract.New(), nil
	case "documentai":
		if cfg.DocumentAIEndpoint == "" {
			return nil, fmt.Errorf("extraction mode documentai requires DOCUMENT_AI_ENDPOINT")
		}
		return documentai.New(blobs, cfg.DocumentAIEndpoint, cfg.DocumentAIProcessorID), nil
	case "local":
		return localextract.New(blobs), nil
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", cfg.ExtractionMode)
	}
}

func newRecognizer(cfg config.Config) ports.EntityRecognizer {
	if cfg.RecognitionMode == "healthcare" && cfg.HealthcareNLEndpoint != "" {
		return healthcarenl.New(cfg.HealthcareNLEndpoint, cfg.MinSalience)
	}
	return mockrecognize.New()
}
