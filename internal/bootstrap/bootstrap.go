package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medassist/claim-processor/internal/config"
	"github.com/medassist/claim-processor/internal/core/classify"
	"github.com/medassist/claim-processor/internal/core/decide"
	"github.com/medassist/claim-processor/internal/core/extract"
	"github.com/medassist/claim-processor/internal/core/ports"
	"github.com/medassist/claim-processor/internal/core/usecase"
	"github.com/medassist/claim-processor/internal/core/validate"
	"github.com/medassist/claim-processor/internal/infrastructure/extractor/pdftext"
	"github.com/medassist/claim-processor/internal/infrastructure/llm/offline"
	"github.com/medassist/claim-processor/internal/infrastructure/llm/ollama"
	"github.com/medassist/claim-processor/internal/infrastructure/queue/nats"
	"github.com/medassist/claim-processor/internal/infrastructure/report/xlsx"
	"github.com/medassist/claim-processor/internal/infrastructure/repository/postgres"
	"github.com/medassist/claim-processor/internal/infrastructure/resilience"
	"github.com/medassist/claim-processor/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Repo     ports.ClaimRepository
	Queue    ports.MessageQueue
	Renderer ports.ReportRenderer

	Processor       *usecase.Processor
	Submitter       *usecase.Submitter
	StoredProcessor *usecase.StoredProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewClaimRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	runner := resilience.NewRunner(resilience.DefaultPolicy(), log)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, log, nats.Options{Runner: runner})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	generator := newGenerator(cfg, runner, log)
	texts := pdftext.New(log)

	classifier := classify.New(generator, log)
	extractors := []*extract.Extractor{
		extract.NewBill(generator, log),
		extract.NewDischarge(generator, log),
		extract.NewInsurance(generator, log),
	}
	validator := validate.New()
	engine := decide.New(decide.Rules{
		MaxDiscrepancies: cfg.MaxDiscrepancies,
		MinConfidence:    cfg.MinExtractionConfidence,
		MaxClaimAmount:   cfg.MaxClaimAmount,
	}, generator, log)

	processor := usecase.NewProcessor(classifier, extractors, validator, engine, texts, log)
	submitter := usecase.NewSubmitter(repo, storage, queue, log)
	storedProcessor := usecase.NewStoredProcessor(repo, storage, processor, log)

	return &App{
		Config: cfg,
		Log:    log,

		Repo:     repo,
		Queue:    queue,
		Renderer: xlsx.New(),

		Processor:       processor,
		Submitter:       submitter,
		StoredProcessor: storedProcessor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// newGenerator picks the model backend. Without a configured Ollama URL the
// pipeline runs purely on the deterministic classifiers and extractors.
func newGenerator(cfg config.Config, runner *resilience.Runner, log *slog.Logger) ports.TextGenerator {
	if cfg.OllamaURL == "" {
		log.Info("no model backend configured, running deterministic pipeline only")
		return offline.NewGenerator()
	}
	timeout := time.Duration(cfg.OllamaTimeoutSeconds) * time.Second
	return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, timeout, runner, log)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
