package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/infrastructure/extraction"
	"NewsDigest/internal/infrastructure/fetch"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/source"
	"NewsDigest/internal/taxonomy"
	"NewsDigest/internal/usecase"
)

// Stores groups every persistence port the use cases need; a single Memory
// instance or the Postgres adapters satisfy it.
type Stores struct {
	Items      ports.ItemRepository
	Vocabulary ports.VocabularyStore
	TagLog     ports.RawTagLog
	Cursors    ports.CursorStore
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	digest    *usecase.Digest
	review    *usecase.Review
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance. With an empty database DSN all
// state lives in process memory.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	stores, err := openStores(ctx, cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	registry := source.NewRegistry()
	registry.Register(fetch.NewHackerNewsFetcher(nil))
	contentSource := fetch.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	var extractor ports.Extractor
	if cfg.Extraction.APIKey != "" {
		extractor = extraction.WithFallback(
			extraction.NewDiffBotClient(cfg.Extraction),
			extraction.NewHTMLExtractor(nil),
		)
	} else {
		extractor = extraction.NewHTMLExtractor(nil)
	}

	var tagModel ports.TagModel
	if cfg.ChatGPT.APIKey != "" {
		tagModel = llm.NewChatGPTClient(cfg.ChatGPT, baseLogger.With("component", "chatgpt"))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     contentSource,
		Repository: stores.Items,
		Vocabulary: stores.Vocabulary,
		Normalizer: taxonomy.NewNormalizer(stores.TagLog, baseLogger.With("component", "normalizer")),
		Extractor:  extractor,
		TagModel:   tagModel,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	var notifier ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram)
	}

	digest := usecase.NewDigest(usecase.DigestDeps{
		Repository:   stores.Items,
		Notifier:     notifier,
		RelevantTags: cfg.Taxonomy.RelevantTags,
		MinScore:     cfg.Taxonomy.MinTagScore,
		Window:       24 * time.Hour,
		Logger:       baseLogger.With("component", "digest"),
	})

	backfill := taxonomy.NewBackfill(stores.Items, stores.Cursors, baseLogger.With("component", "backfill"))
	backfill.SetConcurrency(cfg.Taxonomy.BackfillConcurrency)

	review := usecase.NewReview(usecase.ReviewDeps{
		Vocabulary: stores.Vocabulary,
		TagLog:     stores.TagLog,
		Reviewer: taxonomy.NewReviewer(taxonomy.ReviewerConfig{
			Synonyms:            cfg.Taxonomy.Synonyms,
			Axes:                axisTable(cfg.Taxonomy.AxisTerms),
			Stoplist:            cfg.Taxonomy.Stoplist,
			SimilarityThreshold: cfg.Taxonomy.SimilarityThreshold,
		}),
		Validator: taxonomy.NewValidator(axisTable(cfg.Taxonomy.AxisTerms)),
		Backfill:  backfill,
		Logger:    baseLogger.With("component", "review"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		digest:    digest,
		review:    review,
		scheduler: usecase.NewScheduler(driver, pipeline, digest, baseLogger.With("component", "scheduler")),
	}, nil
}

// Run starts the recurring ingestion job and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// RunOnce performs a single ingestion-and-digest pass.
func (a *Application) RunOnce(ctx context.Context) error {
	if _, err := a.pipeline.Run(ctx); err != nil {
		return err
	}
	return a.digest.Run(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

// Review exposes the taxonomy review workflow for the admin command.
func (a *Application) Review() *usecase.Review {
	return a.review
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (Stores, error) {
	if cfg.Database.DSN == "" {
		logger.Info("no database configured, using in-memory stores")
		mem := storage.NewMemory()
		return Stores{Items: mem, Vocabulary: mem, TagLog: mem, Cursors: mem}, nil
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return Stores{}, fmt.Errorf("open database: %w", err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		return Stores{}, fmt.Errorf("init schema: %w", err)
	}

	return Stores{
		Items:      storage.NewPostgresItemRepository(db),
		Vocabulary: storage.NewPostgresVocabularyStore(db),
		TagLog:     storage.NewPostgresRawTagLog(db),
		Cursors:    storage.NewPostgresCursorStore(db),
	}, nil
}

func axisTable(terms map[string][]string) *taxonomy.AxisTable {
	if len(terms) == 0 {
		return nil
	}
	byAxis := make(map[taxonomy.Axis][]string, len(terms))
	for axis, list := range terms {
		byAxis[taxonomy.Axis(axis)] = list
	}
	return taxonomy.NewAxisTable(byAxis)
}
