// Package bootstrap provides dependency initialization for the podbrief API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podbrief/podbrief-api/internal/ai"
	"github.com/podbrief/podbrief-api/internal/ai/gemini"
	"github.com/podbrief/podbrief-api/internal/ai/openai"
	"github.com/podbrief/podbrief-api/internal/cache"
	"github.com/podbrief/podbrief-api/internal/config"
	"github.com/podbrief/podbrief-api/internal/fetch"
	"github.com/podbrief/podbrief-api/internal/pipeline"
	"github.com/podbrief/podbrief-api/internal/record"
	"github.com/podbrief/podbrief-api/internal/storage"
	"github.com/podbrief/podbrief-api/internal/transcribe"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *pipeline.Orchestrator

	closers []func() error
}

// Close releases held resources, such as database connection pools.
func (d *Dependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize blob storage
	blobs, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the metadata store
	meta, err := initMetadata(ctx, cfg, blobs, logger, deps)
	if err != nil {
		return nil, err
	}

	// Initialize the OpenAI client; transcription and speech synthesis
	// always go through it.
	openaiClient, err := openai.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	summarizer, err := initSummarizer(cfg, openaiClient, logger)
	if err != nil {
		return nil, err
	}

	transcriber := transcribe.NewBounded(openaiClient, cfg.TranscribeOptions(), logger)
	checker := cache.NewChecker(blobs, meta, logger)
	downloader := fetch.NewDownloader()

	deps.Pipeline = pipeline.New(
		blobs,
		meta,
		checker,
		downloader,
		transcriber,
		summarizer,
		openaiClient,
		logger,
		pipeline.WithChunkOpts(cfg.ChunkOpts()),
		pipeline.WithWorkRoot(cfg.WorkDir),
	)

	return deps, nil
}

// initStorage creates the appropriate blob storage backend based on
// configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("root", cfg.StorageRoot),
	)
	return localStore, nil
}

// initMetadata creates the metadata store: Postgres when DATABASE_URL is
// set, otherwise JSON documents in blob storage.
func initMetadata(ctx context.Context, cfg *config.Config, blobs storage.Store, logger *slog.Logger, deps *Dependencies) (record.MetadataStore, error) {
	if cfg.PostgresEnabled() {
		pg, err := record.NewPostgresMetadataStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create Postgres metadata store: %w", err)
		}
		deps.closers = append(deps.closers, pg.Close)
		logger.Info("Postgres metadata store configured")
		return pg, nil
	}

	logger.Info("blob metadata store configured")
	return record.NewBlobMetadataStore(blobs), nil
}

// initSummarizer selects the summarization provider.
func initSummarizer(cfg *config.Config, openaiClient *openai.Client, logger *slog.Logger) (ai.Summarizer, error) {
	if cfg.SummaryProvider == config.ProviderGemini {
		g, err := gemini.New(cfg.GeminiAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("create Gemini summarizer: %w", err)
		}
		logger.Info("summarization provider configured", slog.String("provider", config.ProviderGemini))
		return g, nil
	}

	logger.Info("summarization provider configured", slog.String("provider", config.ProviderOpenAI))
	return openaiClient, nil
}
