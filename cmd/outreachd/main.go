// Package main wires together the outreach pipeline service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/api"
	"github.com/aguldbeck/ai-outreach-agent/internal/clock/system"
	"github.com/aguldbeck/ai-outreach-agent/internal/config"
	"github.com/aguldbeck/ai-outreach-agent/internal/dispatcher"
	"github.com/aguldbeck/ai-outreach-agent/internal/id/uuid"
	"github.com/aguldbeck/ai-outreach-agent/internal/llm"
	"github.com/aguldbeck/ai-outreach-agent/internal/logging"
	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
	"github.com/aguldbeck/ai-outreach-agent/internal/pipeline"
	pubsubpublisher "github.com/aguldbeck/ai-outreach-agent/internal/publisher/pubsub"
	queuememory "github.com/aguldbeck/ai-outreach-agent/internal/queue/memory"
	"github.com/aguldbeck/ai-outreach-agent/internal/recovery"
	"github.com/aguldbeck/ai-outreach-agent/internal/repository/failover"
	filerepo "github.com/aguldbeck/ai-outreach-agent/internal/repository/file"
	"github.com/aguldbeck/ai-outreach-agent/internal/repository/postgres"
	"github.com/aguldbeck/ai-outreach-agent/internal/retry"
	"github.com/aguldbeck/ai-outreach-agent/internal/storage/gcs"
	"github.com/aguldbeck/ai-outreach-agent/internal/storage/local"
	"github.com/aguldbeck/ai-outreach-agent/internal/worker"
)

// Checkpoints reported after each pipeline stage completes.
const (
	parseCheckpoint     = 25
	enrichCheckpoint    = 40
	scrapeCheckpoint    = 60
	summarizeCheckpoint = 75
	generateCheckpoint  = 90
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// A missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	clock := system.New()
	idGen := uuid.New()

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	jobs, degraded, err := newJobRepository(ctx, cfg, clock, logger)
	if err != nil {
		logger.Fatal("job repository init failed", zap.Error(err))
	}

	queue := queuememory.NewQueue(cfg.Worker.QueueDepth)

	var publisher outreach.Publisher
	if cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("pubsub client close failed", zap.Error(closeErr))
			}
		}()
		publisher, err = pubsubpublisher.New(client)
		if err != nil {
			logger.Fatal("pubsub publisher init failed", zap.Error(err))
		}
	}

	generator := newGenerator(cfg, logger)
	stages := newStages(cfg, generator, logger)

	claims := dispatcher.NewClaimTable()
	workerCfg := worker.Config{
		Topic:             cfg.PubSub.TopicName,
		StageTimeout:      cfg.StageTimeout(),
		SaveIntermediates: cfg.Worker.SaveIntermediates,
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Worker.Count; i++ {
		workers = append(workers, worker.New(
			queue,
			jobs,
			blobStore,
			publisher,
			stages,
			claims,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	// Jobs left mid-flight by a previous process must be failed before any
	// worker starts claiming, so clients see a clean terminal state.
	sweeper := recovery.New(jobs, 0, logger.Named("recovery"))
	recovered, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Fatal("recovery sweep failed", zap.Error(err))
	}
	if recovered > 0 {
		logger.Info("recovered stale jobs", zap.Int("count", recovered))
	}

	retries := retry.New(jobs, queue, cfg.Auth.AdminToken, 0, logger.Named("retry"))
	apiServer := api.NewServer(jobs, blobStore, dispatch, retries, idGen, clock, degraded, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

func newBlobStore(ctx context.Context, cfg config.Config) (outreach.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	default:
		return local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
	}
}

// newJobRepository returns the job store and, when a Postgres primary is
// paired with the file fallback, a probe for the degraded state.
func newJobRepository(ctx context.Context, cfg config.Config, clock outreach.Clock, logger *zap.Logger) (outreach.JobRepository, func() bool, error) {
	fallback, err := filerepo.New(filerepo.Config{Path: cfg.Storage.FallbackPath}, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("file repository: %w", err)
	}
	if cfg.DB.DSN == "" {
		logger.Info("db.dsn not set, using file-backed job store", zap.String("path", cfg.Storage.FallbackPath))
		return fallback, nil, nil
	}
	primary, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: int32(cfg.DB.MaxConns),
		MinConns: int32(cfg.DB.MinConns),
	}, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres repository: %w", err)
	}
	pair := failover.New(primary, fallback, logger.Named("failover"))
	return pair, pair.Degraded, nil
}

func newGenerator(cfg config.Config, logger *zap.Logger) outreach.TextGenerator {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("openai.api_key not set, using canned text generator")
		return llm.NewCannedGenerator()
	}
	generator, err := llm.NewOpenAIGenerator(llm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		logger.Warn("openai generator init failed, using canned text generator", zap.Error(err))
		return llm.NewCannedGenerator()
	}
	return generator
}

func newStages(cfg config.Config, generator outreach.TextGenerator, logger *zap.Logger) []outreach.Stage {
	searchTimeout := time.Duration(cfg.Search.TimeoutSec) * time.Second
	finder := pipeline.NewDuckDuckGoFinder(pipeline.DuckDuckGoConfig{
		UserAgent: cfg.Search.UserAgent,
		Timeout:   searchTimeout,
		MinDelay:  time.Duration(cfg.Search.MinDelayMs) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.Search.MaxDelayMs) * time.Millisecond,
	})
	reader := pipeline.NewReaderProxyClient(pipeline.ReaderProxyConfig{
		Prefix:    cfg.Search.ReaderProxyPrefix,
		UserAgent: cfg.Search.UserAgent,
		Timeout:   searchTimeout,
	})
	messaging := pipeline.Messaging{
		Positioning:  cfg.Messaging.Positioning,
		CaseStudies:  cfg.Messaging.CaseStudies,
		Tone:         cfg.Messaging.Tone,
		PrimaryCTA:   cfg.Messaging.PrimaryCTA,
		SecondaryCTA: cfg.Messaging.SecondaryCTA,
	}
	return []outreach.Stage{
		pipeline.NewParseStage(parseCheckpoint),
		pipeline.NewEnrichStage(finder, enrichCheckpoint, logger.Named("enrich")),
		pipeline.NewScrapeStage(reader, scrapeCheckpoint, logger.Named("scrape")),
		pipeline.NewSummarizeStage(generator, summarizeCheckpoint, logger.Named("summarize")),
		pipeline.NewGenerateStage(generator, messaging, generateCheckpoint, logger.Named("generate")),
	}
}
