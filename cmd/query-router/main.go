// cmd/query-router/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"query-router/internal/common/config"
	"query-router/internal/common/database"
	"query-router/internal/common/logger"
	"query-router/internal/common/observability"
	"query-router/internal/pipeline"
	llmfallback "query-router/internal/workers/ai-conversation/llm-fallback"
	normalizeoutput "query-router/internal/workers/ai-conversation/normalize-output"
	queryelasticsearch "query-router/internal/workers/data-access/query-elasticsearch"
	querypostgresql "query-router/internal/workers/data-access/query-postgresql"
	buildresponse "query-router/internal/workers/infrastructure/build-response"
	refreshsnapshots "query-router/internal/workers/infrastructure/refresh-snapshots"
	extractparameters "query-router/internal/workers/resolution/extract-parameters"
	resolveentity "query-router/internal/workers/resolution/resolve-entity"
	resolveperiod "query-router/internal/workers/resolution/resolve-period"
	selecttemplate "query-router/internal/workers/routing/select-template"
	validateparameters "query-router/internal/workers/routing/validate-parameters"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// stageTimeout reads workers.<taskType>.timeout, falling back to def.
func stageTimeout(cfg *config.Config, taskType string, def time.Duration) time.Duration {
	if _, ok := cfg.Workers[taskType]; !ok {
		return def
	}
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query router...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch; announcement search is disabled without it ---
	var search *queryelasticsearch.Handler
	if config.IsWorkerEnabled(cfg, queryelasticsearch.TaskType) {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Error("elasticsearch unavailable, announcement search disabled", zap.Error(err))
		} else {
			search = queryelasticsearch.NewHandler(&queryelasticsearch.Config{
				Timeout: stageTimeout(cfg, queryelasticsearch.TaskType, 10*time.Second),
				Index:   cfg.Database.Elasticsearch.AnnouncementIndex,
				MaxSize: cfg.Pipeline.MaxLimit,
			}, esClient.Client, log)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	snapshotTTL := config.GetDuration(cfg.Database.Redis.SnapshotTTL)

	// --- Resolvers and their snapshot loaders ---
	entityLoader := resolveentity.NewLoader(pg.DB, redis, snapshotTTL, log)
	entityHandler, err := resolveentity.NewHandler(&resolveentity.Config{
		Timeout:        stageTimeout(cfg, resolveentity.TaskType, 10*time.Second),
		CacheTTL:       snapshotTTL,
		ShortNamesPath: cfg.Entities.ShortNamesPath,
	}, resolveentity.NewResolver(nil), entityLoader, log)
	if err != nil {
		zapLog.Fatal("short-name table failed to load", zap.Error(err))
	}

	periodConfig := resolveperiod.LoadConfig()
	periodConfig.LookbackDays = cfg.Pipeline.LookbackDays
	periodConfig.CacheTTL = config.GetDuration(cfg.Pipeline.CacheTTL)
	calendarLoader := resolveperiod.NewLoader(pg.DB, redis, snapshotTTL, periodConfig.HistoryDays, log)
	periodResolver := resolveperiod.NewResolver(periodConfig, nil, calendarLoader, calendarLoader, log)
	periodHandler := resolveperiod.NewHandler(periodConfig, periodResolver, calendarLoader, log)

	refresher := refreshsnapshots.NewHandler(&refreshsnapshots.Config{
		Interval: config.GetDuration(cfg.Pipeline.RefreshInterval),
		Timeout:  stageTimeout(cfg, refreshsnapshots.TaskType, 30*time.Second),
	}, log).
		Register("entities", entityHandler).
		Register("calendar", periodHandler)
	if err := refresher.Start(ctx); err != nil {
		zapLog.Error("initial snapshot refresh failed, serving not ready", zap.Error(err))
	}
	defer refresher.Stop()

	// --- Pipeline stages ---
	catalog, err := selecttemplate.LoadCatalog(cfg.Template.RegistryPath)
	if err != nil {
		zapLog.Fatal("template registry failed to load", zap.Error(err))
	}

	fallbackConfig := &llmfallback.Config{
		GenAIBaseURL:      cfg.APIs.GenAI.BaseURL,
		APIKey:            cfg.APIs.GenAI.APIKey,
		Timeout:           config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries:        cfg.APIs.GenAI.MaxRetries,
		MaxTokens:         cfg.APIs.GenAI.MaxTokens,
		Temperature:       cfg.APIs.GenAI.Temperature,
		RequestsPerSecond: cfg.APIs.GenAI.RequestsPerSecond,
		Burst:             cfg.APIs.GenAI.Burst,
		IncludeSteps:      cfg.Pipeline.IncludeToolSteps,
	}

	stages := pipeline.Stages{
		Selector: selecttemplate.NewHandler(&selecttemplate.Config{
			RegistryPath: cfg.Template.RegistryPath,
			Timeout:      stageTimeout(cfg, selecttemplate.TaskType, time.Second),
		}, catalog, log),
		Extractor: extractparameters.NewHandler(&extractparameters.Config{
			Timeout:      stageTimeout(cfg, extractparameters.TaskType, 5*time.Second),
			DefaultLimit: cfg.Pipeline.DefaultLimit,
		}, entityHandler.Resolver(), periodResolver, log),
		Validator: validateparameters.NewHandler(&validateparameters.Config{
			Timeout:  stageTimeout(cfg, validateparameters.TaskType, time.Second),
			MinLimit: 1,
			MaxLimit: cfg.Pipeline.MaxLimit,
		}, log),
		Postgres: querypostgresql.NewHandler(&querypostgresql.Config{
			Timeout: stageTimeout(cfg, querypostgresql.TaskType, 10*time.Second),
		}, pg.DB, log),
		Search:   search,
		Fallback: llmfallback.NewHandler(fallbackConfig, log),
		Normalizer: normalizeoutput.NewHandler(&normalizeoutput.Config{
			MinVerbatimLength: cfg.Pipeline.MinVerbatimLength,
			IncludeSteps:      cfg.Pipeline.IncludeToolSteps,
			PreviewLength:     200,
		}, log),
		Envelope: buildresponse.NewHandler(&buildresponse.Config{
			AppVersion: cfg.App.Version,
			Timeout:    time.Second,
		}, log),
	}
	controller := pipeline.NewController(&pipeline.Config{
		RequestTimeout: config.GetDuration(cfg.Pipeline.RequestTimeout),
	}, stages, obs, log)

	zapLog.Info("Pipeline ready", zap.Int("templates", len(catalog.Templates())))

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newMux(&server{questions: controller, refresher: refresher, log: zapLog}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Query router stopped")
}

