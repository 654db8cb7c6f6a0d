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

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/assistant"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/conversation"
	"github.com/querydesk/querydesk/internal/export"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/nlsql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/schema"
	s3store "github.com/querydesk/querydesk/internal/storage/s3"
	"github.com/querydesk/querydesk/internal/viz"
	"github.com/querydesk/querydesk/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("querydesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var executor *warehouse.Executor
	var schemaSource schema.Source
	if cfg.Warehouse.DSN != "" {
		db, err := warehouse.Open(context.Background(), warehouse.Options{
			Driver:          cfg.Warehouse.Driver,
			DSN:             cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open warehouse", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		executor = warehouse.NewExecutor(db, logger, cfg.Warehouse.QueryTimeout)
		schemaSource = warehouse.NewIntrospector(db, cfg.Schema.Schema)
	} else {
		logger.Warn("no warehouse dsn configured, data queries will use simulated results")
	}

	var objectStore *s3store.Store
	if cfg.Export.Enabled {
		store, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objectStore = store
	}

	schemaOpts := schema.CacheOptions{
		Source: schemaSource,
		Logger: logger,
		Path:   cfg.Schema.CachePath,
		TTL:    cfg.Schema.TTL,
	}
	if objectStore != nil {
		schemaOpts.Publish = objectStore
	}
	schemaCache := schema.NewCache(schemaOpts)

	var chatClient llm.Client
	var generator *nlsql.Generator
	if cfg.AI.Enabled {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize llm client", slog.Any("error", err))
			os.Exit(1)
		}
		chatClient = client
		generator, err = nlsql.NewGenerator(nlsql.GeneratorOptions{
			Client:      client,
			Schema:      schemaCache,
			Catalog:     cfg.Schema.Catalog,
			SchemaName:  cfg.Schema.Schema,
			Temperature: cfg.AI.SQLTemperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to initialize sql generator", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("ai disabled, natural-language querying is unavailable")
	}

	var exporter api.ExportService
	if objectStore != nil {
		service, err := export.NewService(objectStore, cfg.Export.Prefix, logger)
		if err != nil {
			logger.Error("failed to initialize export service", slog.Any("error", err))
			os.Exit(1)
		}
		exporter = service
	}

	conversations := conversation.NewStore(cfg.Conversation.MaxEntries, cfg.Conversation.ContextEntries)

	assistantOpts := assistant.Options{
		Chat:            chatClient,
		Conversations:   conversations,
		Schema:          schemaCache,
		Catalog:         cfg.Schema.Catalog,
		SchemaName:      cfg.Schema.Schema,
		ChatTemperature: cfg.AI.ChatTemperature,
		MaxTokens:       cfg.AI.MaxTokens,
		Logger:          logger,
	}
	if generator != nil {
		assistantOpts.Generator = generator
	}
	if executor != nil {
		assistantOpts.Executor = executor
	}
	if cfg.Viz.Enabled {
		assistantOpts.Charts = viz.NewRenderer(cfg.Viz.Width, cfg.Viz.Height, cfg.Viz.SampleRows)
	}

	readiness := api.CheckWarehouseDSN(cfg)
	if objectStore != nil {
		readiness = api.CombineReadinessChecks(readiness, api.CheckObjectStore(objectStore))
	}

	deps := api.Dependencies{
		Logger:            logger,
		Assistant:         assistant.New(assistantOpts),
		Schema:            schemaCache,
		Catalog:           cfg.Schema.Catalog,
		SchemaName:        cfg.Schema.Schema,
		Exporter:          exporter,
		Conversations:     conversations,
		Readiness:         readiness,
		DependencyTimeout: time.Second,
	}
	if executor != nil {
		deps.Executor = executor
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
