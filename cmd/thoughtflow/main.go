// thoughtflow processes submitted thoughts through a five-stage LLM
// pipeline, guarded by a semantic cache, and fans out progress over SSE.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/thoughtflow/pkg/api"
	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/cleanup"
	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/database"
	"github.com/codeready-toolchain/thoughtflow/pkg/embedding"
	"github.com/codeready-toolchain/thoughtflow/pkg/fanout"
	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/pipeline"
	"github.com/codeready-toolchain/thoughtflow/pkg/semanticcache"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/sweeper"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

// defaultLLMProvider is the registry key the single five-stage chain binds
// its adapter to. The teacher's agent/chain configs each resolve their own
// provider; thoughtflow runs exactly one chain, so there is exactly one
// provider to resolve, named by convention rather than per-agent lookup.
const defaultLLMProvider = "default"

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		logger.Info("loaded environment file", "path", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		logger.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	logger.Info("configuration loaded",
		"llm_providers", stats.LLMProviders,
		"embedding_backend", stats.EmbeddingBackend,
		"work_topic", stats.WorkTopic,
		"consumer_group", stats.ConsumerGroup)

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("error closing database client", "error", err)
		}
	}()
	logger.Info("connected to PostgreSQL")

	thoughtSink := sink.New(dbClient.Client, cfg.Pipeline.StuckGrace())
	userContexts := usercontext.New(dbClient.Client)
	embedder := embedding.New(cfg.Embedding)
	cache := semanticcache.New(dbClient.Client, embedder, cfg.Cache, logger)

	providerCfg, err := cfg.GetLLMProvider(defaultLLMProvider)
	if err != nil {
		logger.Error("failed to resolve LLM provider", "provider", defaultLLMProvider, "error", err)
		os.Exit(1)
	}
	adapter, err := llmadapter.New(providerCfg)
	if err != nil {
		logger.Error("failed to build LLM adapter", "provider", defaultLLMProvider, "error", err)
		os.Exit(1)
	}

	bus, err := fanout.New(ctx, dbClient.DB(), cfg.Fanout)
	if err != nil {
		logger.Error("failed to start fan-out bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close(context.Background())

	orchestrator := pipeline.New(thoughtSink, cache, userContexts, adapter, nil, bus, logger)

	producer, err := broker.NewProducer(cfg.Broker)
	if err != nil {
		logger.Error("failed to start broker producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	consumer, err := broker.NewConsumer(cfg.Broker, orchestrator)
	if err != nil {
		logger.Error("failed to start broker consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("consumer exited unexpectedly", "error", err)
		}
	}()

	sweep := sweeper.New(dbClient.Client, thoughtSink, producer, bus, cfg.Pipeline, logger)
	if err := sweep.RecoverStartupOrphans(ctx); err != nil {
		logger.Error("startup orphan recovery failed", "error", err)
	}
	go sweep.Run(ctx)

	cacheCleanup := cleanup.NewService(dbClient.Client, logger)
	cacheCleanup.Start(ctx)
	defer cacheCleanup.Stop()

	server := api.NewServer(cfg, dbClient, thoughtSink, producer, bus, sweep)

	httpPort := getEnv("HTTP_PORT", "8080")
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.GracefulShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
}
