// Package main provides the entry point for the convoflow MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/convoflow-go/internal/budget"
	"github.com/raphaelgruber/convoflow-go/internal/config"
	"github.com/raphaelgruber/convoflow-go/internal/db"
	"github.com/raphaelgruber/convoflow-go/internal/feed"
	"github.com/raphaelgruber/convoflow-go/internal/metrics"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
	"github.com/raphaelgruber/convoflow-go/internal/server"
	"github.com/raphaelgruber/convoflow-go/internal/service"
	"github.com/raphaelgruber/convoflow-go/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	// Log startup info
	logger.Info("convoflow starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"provider_chain", cfg.ProviderChain,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(ctx)
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Build the provider chain
	router, err := provider.NewChain(ctx, provider.ChainConfig{
		Chain:           cfg.ProviderChain,
		BedrockModel:    cfg.BedrockModel,
		BedrockRegion:   cfg.BedrockRegion,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		OllamaHost:      cfg.OllamaHost,
		OllamaModel:     cfg.OllamaModel,
	}, logger)
	if err != nil {
		logger.Error("failed to build provider chain", "error", err)
		os.Exit(1)
	}
	logger.Info("provider chain ready", "backends", router.Backends())

	// Scoring engine and budget tracker
	engine, err := cfg.Engine()
	if err != nil {
		logger.Error("invalid scoring tables", "error", err)
		os.Exit(1)
	}
	tracker, err := budget.NewTracker(cfg.CostPerThousandTokens, cfg.BudgetThreshold)
	if err != nil {
		logger.Error("invalid budget settings", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	// Optional live event feed
	var sink service.EventSink
	if cfg.FeedAddr != "" {
		hub := feed.NewHub(logger)
		hub.Start(cfg.FeedAddr)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = hub.Shutdown(shutdownCtx)
		}()
		sink = hub
	}

	deps := service.Deps{
		Store:   dbClient,
		Events:  dbClient,
		Router:  router,
		Engine:  engine,
		Tracker: tracker,
		Metrics: collector,
		Sink:    sink,
		Logger:  logger,
	}

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	toolDeps := &tools.Dependencies{
		Tagger:    service.NewTagger(deps),
		Responder: service.NewResponder(deps, cfg.HistoryWindow),
		Store:     dbClient,
		Events:    dbClient,
		Metrics:   collector,
		Logger:    logger,
	}
	tools.RegisterAll(srv.MCPServer(), toolDeps)

	// Log ready state
	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
