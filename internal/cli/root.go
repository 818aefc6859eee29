// Package cli provides the command-line interface for convoflow.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/convoflow-go/internal/budget"
	"github.com/raphaelgruber/convoflow-go/internal/config"
	"github.com/raphaelgruber/convoflow-go/internal/db"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
	"github.com/raphaelgruber/convoflow-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
	logger   *slog.Logger

	// Lazy-initialized provider router
	router *provider.Router
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "convoflow",
	Short: "Conversation orchestration over interchangeable LLM backends",
	Long: `Convoflow tracks per-user conversations: every inbound message is
classified into tags and scoring signals, which drive a readiness score,
a trust level and the conversation stage. Replies are generated from the
recent dialogue history, and every step lands in an append-only event log.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for commands that never touch it
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "watch" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		// Initialize schema
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Close database connection
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getServices creates the orchestrators with lazy backend initialization.
// Commands that never call a backend pass requireLLM=false; the router
// stays unbuilt and no provider credentials are needed.
func getServices(ctx context.Context, requireLLM bool) (*service.Tagger, *service.Responder, error) {
	if requireLLM && router == nil {
		var err error
		router, err = provider.NewChain(ctx, provider.ChainConfig{
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
			return nil, nil, fmt.Errorf("init provider chain: %w", err)
		}
	}

	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, fmt.Errorf("build scoring engine: %w", err)
	}
	tracker, err := budget.NewTracker(cfg.CostPerThousandTokens, cfg.BudgetThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("build budget tracker: %w", err)
	}

	deps := service.Deps{
		Store:   dbClient,
		Events:  dbClient,
		Router:  router,
		Engine:  engine,
		Tracker: tracker,
		Logger:  logger,
	}

	return service.NewTagger(deps), service.NewResponder(deps, cfg.HistoryWindow), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(chatCmd)
}
