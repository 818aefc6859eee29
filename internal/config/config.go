// Package config loads Convoflow configuration from environment variables
// plus an optional YAML file carrying the scoring/stage/provider tables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/raphaelgruber/convoflow-go/internal/budget"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/raphaelgruber/convoflow-go/internal/scoring"
	"gopkg.in/yaml.v3"
)

// Tables holds the data-driven scoring configuration. All fields are
// optional; nil/empty values select the built-in defaults.
type Tables struct {
	Weights     map[string]int      `yaml:"weights"`
	TrustDeltas map[string]int      `yaml:"trust_deltas"`
	Thresholds  []scoring.Threshold `yaml:"thresholds"`
	FinalStage  models.Stage        `yaml:"final_stage"`
}

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Provider chain, best-quality first
	ProviderChain []string
	BedrockModel  string
	BedrockRegion string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OllamaHost      string
	OllamaModel     string

	// Budget
	CostPerThousandTokens float64
	BudgetThreshold       float64

	// Response generation
	HistoryWindow int

	// Event feed (empty disables the websocket feed)
	FeedAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Scoring tables (YAML file only)
	Tables Tables
}

// fileConfig is the YAML overlay format.
type fileConfig struct {
	Providers             []string `yaml:"providers"`
	CostPerThousandTokens *float64 `yaml:"cost_per_1000_tokens"`
	BudgetThreshold       *float64 `yaml:"budget_threshold"`
	HistoryWindow         *int     `yaml:"history_window"`
	Tables                Tables   `yaml:"tables"`
}

// Load reads configuration from environment variables and, if
// CONVOFLOW_CONFIG points at a YAML file, overlays its values.
func Load() (Config, error) {
	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "convoflow"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "conversations"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ProviderChain: splitList(getEnv("CONVOFLOW_PROVIDERS", "anthropic,ollama")),
		BedrockModel:  getEnv("CONVOFLOW_BEDROCK_MODEL", ""),
		BedrockRegion: getEnv("AWS_REGION", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("CONVOFLOW_ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("CONVOFLOW_OPENAI_MODEL", "gpt-4o-mini"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("CONVOFLOW_OLLAMA_MODEL", "llama3.1"),

		CostPerThousandTokens: getEnvFloat("CONVOFLOW_COST_PER_1K", budget.DefaultCostPerThousandTokens),
		BudgetThreshold:       getEnvFloat("CONVOFLOW_BUDGET_THRESHOLD", budget.DefaultThreshold),

		HistoryWindow: getEnvInt("CONVOFLOW_HISTORY_WINDOW", 10),

		FeedAddr: getEnv("CONVOFLOW_FEED_ADDR", ""),

		LogFile:  getEnv("CONVOFLOW_LOG_FILE", "/tmp/convoflow.log"),
		LogLevel: parseLogLevel(getEnv("CONVOFLOW_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("CONVOFLOW_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// applyFile overlays values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if len(fc.Providers) > 0 {
		c.ProviderChain = fc.Providers
	}
	if fc.CostPerThousandTokens != nil {
		c.CostPerThousandTokens = *fc.CostPerThousandTokens
	}
	if fc.BudgetThreshold != nil {
		c.BudgetThreshold = *fc.BudgetThreshold
	}
	if fc.HistoryWindow != nil {
		c.HistoryWindow = *fc.HistoryWindow
	}
	c.Tables = fc.Tables

	return nil
}

// Engine builds the scoring engine from the configured tables.
func (c *Config) Engine() (*scoring.Engine, error) {
	return scoring.NewEngine(c.Tables.Weights, c.Tables.TrustDeltas, c.Tables.Thresholds, c.Tables.FinalStage)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
