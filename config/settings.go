// Package config provides application settings loaded from environment
// variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Retrieval strategy and fallback configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sagevault/sage/agent"
	"github.com/sagevault/sage/retrieval"
)

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Agent     agent.Config
	Retrieval retrieval.Config
	Paths     PathConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// PathConfig holds on-disk locations for the vault and sessions.
type PathConfig struct {
	VaultDB    string
	SemanticDB string
	SessionDB  string
}

// New loads settings from the environment. Returns an error when a
// variable holds a value that cannot be parsed or validated.
func New() (Settings, error) {
	provider := getEnv("SAGE_PROVIDER", "anthropic")
	model := os.Getenv("SAGE_MODEL")

	maxTokens, err := getEnvInt("SAGE_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("SAGE_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxSteps, err := getEnvInt("SAGE_MAX_STEPS", agent.DefaultMaxSteps)
	if err != nil {
		return Settings{}, err
	}
	maxRetries, err := getEnvInt("SAGE_MAX_RETRIES", agent.DefaultMaxRetries)
	if err != nil {
		return Settings{}, err
	}

	retrievalCfg, err := loadRetrievalConfig()
	if err != nil {
		return Settings{}, err
	}

	dataDir := getEnv("SAGE_DATA_DIR", defaultDataDir())

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: agent.Config{
			MaxSteps:   maxSteps,
			MaxRetries: maxRetries,
		},
		Retrieval: retrievalCfg,
		Paths: PathConfig{
			VaultDB:    filepath.Join(dataDir, "vault.db"),
			SemanticDB: filepath.Join(dataDir, "semantic"),
			SessionDB:  filepath.Join(dataDir, "sessions.db"),
		},
	}, nil
}

// MustNew loads settings and panics on failure. Use only when
// configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func loadRetrievalConfig() (retrieval.Config, error) {
	cfg := retrieval.DefaultConfig()

	if name := os.Getenv("SAGE_RETRIEVAL_STRATEGY"); name != "" {
		strategy, err := retrieval.ParseStrategy(name)
		if err != nil {
			return retrieval.Config{}, fmt.Errorf("SAGE_RETRIEVAL_STRATEGY: %w", err)
		}
		cfg.Strategy = strategy
		cfg.Weights = retrieval.DefaultWeights(strategy)
	}
	if name := os.Getenv("SAGE_FALLBACK_STRATEGY"); name != "" {
		strategy, err := retrieval.ParseStrategy(name)
		if err != nil {
			return retrieval.Config{}, fmt.Errorf("SAGE_FALLBACK_STRATEGY: %w", err)
		}
		cfg.Fallback.Strategy = strategy
	}

	topK, err := getEnvInt("SAGE_RETRIEVAL_TOP_K", cfg.TopK)
	if err != nil {
		return retrieval.Config{}, err
	}
	cfg.TopK = topK

	minScore, err := getEnvFloat64("SAGE_RETRIEVAL_MIN_SCORE", cfg.MinScore)
	if err != nil {
		return retrieval.Config{}, err
	}
	cfg.MinScore = minScore

	confThreshold, err := getEnvFloat64("SAGE_FALLBACK_CONFIDENCE", cfg.Fallback.ConfidenceThreshold)
	if err != nil {
		return retrieval.Config{}, err
	}
	cfg.Fallback.ConfidenceThreshold = confThreshold

	timeoutMs, err := getEnvInt("SAGE_SOURCE_TIMEOUT_MS", int(cfg.SourceTimeout/time.Millisecond))
	if err != nil {
		return retrieval.Config{}, err
	}
	cfg.SourceTimeout = time.Duration(timeoutMs) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return retrieval.Config{}, fmt.Errorf("retrieval configuration: %w", err)
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sage"
	}
	return filepath.Join(home, ".sage")
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
