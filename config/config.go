// Package config loads runtime configuration from the environment and an
// optional .env file, and loads scoring rubrics from disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	LLM      LLMConfig
	Fetch    FetchConfig
	Chunk    ChunkConfig
	Rubric   RubricConfig
	Server    ServerConfig
	LogLevel  string
	LogFormat string // "json" or "text"
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider     string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	AnthropicKey string
	OpenAIKey    string
	GeminiKey    string
	OllamaHost   string
}

// FetchConfig controls document download.
type FetchConfig struct {
	Mode       string // "http" or "browser"
	Timeout    time.Duration
	MaxBytes   int64
	ChromePath string
}

// ChunkConfig selects the chunking strategy.
type ChunkConfig struct {
	Strategy string // "pages" or "fixed"
	Size     int    // words for pages, characters for fixed; 0 means default
}

// RubricConfig locates the rubric files.
type RubricConfig struct {
	BestPracticesPath  string
	ScoringWeightsPath string
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Addr              string
	MaxConcurrentJobs int
}

// Load reads .env when present, then the environment.
func Load() *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	return &Config{
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
			Model:        getEnv("LLM_MODEL", ""),
			MaxTokens:    getEnvAsInt("LLM_MAX_TOKENS", 2048),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			GeminiKey:    getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
			OllamaHost:   getEnv("OLLAMA_HOST", ""),
		},
		Fetch: FetchConfig{
			Mode:       strings.ToLower(getEnv("FETCH_MODE", "http")),
			Timeout:    getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
			MaxBytes:   getEnvAsInt64("FETCH_MAX_BYTES", 40<<20),
			ChromePath: getEnv("CHROME_PATH", ""),
		},
		Chunk: ChunkConfig{
			Strategy: strings.ToLower(getEnv("CHUNK_STRATEGY", "pages")),
			Size:     getEnvAsInt("CHUNK_SIZE", 0),
		},
		Rubric: RubricConfig{
			BestPracticesPath:  getEnv("BEST_PRACTICES_PATH", "config/best_practices.json"),
			ScoringWeightsPath: getEnv("SCORING_WEIGHTS_PATH", "config/scoring_weights.json"),
		},
		Server: ServerConfig{
			Addr:              getEnv("HTTP_ADDR", ":8000"),
			MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 4),
		},
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

// APIKey returns the key for the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicKey
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiKey
	default:
		return ""
	}
}

// BaseURL returns the endpoint override for the selected provider.
func (c LLMConfig) BaseURL() string {
	if c.Provider == "ollama" {
		return c.OllamaHost
	}
	return ""
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required", ErrInvalidConfig)
		}
	case "openai":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalidConfig)
		}
	case "gemini":
		if c.LLM.GeminiKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required", ErrInvalidConfig)
		}
	case "ollama":
	default:
		return fmt.Errorf("%w: unknown LLM_PROVIDER %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.Fetch.Mode != "http" && c.Fetch.Mode != "browser" {
		return fmt.Errorf("%w: FETCH_MODE must be http or browser, got %q", ErrInvalidConfig, c.Fetch.Mode)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("%w: FETCH_MAX_BYTES must be positive", ErrInvalidConfig)
	}
	if c.Chunk.Strategy != "pages" && c.Chunk.Strategy != "fixed" {
		return fmt.Errorf("%w: CHUNK_STRATEGY must be pages or fixed, got %q", ErrInvalidConfig, c.Chunk.Strategy)
	}
	if c.Server.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_JOBS must be positive", ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
