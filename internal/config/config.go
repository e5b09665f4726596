// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Directory for the inference log database (always absolute)
	Port              int
	LogLevel          string
	LogPretty         bool
	DevMode           bool
	AllowedOrigins    []string
	ReferenceDataPath string // Optional YAML override for the embedded reference table
	DashboardDataPath string // Optional YAML override for the embedded demo dashboard
	OpenAI            OpenAIConfig
	InferenceLog      InferenceLogConfig
}

// OpenAIConfig holds language-model client settings
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // Empty = official endpoint
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
}

// InferenceLogConfig controls persistence and retention of LLM call logs
type InferenceLogConfig struct {
	Enabled         bool
	RetentionDays   int
	CleanupSchedule string // robfig/cron expression with seconds field
}

var defaultAllowedOrigins = []string{
	"https://opto-demo.vercel.app",
	"http://localhost:5173",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           dataDir,
		Port:              getEnvAsInt("PORT", 8000),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", true),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		ReferenceDataPath: getEnv("REFERENCE_DATA_PATH", ""),
		DashboardDataPath: getEnv("DASHBOARD_DATA_PATH", ""),
		OpenAI: OpenAIConfig{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			Model:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:    getEnv("OPENAI_BASE_URL", ""),
			Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 2),
			MaxTokens:  getEnvAsInt("OPENAI_MAX_TOKENS", 800),
		},
		InferenceLog: InferenceLogConfig{
			Enabled:         getEnvAsBool("INFERENCE_LOG_ENABLED", true),
			RetentionDays:   getEnvAsInt("INFERENCE_LOG_RETENTION_DAYS", 30),
			CleanupSchedule: getEnv("INFERENCE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive, got %s", c.OpenAI.Timeout)
	}
	if c.OpenAI.MaxRetries < 0 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must not be negative, got %d", c.OpenAI.MaxRetries)
	}
	if c.InferenceLog.RetentionDays < 1 {
		return fmt.Errorf("INFERENCE_LOG_RETENTION_DAYS must be at least 1, got %d", c.InferenceLog.RetentionDays)
	}
	if c.ReferenceDataPath != "" {
		if _, err := os.Stat(c.ReferenceDataPath); err != nil {
			return fmt.Errorf("reference data file not readable: %w", err)
		}
	}
	if c.DashboardDataPath != "" {
		if _, err := os.Stat(c.DashboardDataPath); err != nil {
			return fmt.Errorf("dashboard data file not readable: %w", err)
		}
	}

	// The chat endpoint reports itself unavailable without a key; the
	// dashboard and engine endpoints still work.
	return nil
}

// AssistantEnabled reports whether a language-model key is configured
func (c *Config) AssistantEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// InferenceDBPath returns the SQLite file backing the inference log
func (c *Config) InferenceDBPath() string {
	return filepath.Join(c.DataDir, "inference.db")
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
