// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback), optionally seeded from a .env file
//
// Example usage:
//
//	config.LoadDotEnv()
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	apiKey := cfg.GetAPIKey(cfg.LLM.APIKey, "OPENAI_API_KEY")
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	LLM           LLMConfig           `yaml:"llm"`
	Currency      CurrencyConfig      `yaml:"currency"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds reconciliation engine settings
type MatchingConfig struct {
	NameThreshold int    `yaml:"name_threshold"`
	DateThreshold int    `yaml:"date_threshold"`
	Mode          string `yaml:"mode"` // greedy or exclusive
}

// LLMConfig holds text-generation provider settings
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai or gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// CurrencyConfig holds exchange-rate API settings
type CurrencyConfig struct {
	BaseURL   string `yaml:"base_url"`
	AccessKey string `yaml:"access_key"`
	RetryMax  int    `yaml:"retry_max"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${OPENAI_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Matching: MatchingConfig{
			NameThreshold: getEnvInt("RECONCILE_NAME_THRESHOLD", 80),
			DateThreshold: getEnvInt("RECONCILE_DATE_THRESHOLD", 80),
			Mode:          getEnv("RECONCILE_MATCH_MODE", "greedy"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("LLM_MODEL", "gpt-4o"),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: 0.1,
		},
		Currency: CurrencyConfig{
			BaseURL:   getEnv("EXCHANGE_RATE_BASE_URL", "https://api.exchangerate.host"),
			AccessKey: os.Getenv("EXCHANGE_RATE_KEY"),
			RetryMax:  getEnvInt("EXCHANGE_RATE_RETRY_MAX", 3),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILE_DB_PATH", "reconcile.db"),
		},
		Server: ServerConfig{
			Port: getEnvInt("RECONCILE_PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	if cfg.LLM.Provider == "gemini" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyDefaults fills zero values left by a partial YAML file
func (c *Config) applyDefaults() {
	if c.Matching.NameThreshold == 0 {
		c.Matching.NameThreshold = 80
	}
	if c.Matching.DateThreshold == 0 {
		c.Matching.DateThreshold = 80
	}
	if c.Matching.Mode == "" {
		c.Matching.Mode = "greedy"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.Currency.BaseURL == "" {
		c.Currency.BaseURL = "https://api.exchangerate.host"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconcile.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.LLM.APIKey, "OPENAI_API_KEY")
//
//	GetAPIKey(cfg.Currency.AccessKey, "EXCHANGE_RATE_KEY", "EXCHANGERATE_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
