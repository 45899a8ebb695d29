// Package config provides configuration for the library desk assistant.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the model leaves a field out.
const (
	DefaultRestockQty        = 1
	DefaultOrderQty          = 1
	DefaultLowStockThreshold = 5
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort   int    `yaml:"httpPort"`
	RPCPort    int    `yaml:"rpcPort"`
	AppName    string `yaml:"appName"`
	AppVersion string `yaml:"appVersion"`

	// Database
	DatabaseURL string `yaml:"databaseURL"`
	SeedFile    string `yaml:"seedFile"`
	SeedOnStart bool   `yaml:"seedOnStart"`

	// LLM settings
	LLMProvider      string `yaml:"llmProvider"`
	LLMBaseURL       string `yaml:"llmBaseURL"`
	LLMAPIKey        string `yaml:"llmAPIKey"`
	LLMModel         string `yaml:"llmModel"`
	GeminiAPIKey     string `yaml:"geminiAPIKey"`
	LLMTimeoutMs     int    `yaml:"llmTimeoutMs"`
	LLMMaxRetries    int    `yaml:"llmMaxRetries"`
	SystemPromptFile string `yaml:"systemPromptFile"`

	// Completion cache
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	CacheTTLSecond int    `yaml:"cacheTTLSeconds"`

	// Tool policy
	ReadOnly   bool   `yaml:"readOnly"`
	PolicyFile string `yaml:"policyFile"`

	// Argument defaults
	DefaultRestockQty int `yaml:"defaultRestockQty"`
	DefaultOrderQty   int `yaml:"defaultOrderQty"`
	LowStockThreshold int `yaml:"lowStockThreshold"`

	// Process
	ShutdownTimeoutMs int    `yaml:"shutdownTimeoutMs"`
	LogLevel          string `yaml:"logLevel"`
}

// LLMTimeout bounds a single completion call.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMs) * time.Millisecond
}

// CacheTTL is how long a cached completion stays valid.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecond) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTPPort:          8080,
		AppName:           "Library Desk Assistant",
		AppVersion:        "1.0.0",
		DatabaseURL:       "file:librarian.db?cache=shared&mode=rwc&_busy_timeout=5000&_txlock=immediate",
		SeedOnStart:       true,
		LLMProvider:       "openai",
		LLMBaseURL:        "https://api.openai.com",
		LLMModel:          "gpt-4-turbo",
		LLMTimeoutMs:      30000,
		LLMMaxRetries:     2,
		CacheTTLSecond:    600,
		DefaultRestockQty: DefaultRestockQty,
		DefaultOrderQty:   DefaultOrderQty,
		LowStockThreshold: DefaultLowStockThreshold,
		ShutdownTimeoutMs: 10000,
		LogLevel:          "info",
	}
}

// Load loads configuration from an optional .env file, an optional YAML file
// named by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.RPCPort = getEnvInt("RPC_PORT", cfg.RPCPort)
	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppVersion = getEnv("APP_VERSION", cfg.AppVersion)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)
	cfg.SeedOnStart = getEnvBool("SEED_ON_START", cfg.SeedOnStart)
	cfg.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.LLMTimeoutMs = getEnvInt("LLM_TIMEOUT_MS", cfg.LLMTimeoutMs)
	cfg.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", cfg.LLMMaxRetries)
	cfg.SystemPromptFile = getEnv("SYSTEM_PROMPT_FILE", cfg.SystemPromptFile)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.CacheTTLSecond = getEnvInt("LLM_CACHE_TTL_SECONDS", cfg.CacheTTLSecond)
	cfg.ReadOnly = getEnvBool("READ_ONLY", cfg.ReadOnly)
	cfg.PolicyFile = getEnv("POLICY_FILE", cfg.PolicyFile)
	cfg.DefaultRestockQty = getEnvInt("DEFAULT_RESTOCK_QTY", cfg.DefaultRestockQty)
	cfg.DefaultOrderQty = getEnvInt("DEFAULT_ORDER_QTY", cfg.DefaultOrderQty)
	cfg.LowStockThreshold = getEnvInt("LOW_STOCK_THRESHOLD", cfg.LowStockThreshold)
	cfg.ShutdownTimeoutMs = getEnvInt("SHUTDOWN_TIMEOUT_MS", cfg.ShutdownTimeoutMs)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid http port %d", c.HTTPPort)
	}
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		return fmt.Errorf("config: invalid rpc port %d", c.RPCPort)
	}
	if c.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config file or DATABASE_URL)")
	}
	switch c.LLMProvider {
	case "openai", "mock":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("config: geminiAPIKey is required when llmProvider is gemini")
		}
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLMProvider)
	}
	if c.LLMTimeoutMs <= 0 {
		return errors.New("config: llmTimeoutMs must be positive")
	}
	if c.DefaultRestockQty <= 0 || c.DefaultOrderQty <= 0 {
		return errors.New("config: default quantities must be positive")
	}
	if c.LowStockThreshold < 0 {
		return errors.New("config: lowStockThreshold must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
