package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        int
	Debug       bool
	LogLevel    string
	CORSOrigins []string

	// Storage
	StorageDriver string // sqlite, postgres
	SQLitePath    string
	DatabaseURL   string

	// Redis catalog cache, disabled when RedisAddr is empty
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	// RabbitMQ rating events, disabled when RabbitMQURL is empty
	RabbitMQURL string

	// LLM
	LLMProvider string // qwen, openai
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string

	// Catalog
	ProblemsPath string

	DemoUserID string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:            getEnvInt("PORT", 8080),
		Debug:           getEnvBool("DEBUG", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		StorageDriver:   getEnv("STORAGE_DRIVER", DriverSQLite),
		SQLitePath:      getEnv("SQLITE_PATH", "./rehearse.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 10*time.Minute),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		LLMProvider:     getEnv("LLM_PROVIDER", "qwen"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),
		ProblemsPath:    getEnv("PROBLEMS_PATH", ""),
		DemoUserID:      getEnv("DEMO_USER_ID", "demo-user"),
	}

	// Validate required settings
	switch cfg.StorageDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when STORAGE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.LLMProvider != "qwen" && cfg.LLMProvider != "openai" {
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
