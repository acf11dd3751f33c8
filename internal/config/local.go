package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig holds configuration for the CLI and a locally run daemon
type LocalConfig struct {
	Daemon   DaemonConfig   `yaml:"daemon"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Practice PracticeConfig `yaml:"practice"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
}

// StorageConfig selects the database
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for a single LLM provider
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"-"` // Loaded from secrets.yaml
}

// PracticeConfig holds the CLI's default user and field
type PracticeConfig struct {
	UserID string `yaml:"user_id"`
	Field  string `yaml:"field"`
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"providers"`
}

// RehearseDir returns the path to ~/.rehearse
func RehearseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".rehearse"), nil
}

// EnsureRehearseDir creates ~/.rehearse and subdirectories if they don't exist
func EnsureRehearseDir() (string, error) {
	dir, err := RehearseDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "problems"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	sqlitePath := "rehearse.db"
	if dir, err := RehearseDir(); err == nil {
		sqlitePath = filepath.Join(dir, "rehearse.db")
	}

	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     8080,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: sqlitePath,
		},
		LLM: LLMConfig{
			DefaultProvider: "qwen",
			Providers: map[string]*ProviderConfig{
				"qwen": {
					Enabled: true,
					Model:   "qwen/qwen3-235b-a22b:free",
					BaseURL: "https://openrouter.ai/api",
				},
				"openai": {
					Enabled: false,
					Model:   "gpt-4o",
				},
			},
		},
		Practice: PracticeConfig{
			UserID: "demo-user",
			Field:  "swe",
		},
	}
}

// LoadLocalConfig loads configuration from ~/.rehearse/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := RehearseDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, "config.yaml")

	// If config doesn't exist, return defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultLocalConfig()
		if err := loadSecrets(dir, cfg); err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultLocalConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}

	return nil
}

// SaveLocalConfig saves configuration to ~/.rehearse/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureRehearseDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves API keys to ~/.rehearse/secrets.yaml
func SaveSecrets(secrets map[string]string) error {
	dir, err := EnsureRehearseDir()
	if err != nil {
		return err
	}

	secretsCfg := SecretsConfig{
		Providers: make(map[string]struct {
			APIKey string `yaml:"api_key"`
		}),
	}
	for name, key := range secrets {
		secretsCfg.Providers[name] = struct {
			APIKey string `yaml:"api_key"`
		}{APIKey: key}
	}

	data, err := yaml.Marshal(secretsCfg)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}

// Provider returns the enabled provider settings for name, or for the
// default provider when name is empty.
func (c *LocalConfig) Provider(name string) (*ProviderConfig, bool) {
	if name == "" {
		name = c.LLM.DefaultProvider
	}
	p, ok := c.LLM.Providers[name]
	if !ok || !p.Enabled {
		return nil, false
	}
	return p, true
}

// ApplyTo fills settings the environment left unset from the local config.
// An environment variable always wins.
func (c *LocalConfig) ApplyTo(cfg *Config) {
	set := func(key string) bool {
		_, ok := os.LookupEnv(key)
		return ok
	}

	if !set("PORT") && c.Daemon.Port > 0 {
		cfg.Port = c.Daemon.Port
	}
	if !set("LOG_LEVEL") && c.Daemon.LogLevel != "" {
		cfg.LogLevel = c.Daemon.LogLevel
	}
	if !set("STORAGE_DRIVER") && c.Storage.Driver != "" {
		cfg.StorageDriver = c.Storage.Driver
	}
	if !set("SQLITE_PATH") && c.Storage.SQLitePath != "" {
		cfg.SQLitePath = c.Storage.SQLitePath
	}
	if !set("DATABASE_URL") && c.Storage.DatabaseURL != "" {
		cfg.DatabaseURL = c.Storage.DatabaseURL
	}
	if !set("DEMO_USER_ID") && c.Practice.UserID != "" {
		cfg.DemoUserID = c.Practice.UserID
	}

	if set("LLM_API_KEY") {
		return
	}
	name := c.LLM.DefaultProvider
	if set("LLM_PROVIDER") {
		name = cfg.LLMProvider
	}
	p, ok := c.Provider(name)
	if !ok || p.APIKey == "" {
		return
	}
	cfg.LLMProvider = name
	cfg.LLMAPIKey = p.APIKey
	if !set("LLM_MODEL") {
		cfg.LLMModel = p.Model
	}
	if !set("LLM_BASE_URL") {
		cfg.LLMBaseURL = p.BaseURL
	}
}
