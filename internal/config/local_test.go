package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRehearseDir(t *testing.T) {
	dir, err := RehearseDir()
	if err != nil {
		t.Fatalf("RehearseDir() error = %v", err)
	}

	if filepath.Base(dir) != ".rehearse" {
		t.Errorf("RehearseDir() = %q, want ending with .rehearse", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("RehearseDir() = %q, want absolute path", dir)
	}
}

func TestEnsureRehearseDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsureRehearseDir()
	if err != nil {
		t.Fatalf("EnsureRehearseDir() error = %v", err)
	}

	expectedDir := filepath.Join(tmpHome, ".rehearse")
	if dir != expectedDir {
		t.Errorf("EnsureRehearseDir() = %q, want %q", dir, expectedDir)
	}
	for _, subdir := range []string{"logs", "problems"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); os.IsNotExist(err) {
			t.Errorf("EnsureRehearseDir() should create %s", subdir)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultLocalConfig()

	if cfg.Daemon.Port != 8080 || cfg.Daemon.Bind != "127.0.0.1" || cfg.Daemon.LogLevel != "info" {
		t.Errorf("Daemon = %+v", cfg.Daemon)
	}
	if cfg.Storage.Driver != DriverSQLite || filepath.Base(cfg.Storage.SQLitePath) != "rehearse.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.LLM.DefaultProvider != "qwen" || len(cfg.LLM.Providers) != 2 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Practice.UserID != "demo-user" || cfg.Practice.Field != "swe" {
		t.Errorf("Practice = %+v", cfg.Practice)
	}
}

func TestLocalConfig_Provider(t *testing.T) {
	cfg := DefaultLocalConfig()

	tests := []struct {
		name   string
		in     string
		wantOK bool
	}{
		{"default", "", true},
		{"enabled", "qwen", true},
		{"disabled", "openai", false},
		{"unknown", "claude", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := cfg.Provider(tt.in)
			if ok != tt.wantOK {
				t.Errorf("Provider(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	tests := []struct {
		name    string
		content string
		write   bool
		wantKey string
		wantErr bool
	}{
		{"applies known provider key", "providers:\n  qwen:\n    api_key: sk-or-123\n", true, "sk-or-123", false},
		{"ignores unknown provider", "providers:\n  claude:\n    api_key: nope\n", true, "", false},
		{"missing file", "", false, "", false},
		{"invalid yaml", "providers: [", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.write {
				if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte(tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}

			cfg := DefaultLocalConfig()
			err := loadSecrets(dir, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadSecrets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := cfg.LLM.Providers["qwen"].APIKey; got != tt.wantKey {
				t.Errorf("qwen APIKey = %q, want %q", got, tt.wantKey)
			}
		})
	}
}

func TestLoadLocalConfig_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Daemon.Port != 8080 {
		t.Errorf("Daemon.Port = %d, want default", cfg.Daemon.Port)
	}
}

func TestLoadLocalConfig_WithConfigAndSecrets(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".rehearse")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	config := "daemon:\n  port: 9999\nstorage:\n  driver: postgres\n  database_url: postgres://x\npractice:\n  user_id: alice\n  field: qf\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	secrets := "providers:\n  qwen:\n    api_key: sk-test\n"
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte(secrets), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Daemon.Port != 9999 || cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon = %+v, want port overridden and bind defaulted", cfg.Daemon)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.DatabaseURL != "postgres://x" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Practice.UserID != "alice" || cfg.Practice.Field != "qf" {
		t.Errorf("Practice = %+v", cfg.Practice)
	}
	if p, ok := cfg.Provider(""); !ok || p.APIKey != "sk-test" {
		t.Errorf("default provider = %+v, %v", p, ok)
	}
}

func TestLoadLocalConfig_InvalidConfigYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".rehearse")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("daemon: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadLocalConfig(); err == nil {
		t.Error("LoadLocalConfig() should fail on invalid YAML")
	}
}

func TestSaveLocalConfig_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 7000
	cfg.LLM.Providers["qwen"].APIKey = "must-not-be-written"
	if err := SaveLocalConfig(cfg); err != nil {
		t.Fatalf("SaveLocalConfig() error = %v", err)
	}

	dir, _ := RehearseDir()
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved config is not valid YAML: %v", err)
	}

	loaded, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if loaded.Daemon.Port != 7000 {
		t.Errorf("Daemon.Port = %d, want 7000", loaded.Daemon.Port)
	}
	if loaded.LLM.Providers["qwen"].APIKey != "" {
		t.Error("API key leaked into config.yaml")
	}
}

func TestSaveSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SaveSecrets(map[string]string{"qwen": "sk-saved"}); err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}

	dir, _ := RehearseDir()
	info, err := os.Stat(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets.yaml mode = %o, want 600", perm)
	}

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Providers["qwen"].APIKey != "sk-saved" {
		t.Errorf("APIKey = %q, want sk-saved", cfg.LLM.Providers["qwen"].APIKey)
	}
}

func TestLocalConfig_ApplyTo(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "STORAGE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
		"DEMO_USER_ID", "LLM_API_KEY", "LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("SQLITE_PATH", "/tmp/env.db")

	local := DefaultLocalConfig()
	local.Daemon.Port = 9090
	local.Storage.SQLitePath = "/home/u/.rehearse/rehearse.db"
	local.Practice.UserID = "alice"
	local.LLM.Providers["qwen"].APIKey = "sk-local"

	cfg := &Config{Port: 8080, SQLitePath: "/tmp/env.db", LLMProvider: "qwen"}
	local.ApplyTo(cfg)

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.SQLitePath != "/tmp/env.db" {
		t.Errorf("SQLitePath = %q, env should win", cfg.SQLitePath)
	}
	if cfg.DemoUserID != "alice" {
		t.Errorf("DemoUserID = %q", cfg.DemoUserID)
	}
	if cfg.LLMAPIKey != "sk-local" || cfg.LLMModel != "qwen/qwen3-235b-a22b:free" {
		t.Errorf("LLM = %q %q", cfg.LLMAPIKey, cfg.LLMModel)
	}
}
