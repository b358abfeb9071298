package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := m.Get()
	if cfg.Port != 8484 {
		t.Fatalf("expected default port 8484, got %d", cfg.Port)
	}
	if cfg.Language != "en-US" {
		t.Fatalf("expected default language en-US, got %q", cfg.Language)
	}
	if cfg.CacheTTLHours != 24 {
		t.Fatalf("expected default ttl 24, got %d", cfg.CacheTTLHours)
	}
}

func TestNewManagerReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"language":"pt-BR","port":9000}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := m.Get()
	if cfg.Language != "pt-BR" || cfg.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestNewManagerRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"geminiApiKey":"file-key"}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "env-key")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Get().GeminiAPIKey; got != "env-key" {
		t.Fatalf("expected env override, got %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Update(func(c *Config) { c.TMDBAccessToken = "saved-token" })
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Get().TMDBAccessToken; got != "saved-token" {
		t.Fatalf("expected saved token, got %q", got)
	}
}
