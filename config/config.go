package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Config holds everything the server needs at runtime. API credentials come
// from the environment or the config file; the environment wins.
type Config struct {
	TMDBAccessToken string `json:"tmdbAccessToken"`
	GeminiAPIKey    string `json:"geminiApiKey"`
	Language        string `json:"language"`

	DatabasePath  string `json:"databasePath"`
	CacheDir      string `json:"cacheDir"`
	CacheTTLHours int    `json:"cacheTtlHours"`

	Port          int    `json:"port"`
	LogFile       string `json:"logFile"`
	LogMaxSizeMB  int    `json:"logMaxSizeMb"`
	LogMaxBackups int    `json:"logMaxBackups"`
}

// Manager loads the config file once and serves immutable snapshots.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewManager reads the config file at path (missing file is fine, defaults
// apply) and applies environment overrides.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, cfg: defaults()}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &m.cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// first run
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	m.applyEnv()
	return m, nil
}

func defaults() Config {
	dataDir := os.Getenv("SAGASTREAM_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	return Config{
		Language:      "en-US",
		DatabasePath:  filepath.Join(dataDir, "sagastream.db"),
		CacheDir:      filepath.Join(dataDir, "cache"),
		CacheTTLHours: 24,
		Port:          8484,
		LogFile:       filepath.Join(dataDir, "sagastream.log"),
		LogMaxSizeMB:  20,
		LogMaxBackups: 3,
	}
}

func (m *Manager) applyEnv() {
	if v := os.Getenv("TMDB_ACCESS_TOKEN"); v != "" {
		m.cfg.TMDBAccessToken = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		m.cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("SAGASTREAM_LANGUAGE"); v != "" {
		m.cfg.Language = v
	}
	if v := os.Getenv("SAGASTREAM_DB_PATH"); v != "" {
		m.cfg.DatabasePath = v
	}
	if v := os.Getenv("SAGASTREAM_CACHE_DIR"); v != "" {
		m.cfg.CacheDir = v
	}
	if v := os.Getenv("SAGASTREAM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			m.cfg.Port = port
		}
	}
	if v := os.Getenv("SAGASTREAM_LOG_FILE"); v != "" {
		m.cfg.LogFile = v
	}
}

// Get returns a copy of the current config.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies fn to the config under the lock and returns the result.
func (m *Manager) Update(fn func(*Config)) Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.cfg)
	return m.cfg
}

// Save persists the current config back to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.cfg
	path := m.path
	m.mu.RUnlock()

	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
