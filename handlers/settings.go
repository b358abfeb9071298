package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"sagastream/config"
	"sagastream/services/franchise"
	metadatapkg "sagastream/services/metadata"
)

// metadataReloader hot-swaps TMDB credentials without a restart.
type metadataReloader interface {
	UpdateAPIKey(tmdbAccessToken, language string)
}

var _ metadataReloader = (*metadatapkg.Service)(nil)

// curatorReloader hot-swaps the Gemini key without a restart.
type curatorReloader interface {
	SetAPIKey(apiKey string)
}

var _ curatorReloader = (*franchise.GeminiCurator)(nil)

type SettingsHandler struct {
	Manager         *config.Manager
	MetadataService metadataReloader
	Curator         curatorReloader
}

func NewSettingsHandler(m *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: m}
}

// SetMetadataService sets the metadata service for hot reloading API keys.
func (h *SettingsHandler) SetMetadataService(ms metadataReloader) {
	h.MetadataService = ms
}

// SetCurator sets the curator for hot reloading the Gemini key.
func (h *SettingsHandler) SetCurator(c curatorReloader) {
	h.Curator = c
}

// SettingsResponse exposes the non-secret settings. Credentials are reported
// as configured/not-configured only, they never leave the server.
type SettingsResponse struct {
	Language         string `json:"language"`
	CacheTTLHours    int    `json:"cacheTtlHours"`
	TMDBConfigured   bool   `json:"tmdbConfigured"`
	GeminiConfigured bool   `json:"geminiConfigured"`
}

// SettingsRequest carries updatable settings. Empty credential fields mean
// "keep the current value".
type SettingsRequest struct {
	TMDBAccessToken string `json:"tmdbAccessToken"`
	GeminiAPIKey    string `json:"geminiApiKey"`
	Language        string `json:"language"`
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := h.Manager.Get()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SettingsResponse{
		Language:         cfg.Language,
		CacheTTLHours:    cfg.CacheTTLHours,
		TMDBConfigured:   cfg.TMDBAccessToken != "",
		GeminiConfigured: cfg.GeminiAPIKey != "",
	})
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	cfg := h.Manager.Update(func(c *config.Config) {
		if token := strings.TrimSpace(req.TMDBAccessToken); token != "" {
			c.TMDBAccessToken = token
		}
		if key := strings.TrimSpace(req.GeminiAPIKey); key != "" {
			c.GeminiAPIKey = key
		}
		if lang := strings.TrimSpace(req.Language); lang != "" {
			c.Language = lang
		}
	})

	if err := h.Manager.Save(); err != nil {
		log.Printf("[settings] failed to persist config: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to save settings"})
		return
	}

	if h.MetadataService != nil {
		h.MetadataService.UpdateAPIKey(cfg.TMDBAccessToken, cfg.Language)
	}
	if h.Curator != nil {
		h.Curator.SetAPIKey(cfg.GeminiAPIKey)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SettingsResponse{
		Language:         cfg.Language,
		CacheTTLHours:    cfg.CacheTTLHours,
		TMDBConfigured:   cfg.TMDBAccessToken != "",
		GeminiConfigured: cfg.GeminiAPIKey != "",
	})
}
