package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"sagastream/models"
	metadatapkg "sagastream/services/metadata"
)

// metadataService is the subset of the metadata service the handler needs.
type metadataService interface {
	Search(ctx context.Context, query, mediaType string) ([]models.SearchResult, error)
	Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error)
}

var _ metadataService = (*metadatapkg.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(s metadataService) *MetadataHandler {
	return &MetadataHandler{Service: s}
}

func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	mediaType := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))

	results, err := h.Service.Search(r.Context(), q, mediaType)
	if err != nil {
		log.Printf("[metadata] search error q=%q type=%s: %v", q, mediaType, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "search failed"})
		return
	}

	if results == nil {
		results = []models.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func (h *MetadataHandler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))

	items, err := h.Service.Trending(r.Context(), mediaType)
	if err != nil {
		log.Printf("[metadata] trending error type=%s: %v", mediaType, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "trending failed"})
		return
	}

	if items == nil {
		items = []models.TrendingItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
