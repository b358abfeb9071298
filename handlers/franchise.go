package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"sagastream/models"
	"sagastream/services/franchise"
)

// franchiseService is the subset of the franchise pipeline the handler needs.
type franchiseService interface {
	Timeline(ctx context.Context, query string) ([]models.FranchiseContent, error)
	Refresh(ctx context.Context, query string) ([]models.FranchiseContent, error)
	Cached(id string) (*models.Franchise, error)
	List() ([]models.Franchise, error)
	Remove(id string) (bool, error)
	CollectionContent(ctx context.Context, f *models.Franchise) ([]models.FranchiseContent, error)
}

var _ franchiseService = (*franchise.Service)(nil)

type FranchiseHandler struct {
	Service franchiseService
}

func NewFranchiseHandler(s franchiseService) *FranchiseHandler {
	return &FranchiseHandler{Service: s}
}

// TimelineRequest is the body for the curation endpoint.
type TimelineRequest struct {
	Query string `json:"query"`
}

// TimelineResponse wraps the curated content.
type TimelineResponse struct {
	Content []models.FranchiseContent `json:"content"`
}

// Timeline runs the curation pipeline for a franchise name. A refresh=true
// query parameter bypasses the cached record.
func (h *FranchiseHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	refresh := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("refresh"))) == "true"

	var content []models.FranchiseContent
	var err error
	if refresh {
		content, err = h.Service.Refresh(r.Context(), req.Query)
	} else {
		content, err = h.Service.Timeline(r.Context(), req.Query)
	}
	if err != nil {
		writeFranchiseError(w, req.Query, err)
		return
	}

	if content == nil {
		content = []models.FranchiseContent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TimelineResponse{Content: content})
}

// writeFranchiseError maps pipeline failures to status codes. Upstream detail
// stays in the logs; the client only sees the category.
func writeFranchiseError(w http.ResponseWriter, query string, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, franchise.ErrEmptyQuery):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "query is required"})
	case errors.Is(err, franchise.ErrNotConfigured):
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "curation is not configured"})
	case errors.Is(err, franchise.ErrCuration):
		log.Printf("[franchise] curation failed for %q: %v", query, err)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to curate franchise"})
	default:
		log.Printf("[franchise] timeline failed for %q: %v", query, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
	}
}

// List returns all persisted franchise records without their content payloads.
func (h *FranchiseHandler) List(w http.ResponseWriter, r *http.Request) {
	franchises, err := h.Service.List()
	if err != nil {
		log.Printf("[franchise] list failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		return
	}
	if franchises == nil {
		franchises = []models.Franchise{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(franchises)
}

// Get returns a single persisted record by slug.
func (h *FranchiseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, err := h.Service.Cached(id)
	if err != nil {
		log.Printf("[franchise] read %s failed: %v", id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		return
	}
	if f == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "franchise not found"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

// Content returns the content list for a record. Custom records serve their
// stored curated timeline; catalog records go through TMDB discovery.
func (h *FranchiseHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, err := h.Service.Cached(id)
	if err != nil {
		log.Printf("[franchise] read %s failed: %v", id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		return
	}
	if f == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "franchise not found"})
		return
	}

	content, err := h.Service.CollectionContent(r.Context(), f)
	if err != nil {
		log.Printf("[franchise] content for %s failed: %v", id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to fetch franchise content"})
		return
	}
	if content == nil {
		content = []models.FranchiseContent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TimelineResponse{Content: content})
}

// Delete removes a persisted record.
func (h *FranchiseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	deleted, err := h.Service.Remove(id)
	if err != nil {
		log.Printf("[franchise] delete %s failed: %v", id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		return
	}
	if !deleted {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "franchise not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
