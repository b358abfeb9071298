package database

import (
	"path/filepath"
	"testing"

	"sagastream/models"
)

// setupTestFranchiseRepo creates a test database and franchise repository.
func setupTestFranchiseRepo(t *testing.T) *FranchiseRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFranchiseRepository(db.Connection())
}

func sampleFranchise() *models.Franchise {
	seasons := 7
	episodes := 133
	return &models.Franchise{
		ID:           "ai-star-wars",
		Name:         "Star Wars",
		Description:  "AI Curated timeline for Star Wars",
		BackdropPath: "/backdrop.jpg",
		Type:         "keyword",
		Value:        0,
		IsCustom:     true,
		UpdatedAt:    "2025-06-01T12:00:00Z",
		Content: []models.FranchiseContent{
			{ID: 1893, Title: "Star Wars: Episode I - The Phantom Menace", MediaType: "movie", ReleaseDate: "1999-05-19", Overview: "Anakin is found."},
			{ID: 4194, Title: "Star Wars: The Clone Wars", MediaType: "tv", ReleaseDate: "2008-10-03", Overview: "Clone wars rage.", NumberOfSeasons: &seasons, NumberOfEpisodes: &episodes},
		},
	}
}

func TestGetMissingFranchise(t *testing.T) {
	repo := setupTestFranchiseRepo(t)

	got, err := repo.Get("ai-nothing-here")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing franchise, got %+v", got)
	}
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	repo := setupTestFranchiseRepo(t)
	f := sampleFranchise()

	if err := repo.Upsert(f); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.Get(f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected franchise after upsert")
	}
	if got.Name != "Star Wars" || !got.IsCustom || got.UpdatedAt != f.UpdatedAt {
		t.Fatalf("fields did not round-trip: %+v", got)
	}
	if len(got.Content) != 2 {
		t.Fatalf("expected 2 content items, got %d", len(got.Content))
	}
	tv := got.Content[1]
	if tv.NumberOfSeasons == nil || *tv.NumberOfSeasons != 7 {
		t.Fatalf("expected 7 seasons to survive round-trip, got %v", tv.NumberOfSeasons)
	}
	if tv.NumberOfEpisodes == nil || *tv.NumberOfEpisodes != 133 {
		t.Fatalf("expected 133 episodes to survive round-trip, got %v", tv.NumberOfEpisodes)
	}
}

func TestUpsertIsIdempotentAndOverwrites(t *testing.T) {
	repo := setupTestFranchiseRepo(t)
	f := sampleFranchise()

	if err := repo.Upsert(f); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	f.UpdatedAt = "2025-06-02T12:00:00Z"
	f.Content = f.Content[:1]
	if err := repo.Upsert(f); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one row after double upsert, got %d", len(all))
	}

	got, err := repo.Get(f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UpdatedAt != "2025-06-02T12:00:00Z" {
		t.Fatalf("expected second write's timestamp, got %s", got.UpdatedAt)
	}
	if len(got.Content) != 1 {
		t.Fatalf("expected second write's content to win, got %d items", len(got.Content))
	}
}

func TestDelete(t *testing.T) {
	repo := setupTestFranchiseRepo(t)
	f := sampleFranchise()

	if err := repo.Upsert(f); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	removed, err := repo.Delete(f.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Fatal("expected Delete to report a removed row")
	}

	removed, err = repo.Delete(f.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if removed {
		t.Fatal("expected second Delete to be a no-op")
	}
}
