package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"sagastream/models"
)

// FranchiseRepository reads and writes persisted franchise timelines. Content
// is stored as a JSON column so the record round-trips exactly as served.
type FranchiseRepository struct {
	db *sql.DB
}

// NewFranchiseRepository creates a repository backed by the given connection.
func NewFranchiseRepository(db *sql.DB) *FranchiseRepository {
	return &FranchiseRepository{db: db}
}

// Get returns the franchise with the given slug, or (nil, nil) when absent.
func (r *FranchiseRepository) Get(id string) (*models.Franchise, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, backdrop_path, type, value, is_custom, updated_at, content
		FROM franchises WHERE id = ?`, id)

	var f models.Franchise
	var isCustom int
	var content string
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.BackdropPath, &f.Type, &f.Value, &isCustom, &f.UpdatedAt, &content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get franchise %s: %w", id, err)
	}
	f.IsCustom = isCustom != 0
	if err := json.Unmarshal([]byte(content), &f.Content); err != nil {
		return nil, fmt.Errorf("decode franchise content %s: %w", id, err)
	}
	return &f, nil
}

// Upsert inserts the franchise or, when the slug already exists, overwrites
// its content and metadata. A key conflict is the normal refresh path, not an
// error.
func (r *FranchiseRepository) Upsert(f *models.Franchise) error {
	content, err := json.Marshal(f.Content)
	if err != nil {
		return fmt.Errorf("encode franchise content %s: %w", f.ID, err)
	}
	isCustom := 0
	if f.IsCustom {
		isCustom = 1
	}
	_, err = r.db.Exec(`
		INSERT INTO franchises (id, name, description, backdrop_path, type, value, is_custom, updated_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			backdrop_path = excluded.backdrop_path,
			type = excluded.type,
			value = excluded.value,
			is_custom = excluded.is_custom,
			updated_at = excluded.updated_at,
			content = excluded.content`,
		f.ID, f.Name, f.Description, f.BackdropPath, f.Type, f.Value, isCustom, f.UpdatedAt, string(content))
	if err != nil {
		return fmt.Errorf("upsert franchise %s: %w", f.ID, err)
	}
	return nil
}

// List returns all persisted franchises without their content payloads,
// newest first. The index page only needs the card fields.
func (r *FranchiseRepository) List() ([]models.Franchise, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, backdrop_path, type, value, is_custom, updated_at
		FROM franchises ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}
	defer rows.Close()

	var out []models.Franchise
	for rows.Next() {
		var f models.Franchise
		var isCustom int
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.BackdropPath, &f.Type, &f.Value, &isCustom, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan franchise: %w", err)
		}
		f.IsCustom = isCustom != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a franchise. Returns false when no row matched.
func (r *FranchiseRepository) Delete(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM franchises WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete franchise %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
