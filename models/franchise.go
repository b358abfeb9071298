package models

import (
	"encoding/json"
	"strings"
)

// CuratedItem is one entry of the curator's franchise timeline. Two shapes
// come back from the model: the current one is an object with title, year and
// type; older prompts produced a bare title string. UnmarshalJSON accepts
// both — a string decodes to a title-only item with Year 0 and empty Type.
type CuratedItem struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	Type  string `json:"type,omitempty"` // "movie" | "tv", empty for title-only items
}

func (c *CuratedItem) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*c = CuratedItem{Title: title}
		return nil
	}
	type curatedItemAlias CuratedItem
	var alias curatedItemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*c = CuratedItem(alias)
	return nil
}

// TitleOnly reports whether this item came from the legacy bare-title shape.
func (c CuratedItem) TitleOnly() bool {
	return c.Type == ""
}

// FranchiseContent is a curated item reconciled against TMDB.
type FranchiseContent struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	PosterPath       string `json:"poster_path,omitempty"`
	BackdropPath     string `json:"backdrop_path,omitempty"`
	ReleaseDate      string `json:"release_date,omitempty"` // YYYY-MM-DD
	MediaType        string `json:"media_type"`             // "movie" | "tv"
	Overview         string `json:"overview"`
	NumberOfSeasons  *int   `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes *int   `json:"number_of_episodes,omitempty"`
}

// Franchise is the persisted timeline record. ID is the slug derived from
// Name; the same derivation runs on the read and write paths so cache lookups
// line up. UpdatedAt is RFC3339.
type Franchise struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	BackdropPath string             `json:"backdrop_path,omitempty"`
	Type         string             `json:"type"` // "keyword" | "company"
	Value        int                `json:"value"`
	IsCustom     bool               `json:"is_custom"`
	UpdatedAt    string             `json:"updated_at"`
	Content      []FranchiseContent `json:"content"`
}
