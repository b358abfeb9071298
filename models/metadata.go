package models

// SearchResult is one row of a catalog search response.
type SearchResult struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	MediaType    string `json:"mediaType"` // "movie" | "tv"
	Year         int    `json:"year,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
	BackdropPath string `json:"backdropPath,omitempty"`
	Overview     string `json:"overview,omitempty"`
}

// TrendingItem is one row of the trending/popular rows on the home screen.
type TrendingItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	MediaType    string  `json:"mediaType"`
	Year         int     `json:"year,omitempty"`
	PosterPath   string  `json:"posterPath,omitempty"`
	BackdropPath string  `json:"backdropPath,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	VoteAverage  float64 `json:"voteAverage,omitempty"`
}
