package franchise

import "errors"

var (
	// ErrEmptyQuery is returned when the franchise name is empty after trimming.
	ErrEmptyQuery = errors.New("franchise query is empty")

	// ErrNotConfigured is returned when no Gemini API key is set. No network
	// calls are attempted in this case.
	ErrNotConfigured = errors.New("gemini api key not configured")

	// ErrCuration is returned when the curator call fails or its output does
	// not parse as a JSON array. Nothing is persisted when this happens.
	ErrCuration = errors.New("franchise curation failed")
)
