package franchise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"sagastream/models"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel   = "gemini-flash-latest"
)

// curatorPrompt is the versioned instruction contract sent to Gemini. Changing
// it changes downstream matching quality, so treat edits like an API change.
const curatorPrompt = `You are a movie expert. Curate an EXHAUSTIVE and COMPLETE chronological timeline of movies and TV shows for the franchise: "%s".
You MUST include EVERY SINGLE movie, TV series, special, and spin-off that is part of this franchise.
Do not miss any installments, even minor ones.

CRITICAL: Order them chronologically based on the IN-UNIVERSE timeline (not release date).
Use IMDb lists or official franchise timelines as your source of truth for the correct chronological order.

Return ONLY a valid JSON array of objects with the following structure:
{
    "title": "Exact Title",
    "year": 1999,
    "type": "movie" | "tv"
}

Example:
[
    { "title": "Star Wars: Episode I - The Phantom Menace", "year": 1999, "type": "movie" },
    { "title": "Star Wars: The Clone Wars", "year": 2008, "type": "tv" }
]

Do not include any other text or markdown formatting.`

// GeminiCurator asks the Gemini generateContent API for an ordered franchise
// timeline.
type GeminiCurator struct {
	keyMu   sync.RWMutex
	apiKey  string
	baseURL string
	httpc   *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewGeminiCurator creates a curator. httpc may be nil.
func NewGeminiCurator(apiKey string, httpc *http.Client) *GeminiCurator {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &GeminiCurator{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     geminiBaseURL,
		httpc:       httpc,
		minInterval: 100 * time.Millisecond,
	}
}

// SetAPIKey swaps the API key at runtime, for settings changes.
func (c *GeminiCurator) SetAPIKey(apiKey string) {
	c.keyMu.Lock()
	c.apiKey = strings.TrimSpace(apiKey)
	c.keyMu.Unlock()
}

func (c *GeminiCurator) key() string {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()
	return c.apiKey
}

// IsConfigured reports whether an API key is present.
func (c *GeminiCurator) IsConfigured() bool {
	return c.key() != ""
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Curate requests the timeline for the named franchise. The response must be
// a strict JSON array (a surrounding markdown fence is tolerated); anything
// else fails with ErrCuration and the raw text is logged, never returned.
func (c *GeminiCurator) Curate(ctx context.Context, franchiseName string) ([]models.CuratedItem, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	c.throttleMu.Lock()
	if since := time.Since(c.lastRequest); since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(curatorPrompt, franchiseName)}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     0.2,
			MaxOutputTokens: 8192,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, geminiModel, c.key())

	var text string
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create gemini request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("gemini request failed: status %d", resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				return retry.Unrecoverable(fmt.Errorf("gemini API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
			}

			var geminiResp geminiResponse
			if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode gemini response: %w", err))
			}
			if geminiResp.Error != nil {
				return retry.Unrecoverable(fmt.Errorf("gemini API error: %s", geminiResp.Error.Message))
			}
			if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
				return retry.Unrecoverable(errors.New("gemini returned empty response"))
			}
			text = geminiResp.Candidates[0].Content.Parts[0].Text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCuration, err)
	}

	items, err := parseCuratedItems(text)
	if err != nil {
		log.Printf("[curator] failed to parse gemini response for %q: %v (raw: %s)", franchiseName, err, truncate(text, 200))
		return nil, fmt.Errorf("%w: %v", ErrCuration, err)
	}
	return items, nil
}

// parseCuratedItems strips an optional markdown code fence and decodes the
// strict JSON array. Any other malformation is a hard failure, not best-effort.
func parseCuratedItems(text string) ([]models.CuratedItem, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var items []models.CuratedItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}
	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
