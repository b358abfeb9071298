package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
)

// Minimal TMDB v3 client (bearer auth, search/details/trending/discover
// endpoints we need)

type tmdbClient struct {
	accessToken string
	language    string
	baseURL     string
	httpc       *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(accessToken, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		accessToken: strings.TrimSpace(accessToken),
		language:    normalizeLanguage(language),
		baseURL:     tmdbBaseURL,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond,
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c.accessToken != ""
}

// normalizeLanguage converts loose language values to TMDB's xx-YY form.
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return "en-US"
	}
	parts := strings.SplitN(lang, "-", 2)
	code := strings.ToLower(parts[0])
	if len(parts) == 2 && parts[1] != "" {
		return code + "-" + strings.ToUpper(parts[1])
	}
	// bare 2-letter code, default to the US region
	return code + "-US"
}

type tmdbMovie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
}

type tmdbTV struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
}

type tmdbMoviePage struct {
	Page       int         `json:"page"`
	Results    []tmdbMovie `json:"results"`
	TotalPages int         `json:"total_pages"`
}

type tmdbTVPage struct {
	Page       int      `json:"page"`
	Results    []tmdbTV `json:"results"`
	TotalPages int      `json:"total_pages"`
}

type tmdbTVDetails struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	NumberOfSeasons  int    `json:"number_of_seasons"`
	NumberOfEpisodes int    `json:"number_of_episodes"`
}

// tmdbTrendingEntry covers both movie and tv rows of /trending.
type tmdbTrendingEntry struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	MediaType    string  `json:"media_type"`
}

type tmdbTrendingPage struct {
	Results []tmdbTrendingEntry `json:"results"`
}

// doGET performs an authenticated GET with throttling and retry on transient
// failures. 429 and 5xx are retried with backoff; other non-2xx statuses fail
// immediately.
func (c *tmdbClient) doGET(ctx context.Context, path string, params url.Values, v any) error {
	if !c.isConfigured() {
		return fmt.Errorf("tmdb access token not configured")
	}

	c.throttleMu.Lock()
	if since := time.Since(c.lastRequest); since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()

	if params == nil {
		params = url.Values{}
	}
	if params.Get("language") == "" {
		params.Set("language", c.language)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create tmdb request: %w", err))
			}
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("tmdb %s: status %d", path, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				return retry.Unrecoverable(fmt.Errorf("tmdb %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body))))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode tmdb response for %s: %w", path, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// searchMovies searches movies by title, optionally constrained to a release
// year. A year of 0 means unconstrained.
func (c *tmdbClient) searchMovies(ctx context.Context, query string, year int) ([]tmdbMovie, error) {
	params := url.Values{
		"query":         []string{query},
		"include_adult": []string{"false"},
	}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	var page tmdbMoviePage
	if err := c.doGET(ctx, "/search/movie", params, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// searchTV searches series by title, optionally constrained to the first air
// year.
func (c *tmdbClient) searchTV(ctx context.Context, query string, firstAirYear int) ([]tmdbTV, error) {
	params := url.Values{
		"query":         []string{query},
		"include_adult": []string{"false"},
	}
	if firstAirYear > 0 {
		params.Set("first_air_date_year", strconv.Itoa(firstAirYear))
	}
	var page tmdbTVPage
	if err := c.doGET(ctx, "/search/tv", params, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *tmdbClient) tvDetails(ctx context.Context, id int) (*tmdbTVDetails, error) {
	var details tmdbTVDetails
	if err := c.doGET(ctx, "/tv/"+strconv.Itoa(id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *tmdbClient) trending(ctx context.Context, mediaType string) ([]tmdbTrendingEntry, error) {
	var page tmdbTrendingPage
	if err := c.doGET(ctx, "/trending/"+mediaType+"/week", nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *tmdbClient) discoverMovies(ctx context.Context, filter DiscoverFilter, page int) (tmdbMoviePage, error) {
	params := url.Values{"sort_by": []string{"release_date.asc"}}
	filter.apply(params)
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	var out tmdbMoviePage
	if err := c.doGET(ctx, "/discover/movie", params, &out); err != nil {
		return tmdbMoviePage{}, err
	}
	return out, nil
}

func (c *tmdbClient) discoverTV(ctx context.Context, filter DiscoverFilter, page int) (tmdbTVPage, error) {
	params := url.Values{"sort_by": []string{"first_air_date.asc"}}
	filter.apply(params)
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	var out tmdbTVPage
	if err := c.doGET(ctx, "/discover/tv", params, &out); err != nil {
		return tmdbTVPage{}, err
	}
	return out, nil
}

// parseYear extracts the year component from a YYYY-MM-DD date, 0 when absent
// or malformed.
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1000 {
		return 0
	}
	return year
}
