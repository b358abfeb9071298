package metadata

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"sagastream/models"
)

// Service wraps the TMDB client with normalization and a read-through disk
// cache. The browsing endpoints (search, trending, discover) go through the
// cache; the franchise reconciliation path calls TMDB directly because its
// results are cached at the franchise level.
type Service struct {
	mu    sync.RWMutex
	tmdb  *tmdbClient
	cache *fileCache

	cacheDir string
	ttlHours int
}

// MovieResult is a movie row from TMDB search or discover.
type MovieResult struct {
	ID           int
	Title        string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string
	Overview     string
}

// TVResult is a series row from TMDB search or discover.
type TVResult struct {
	ID           int
	Name         string
	PosterPath   string
	BackdropPath string
	FirstAirDate string
	Overview     string
}

// TVDetails carries the supplementary series fields fetched per match.
type TVDetails struct {
	ID               int
	NumberOfSeasons  int
	NumberOfEpisodes int
}

// DiscoverFilter selects content by TMDB keyword or production company.
type DiscoverFilter struct {
	KeywordID int
	CompanyID int
}

func (f DiscoverFilter) apply(params url.Values) {
	if f.KeywordID > 0 {
		params.Set("with_keywords", strconv.Itoa(f.KeywordID))
	}
	if f.CompanyID > 0 {
		params.Set("with_companies", strconv.Itoa(f.CompanyID))
	}
}

// NewService creates a metadata service. httpc may be nil.
func NewService(tmdbAccessToken, language, cacheDir string, ttlHours int, httpc *http.Client) *Service {
	return &Service{
		tmdb:     newTMDBClient(tmdbAccessToken, language, httpc),
		cache:    newFileCache(cacheDir, ttlHours),
		cacheDir: cacheDir,
		ttlHours: ttlHours,
	}
}

// UpdateAPIKey swaps the TMDB token at runtime and clears cached responses so
// stale unauthorized results don't linger.
func (s *Service) UpdateAPIKey(tmdbAccessToken, language string) {
	s.mu.Lock()
	s.tmdb = newTMDBClient(tmdbAccessToken, language, s.tmdb.httpc)
	s.mu.Unlock()
	if err := s.cache.clear(); err != nil {
		log.Printf("[metadata] failed to clear cache: %v", err)
	}
}

func (s *Service) client() *tmdbClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmdb
}

// SearchMovies searches movies by title, optionally constrained to a year.
func (s *Service) SearchMovies(ctx context.Context, query string, year int) ([]MovieResult, error) {
	rows, err := s.client().searchMovies(ctx, query, year)
	if err != nil {
		return nil, err
	}
	out := make([]MovieResult, 0, len(rows))
	for _, m := range rows {
		out = append(out, MovieResult{
			ID:           m.ID,
			Title:        m.Title,
			PosterPath:   m.PosterPath,
			BackdropPath: m.BackdropPath,
			ReleaseDate:  m.ReleaseDate,
			Overview:     m.Overview,
		})
	}
	return out, nil
}

// SearchTV searches series by title, optionally constrained to the first air
// year.
func (s *Service) SearchTV(ctx context.Context, query string, firstAirYear int) ([]TVResult, error) {
	rows, err := s.client().searchTV(ctx, query, firstAirYear)
	if err != nil {
		return nil, err
	}
	out := make([]TVResult, 0, len(rows))
	for _, t := range rows {
		out = append(out, TVResult{
			ID:           t.ID,
			Name:         t.Name,
			PosterPath:   t.PosterPath,
			BackdropPath: t.BackdropPath,
			FirstAirDate: t.FirstAirDate,
			Overview:     t.Overview,
		})
	}
	return out, nil
}

// TVDetails fetches season/episode counts for a series.
func (s *Service) TVDetails(ctx context.Context, id int) (*TVDetails, error) {
	d, err := s.client().tvDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TVDetails{ID: d.ID, NumberOfSeasons: d.NumberOfSeasons, NumberOfEpisodes: d.NumberOfEpisodes}, nil
}

// Search serves the free-text search box. Results are cached per query and
// media type.
func (s *Service) Search(ctx context.Context, query, mediaType string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.SearchResult{}, nil
	}
	mediaType = normalizeMediaType(mediaType)

	key := cacheKey("tmdb", "search", mediaType, strings.ToLower(q))
	var cached []models.SearchResult
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	var results []models.SearchResult
	if mediaType == "movie" {
		rows, err := s.client().searchMovies(ctx, q, 0)
		if err != nil {
			return nil, err
		}
		for _, m := range rows {
			if strings.TrimSpace(m.Title) == "" {
				continue
			}
			results = append(results, models.SearchResult{
				ID:           m.ID,
				Title:        m.Title,
				MediaType:    "movie",
				Year:         parseYear(m.ReleaseDate),
				PosterPath:   m.PosterPath,
				BackdropPath: m.BackdropPath,
				Overview:     m.Overview,
			})
		}
	} else {
		rows, err := s.client().searchTV(ctx, q, 0)
		if err != nil {
			return nil, err
		}
		for _, t := range rows {
			if strings.TrimSpace(t.Name) == "" {
				continue
			}
			results = append(results, models.SearchResult{
				ID:           t.ID,
				Title:        t.Name,
				MediaType:    "tv",
				Year:         parseYear(t.FirstAirDate),
				PosterPath:   t.PosterPath,
				BackdropPath: t.BackdropPath,
				Overview:     t.Overview,
			})
		}
	}

	if len(results) > 0 {
		if err := s.cache.set(key, results); err != nil {
			log.Printf("[metadata] failed to cache search results: %v", err)
		}
	}
	return results, nil
}

// Trending serves the home screen rows, cached per media type.
func (s *Service) Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error) {
	mediaType = normalizeMediaType(mediaType)

	key := cacheKey("tmdb", "trending", mediaType)
	var cached []models.TrendingItem
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	rows, err := s.client().trending(ctx, mediaType)
	if err != nil {
		return nil, err
	}
	items := make([]models.TrendingItem, 0, len(rows))
	for _, e := range rows {
		title := e.Title
		date := e.ReleaseDate
		if title == "" {
			title = e.Name
			date = e.FirstAirDate
		}
		if strings.TrimSpace(title) == "" {
			continue
		}
		mt := e.MediaType
		if mt == "" {
			mt = mediaType
		}
		items = append(items, models.TrendingItem{
			ID:           e.ID,
			Title:        title,
			MediaType:    mt,
			Year:         parseYear(date),
			PosterPath:   e.PosterPath,
			BackdropPath: e.BackdropPath,
			Overview:     e.Overview,
			VoteAverage:  e.VoteAverage,
		})
	}

	if len(items) > 0 {
		if err := s.cache.set(key, items); err != nil {
			log.Printf("[metadata] failed to cache trending: %v", err)
		}
	}
	return items, nil
}

// DiscoverMovies returns one page of movies matching the filter, sorted by
// ascending release date, plus the total page count.
func (s *Service) DiscoverMovies(ctx context.Context, filter DiscoverFilter, page int) ([]MovieResult, int, error) {
	p, err := s.client().discoverMovies(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MovieResult, 0, len(p.Results))
	for _, m := range p.Results {
		out = append(out, MovieResult{
			ID:           m.ID,
			Title:        m.Title,
			PosterPath:   m.PosterPath,
			BackdropPath: m.BackdropPath,
			ReleaseDate:  m.ReleaseDate,
			Overview:     m.Overview,
		})
	}
	return out, p.TotalPages, nil
}

// DiscoverTV returns one page of series matching the filter, sorted by
// ascending first air date.
func (s *Service) DiscoverTV(ctx context.Context, filter DiscoverFilter, page int) ([]TVResult, int, error) {
	p, err := s.client().discoverTV(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]TVResult, 0, len(p.Results))
	for _, t := range p.Results {
		out = append(out, TVResult{
			ID:           t.ID,
			Name:         t.Name,
			PosterPath:   t.PosterPath,
			BackdropPath: t.BackdropPath,
			FirstAirDate: t.FirstAirDate,
			Overview:     t.Overview,
		})
	}
	return out, p.TotalPages, nil
}

func normalizeMediaType(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "movie", "movies", "film", "films":
		return "movie"
	default:
		return "tv"
	}
}
