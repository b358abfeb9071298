package franchise

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"sagastream/internal/database"
	"sagastream/models"
	"sagastream/services/metadata"
)

const (
	defaultMaxWorkers = 8
	maxDiscoverPages  = 3
)

// metadataSource is the subset of the metadata service the pipeline needs.
type metadataSource interface {
	SearchMovies(ctx context.Context, query string, year int) ([]metadata.MovieResult, error)
	SearchTV(ctx context.Context, query string, firstAirYear int) ([]metadata.TVResult, error)
	TVDetails(ctx context.Context, id int) (*metadata.TVDetails, error)
	DiscoverMovies(ctx context.Context, filter metadata.DiscoverFilter, page int) ([]metadata.MovieResult, int, error)
	DiscoverTV(ctx context.Context, filter metadata.DiscoverFilter, page int) ([]metadata.TVResult, int, error)
}

var _ metadataSource = (*metadata.Service)(nil)

// curator produces the ordered timeline for a franchise name.
type curator interface {
	IsConfigured() bool
	Curate(ctx context.Context, franchiseName string) ([]models.CuratedItem, error)
}

var _ curator = (*GeminiCurator)(nil)

// store is the persistence cache for franchise records.
type store interface {
	Get(id string) (*models.Franchise, error)
	Upsert(f *models.Franchise) error
	List() ([]models.Franchise, error)
	Delete(id string) (bool, error)
}

var _ store = (*database.FranchiseRepository)(nil)

// Service runs the curation pipeline: curate, reconcile against TMDB, dedupe,
// persist, with a read-through cache keyed by slug.
type Service struct {
	curator    curator
	metadata   metadataSource
	store      store
	maxWorkers int
	now        func() time.Time
}

// NewService wires the pipeline together.
func NewService(c curator, md metadataSource, st store) *Service {
	return &Service{
		curator:    c,
		metadata:   md,
		store:      st,
		maxWorkers: defaultMaxWorkers,
		now:        time.Now,
	}
}

// Timeline returns the curated content for a franchise. A cached record with
// non-empty content short-circuits the pipeline; an empty or missing record
// triggers a full generation.
func (s *Service) Timeline(ctx context.Context, query string) ([]models.FranchiseContent, error) {
	name := strings.TrimSpace(query)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	slug := Slugify(name)

	cached, err := s.store.Get(slug)
	if err != nil {
		// the cache is advisory, treat a read failure as a miss
		log.Printf("[franchise] cache read for %s failed: %v", slug, err)
	} else if cached != nil && len(cached.Content) > 0 {
		return cached.Content, nil
	}

	return s.generate(ctx, name, slug)
}

// Refresh regenerates a franchise, bypassing the cached record.
func (s *Service) Refresh(ctx context.Context, query string) ([]models.FranchiseContent, error) {
	name := strings.TrimSpace(query)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	return s.generate(ctx, name, Slugify(name))
}

func (s *Service) generate(ctx context.Context, name, slug string) ([]models.FranchiseContent, error) {
	if !s.curator.IsConfigured() {
		return nil, ErrNotConfigured
	}

	items, err := s.curator.Curate(ctx, name)
	if err != nil {
		return nil, err
	}

	content := dedupe(s.reconcile(ctx, items))

	if len(content) > 0 {
		record := &models.Franchise{
			ID:           slug,
			Name:         name,
			Description:  "AI Curated timeline for " + name,
			BackdropPath: firstArtwork(content),
			Type:         "keyword",
			Value:        0,
			IsCustom:     true,
			UpdatedAt:    s.now().UTC().Format(time.RFC3339),
			Content:      content,
		}
		// best-effort: a failed write still returns the computed content
		if err := s.store.Upsert(record); err != nil {
			log.Printf("[franchise] failed to persist %s: %v", slug, err)
		}
	}

	return content, nil
}

// reconcile resolves every curated item against TMDB concurrently. The pool is
// a join, not a race: all items settle before it returns, and a failed item is
// dropped without aborting the batch. Output preserves curator order, with
// dropped items removed.
func (s *Service) reconcile(ctx context.Context, items []models.CuratedItem) []models.FranchiseContent {
	resolved := make([]*models.FranchiseContent, len(items))

	p := pool.New().WithMaxGoroutines(s.maxWorkers).WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		p.Go(func(ctx context.Context) error {
			resolved[i] = s.resolveItem(ctx, item)
			return nil
		})
	}
	// resolveItem never returns an error, so Wait only reflects ctx cancellation
	if err := p.Wait(); err != nil {
		log.Printf("[franchise] reconcile interrupted: %v", err)
	}

	out := make([]models.FranchiseContent, 0, len(items))
	for _, r := range resolved {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Service) resolveItem(ctx context.Context, item models.CuratedItem) *models.FranchiseContent {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}
	if item.TitleOnly() {
		return s.resolveTitleOnly(ctx, title)
	}
	switch item.Type {
	case "movie":
		return s.resolveMovie(ctx, title, item.Year)
	case "tv":
		return s.resolveTV(ctx, title, item.Year)
	default:
		log.Printf("[franchise] dropping %q: unknown type %q", title, item.Type)
		return nil
	}
}

// resolveMovie searches with the year constraint, falls back to a title-only
// search, and prefers the result whose release year matches exactly.
func (s *Service) resolveMovie(ctx context.Context, title string, year int) *models.FranchiseContent {
	results, err := s.metadata.SearchMovies(ctx, title, year)
	if err != nil {
		log.Printf("[franchise] dropping movie %q: search failed: %v", title, err)
		return nil
	}
	if len(results) == 0 && year > 0 {
		results, err = s.metadata.SearchMovies(ctx, title, 0)
		if err != nil {
			log.Printf("[franchise] dropping movie %q: fallback search failed: %v", title, err)
			return nil
		}
	}
	if len(results) == 0 {
		log.Printf("[franchise] dropping movie %q: no results", title)
		return nil
	}

	match := results[0]
	if year > 0 {
		prefix := strconv.Itoa(year)
		for _, r := range results {
			if strings.HasPrefix(r.ReleaseDate, prefix) {
				match = r
				break
			}
		}
	}

	return &models.FranchiseContent{
		ID:           match.ID,
		Title:        match.Title,
		PosterPath:   match.PosterPath,
		BackdropPath: match.BackdropPath,
		ReleaseDate:  match.ReleaseDate,
		MediaType:    "movie",
		Overview:     match.Overview,
	}
}

// resolveTV mirrors resolveMovie and additionally fetches season/episode
// counts. A failed details fetch leaves the counts unknown but keeps the item.
func (s *Service) resolveTV(ctx context.Context, title string, year int) *models.FranchiseContent {
	results, err := s.metadata.SearchTV(ctx, title, year)
	if err != nil {
		log.Printf("[franchise] dropping series %q: search failed: %v", title, err)
		return nil
	}
	if len(results) == 0 && year > 0 {
		results, err = s.metadata.SearchTV(ctx, title, 0)
		if err != nil {
			log.Printf("[franchise] dropping series %q: fallback search failed: %v", title, err)
			return nil
		}
	}
	if len(results) == 0 {
		log.Printf("[franchise] dropping series %q: no results", title)
		return nil
	}

	match := results[0]
	if year > 0 {
		prefix := strconv.Itoa(year)
		for _, r := range results {
			if strings.HasPrefix(r.FirstAirDate, prefix) {
				match = r
				break
			}
		}
	}

	content := &models.FranchiseContent{
		ID:           match.ID,
		Title:        match.Name,
		PosterPath:   match.PosterPath,
		BackdropPath: match.BackdropPath,
		ReleaseDate:  match.FirstAirDate,
		MediaType:    "tv",
		Overview:     match.Overview,
	}

	details, err := s.metadata.TVDetails(ctx, match.ID)
	if err != nil {
		log.Printf("[franchise] details fetch for series %q (%d) failed: %v", match.Name, match.ID, err)
		return content
	}
	content.NumberOfSeasons = &details.NumberOfSeasons
	content.NumberOfEpisodes = &details.NumberOfEpisodes
	return content
}

// resolveTitleOnly handles legacy bare-title items: try movies first, then
// series, first result wins. No year disambiguation is available here.
func (s *Service) resolveTitleOnly(ctx context.Context, title string) *models.FranchiseContent {
	movies, err := s.metadata.SearchMovies(ctx, title, 0)
	if err != nil {
		log.Printf("[franchise] dropping %q: movie search failed: %v", title, err)
		return nil
	}
	if len(movies) > 0 {
		m := movies[0]
		return &models.FranchiseContent{
			ID:           m.ID,
			Title:        m.Title,
			PosterPath:   m.PosterPath,
			BackdropPath: m.BackdropPath,
			ReleaseDate:  m.ReleaseDate,
			MediaType:    "movie",
			Overview:     m.Overview,
		}
	}

	series, err := s.metadata.SearchTV(ctx, title, 0)
	if err != nil {
		log.Printf("[franchise] dropping %q: tv search failed: %v", title, err)
		return nil
	}
	if len(series) == 0 {
		log.Printf("[franchise] dropping %q: no results as movie or series", title)
		return nil
	}
	t := series[0]
	return &models.FranchiseContent{
		ID:           t.ID,
		Title:        t.Name,
		PosterPath:   t.PosterPath,
		BackdropPath: t.BackdropPath,
		ReleaseDate:  t.FirstAirDate,
		MediaType:    "tv",
		Overview:     t.Overview,
	}
}

// dedupe removes duplicate IDs with insertion-order map semantics: the first
// occurrence fixes the position, a later duplicate overwrites the stored
// value. Franchises can legitimately hit the same ID twice via crossovers and
// search fallbacks.
func dedupe(items []models.FranchiseContent) []models.FranchiseContent {
	out := make([]models.FranchiseContent, 0, len(items))
	position := make(map[int]int, len(items))
	for _, item := range items {
		if pos, seen := position[item.ID]; seen {
			out[pos] = item
			continue
		}
		position[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

func firstArtwork(content []models.FranchiseContent) string {
	if len(content) == 0 {
		return ""
	}
	if content[0].BackdropPath != "" {
		return content[0].BackdropPath
	}
	return content[0].PosterPath
}

// Cached returns the persisted record for a slug, nil when absent.
func (s *Service) Cached(id string) (*models.Franchise, error) {
	return s.store.Get(id)
}

// List returns all persisted franchises.
func (s *Service) List() ([]models.Franchise, error) {
	return s.store.List()
}

// Remove deletes a persisted franchise.
func (s *Service) Remove(id string) (bool, error) {
	return s.store.Delete(id)
}

// CollectionContent gathers content for a catalog-defined franchise (keyword
// or company discovery) sorted by ascending release date. Custom AI-curated
// records keep their stored in-universe order instead.
func (s *Service) CollectionContent(ctx context.Context, f *models.Franchise) ([]models.FranchiseContent, error) {
	if f.IsCustom {
		return f.Content, nil
	}

	var filter metadata.DiscoverFilter
	switch f.Type {
	case "keyword":
		filter.KeywordID = f.Value
	case "company":
		filter.CompanyID = f.Value
	default:
		return nil, fmt.Errorf("unknown franchise type %q", f.Type)
	}

	var content []models.FranchiseContent

	movies, totalPages, err := s.metadata.DiscoverMovies(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	for page := 2; page <= totalPages && page <= maxDiscoverPages; page++ {
		more, _, err := s.metadata.DiscoverMovies(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		movies = append(movies, more...)
	}
	for _, m := range movies {
		content = append(content, models.FranchiseContent{
			ID:           m.ID,
			Title:        m.Title,
			PosterPath:   m.PosterPath,
			BackdropPath: m.BackdropPath,
			ReleaseDate:  m.ReleaseDate,
			MediaType:    "movie",
			Overview:     m.Overview,
		})
	}

	series, _, err := s.metadata.DiscoverTV(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	for _, t := range series {
		content = append(content, models.FranchiseContent{
			ID:           t.ID,
			Title:        t.Name,
			PosterPath:   t.PosterPath,
			BackdropPath: t.BackdropPath,
			ReleaseDate:  t.FirstAirDate,
			MediaType:    "tv",
			Overview:     t.Overview,
		})
	}

	content = sortByReleaseDate(content)
	return dedupe(content), nil
}

// sortByReleaseDate drops undated or unparsable items and sorts the rest
// ascending. The discovery path has no curator ordering to preserve.
func sortByReleaseDate(items []models.FranchiseContent) []models.FranchiseContent {
	type dated struct {
		item models.FranchiseContent
		at   time.Time
	}
	ds := make([]dated, 0, len(items))
	for _, item := range items {
		if item.ReleaseDate == "" {
			continue
		}
		at, err := time.Parse("2006-01-02", item.ReleaseDate)
		if err != nil {
			continue
		}
		ds = append(ds, dated{item: item, at: at})
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].at.Before(ds[j].at) })

	out := make([]models.FranchiseContent, len(ds))
	for i, d := range ds {
		out[i] = d.item
	}
	return out
}
