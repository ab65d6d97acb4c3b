// Package search builds and queries the fuzzy full-text index over the
// site's public posts, pages, tags and authors. The index is a pure
// function of the latest fetched content snapshot: it is rebuilt
// wholesale whenever it goes stale, never patched in place.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/twhitfield/ghost-discord-bot/internal/cache"
	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/metrics"
)

// DefaultIndexTTL bounds how long a built index may serve queries.
const DefaultIndexTTL = 10 * time.Minute

const defaultLimit = 10

// Snapshot is the built document set plus its build time, cached in the
// long pool so a restarted process can warm-start without refetching.
type Snapshot struct {
	Documents []Document
	BuiltAt   time.Time
}

// Options narrows a search.
type Options struct {
	// Type restricts results to one document type (post, page, tag, author).
	Type string
	// Limit caps the result list. Zero means the default of 10.
	Limit int
}

// Result is one scored document. Lower scores are better matches.
type Result struct {
	Document
	Score float64 `json:"score"`
}

// Results is the answer to one query. Total counts matches after type
// filtering but before truncation.
type Results struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Stats describes the current index state.
type Stats struct {
	IndexExists bool      `json:"index_exists"`
	Valid       bool      `json:"valid"`
	BuiltAt     time.Time `json:"built_at"`
	Documents   int       `json:"documents"`
}

// Service answers fuzzy queries and prefix suggestions over the content
// index, rebuilding it on demand when stale.
type Service struct {
	source   ContentSource
	cache    *cache.Cache
	indexTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	docs    []Document
	builtAt time.Time
}

// New creates a search Service backed by the given content source and
// cache.
func New(source ContentSource, c *cache.Cache) *Service {
	return &Service{
		source:   source,
		cache:    c,
		indexTTL: DefaultIndexTTL,
		now:      time.Now,
	}
}

func (s *Service) indexValid() bool {
	return s.docs != nil && s.now().Sub(s.builtAt) < s.indexTTL
}

// ensureIndex guarantees a valid in-memory index, warm-starting from the
// cached snapshot when its build time is still within the TTL, otherwise
// rebuilding from the content source. Callers must hold s.mu.
func (s *Service) ensureIndex(ctx context.Context) error {
	if s.indexValid() {
		return nil
	}

	if v, ok := s.cache.Get(cache.SearchIndexKey(), cache.PoolLong); ok {
		if snap, ok := v.(*Snapshot); ok && s.now().Sub(snap.BuiltAt) < s.indexTTL {
			s.docs = snap.Documents
			s.builtAt = snap.BuiltAt
			slog.Info("Loaded search index from cache", "documents", len(s.docs))
			return nil
		}
	}

	return s.build(ctx)
}

// build fetches the complete public content snapshot and replaces the
// index. Callers must hold s.mu.
func (s *Service) build(ctx context.Context) error {
	slog.Info("Building search index...")

	var (
		posts   *ghost.PostsResponse
		pages   *ghost.PagesResponse
		tags    *ghost.TagsResponse
		authors *ghost.AuthorsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		posts, err = s.source.Posts(gctx, ghost.Params{"limit": "all"})
		return err
	})
	g.Go(func() (err error) {
		pages, err = s.source.Pages(gctx, ghost.Params{"limit": "all"})
		return err
	})
	g.Go(func() (err error) {
		tags, err = s.source.Tags(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		authors, err = s.source.Authors(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	docs := make([]Document, 0, len(posts.Posts)+len(pages.Pages)+len(tags.Tags)+len(authors.Authors))
	for _, p := range posts.Posts {
		docs = append(docs, documentFromPost(p))
	}
	for _, p := range pages.Pages {
		docs = append(docs, documentFromPage(p))
	}
	for _, t := range tags.Tags {
		if t.IsPublic() {
			docs = append(docs, documentFromTag(t))
		}
	}
	for _, a := range authors.Authors {
		docs = append(docs, documentFromAuthor(a))
	}

	s.docs = docs
	s.builtAt = s.now()
	s.cache.SetTTL(cache.SearchIndexKey(), &Snapshot{Documents: docs, BuiltAt: s.builtAt}, cache.DefaultLongTTL, cache.PoolLong)

	metrics.IndexBuilds.Inc()
	metrics.IndexDocuments.Set(float64(len(docs)))
	slog.Info("Search index built", "documents", len(docs))
	return nil
}

// snapshot returns the current document set, rebuilding first if needed.
func (s *Service) snapshot(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return s.docs, nil
}

// Search answers a fuzzy query. Queries shorter than two characters
// return an empty result set.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*Results, error) {
	metrics.SearchQueries.Inc()

	normalized := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(normalized)) < MinQueryLength {
		return &Results{Results: []Result{}, Query: query}, nil
	}

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	matches := s.match(docs, normalized, queryTolerance)

	if opts.Type != "" {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Type == opts.Type {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	total := len(matches)
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	return &Results{Results: matches, Total: total, Query: query}, nil
}

func (s *Service) match(docs []Document, normalizedQuery string, tolerance float64) []Result {
	var matches []Result
	for _, doc := range docs {
		if score, ok := scoreDocument(normalizedQuery, doc, tolerance); ok {
			matches = append(matches, Result{Document: doc, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return matches[i].Title < matches[j].Title
	})
	return matches
}

// Suggestions returns up to limit titles matching a partial query with a
// looser tolerance than regular queries, then narrowed to titles that
// literally contain the partial query (case-insensitive).
func (s *Service) Suggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(partial))
	if len([]rune(normalized)) < MinQueryLength {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	docs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	matches := s.match(docs, normalized, suggestionTolerance)
	if len(matches) > limit*2 {
		matches = matches[:limit*2]
	}

	seen := make(map[string]struct{})
	var suggestions []string
	for _, m := range matches {
		if !strings.Contains(strings.ToLower(m.Title), normalized) {
			continue
		}
		if _, dup := seen[m.Title]; dup {
			continue
		}
		seen[m.Title] = struct{}{}
		suggestions = append(suggestions, m.Title)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

// Refresh drops the in-memory index and the cached snapshot, then
// rebuilds immediately.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = nil
	s.builtAt = time.Time{}
	s.cache.Delete(cache.SearchIndexKey(), cache.PoolLong)

	if err := s.build(ctx); err != nil {
		return err
	}
	slog.Info("Search index refreshed")
	return nil
}

// GetStats reports the current index state.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		IndexExists: s.docs != nil,
		Valid:       s.indexValid(),
		BuiltAt:     s.builtAt,
		Documents:   len(s.docs),
	}
}
