// Package similarity finds near-duplicate incidents by set-overlap scoring of
// tag sets against a bounded, time-expiring candidate cache.
package similarity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/similarity")

const (
	// ScoreThreshold is the minimum Jaccard score a candidate must reach to
	// be returned. Roughly "three of five tags in common" for typical sets.
	ScoreThreshold = 0.60

	// DefaultLimit is the number of results returned when the caller does
	// not ask for a specific limit.
	DefaultLimit = 3

	// DefaultMaxCandidates caps how many incidents the cache holds.
	DefaultMaxCandidates = 30

	// DefaultCacheTTL is how long a fetched candidate list stays fresh.
	DefaultCacheTTL = 10 * time.Minute
)

// Options tune the candidate cache. Zero values fall back to defaults.
type Options struct {
	MaxCandidates int
	CacheTTL      time.Duration
}

// Engine scores query tag sets against cached candidates. The cache is the
// only mutable shared state: refreshes are serialized and replace the whole
// list, so callers observe either the old list or the new one.
type Engine struct {
	store  Store
	logger log.Logger

	maxCandidates int
	ttl           time.Duration

	mu         sync.Mutex
	candidates []Candidate
	fetchedAt  time.Time

	now func() time.Time
}

// NewEngine creates a similarity engine over the given candidate store.
func NewEngine(store Store, logger log.Logger, opts Options) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Engine{
		store:         store,
		logger:        logger,
		maxCandidates: opts.MaxCandidates,
		ttl:           opts.CacheTTL,
		now:           time.Now,
	}
}

// FindSimilar returns up to limit candidates whose normalized tag sets score
// at or above ScoreThreshold against queryTags, ordered by descending score.
// Ties keep candidate scan order. An empty normalized query returns no
// results without touching the store. A failed cache refresh is a hard error.
func (e *Engine) FindSimilar(ctx context.Context, queryTags []string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := normalize(queryTags)
	if len(query) == 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "similarity.FindSimilar")
	defer span.End()
	span.SetAttributes(
		attribute.Int("beacon.similarity.query_tags", len(query)),
		attribute.Int("beacon.similarity.limit", limit),
	)

	candidates, err := e.snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var results []Result
	for i := range candidates {
		c := &candidates[i]
		set := normalize(c.Tags)
		if len(set) == 0 {
			continue
		}
		score := jaccard(query, set)
		if score < ScoreThreshold {
			continue
		}
		results = append(results, Result{
			ID:              c.ID,
			TrackingNumber:  c.TrackingNumber,
			Score:           score,
			IncidentType:    c.IncidentType,
			Location:        c.Location,
			Office:          c.Office,
			SubmittedAt:     c.SubmittedAt,
			ResolutionNotes: c.ResolutionNotes,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	// Resolved-at lookup is best effort: a miss or store error leaves the
	// field unset and never fails the query.
	for i := range results {
		ts, ok, err := e.store.ResolvedAt(ctx, results[i].ID)
		if err != nil {
			e.logger.Warn(ctx, "resolved-at lookup failed",
				"incident_id", results[i].ID, "error", err)
			continue
		}
		if ok {
			t := ts
			results[i].ResolvedAt = &t
		}
	}

	span.SetAttributes(
		attribute.Int("beacon.similarity.candidates", len(candidates)),
		attribute.Int("beacon.similarity.results", len(results)),
	)
	return results, nil
}

// snapshot returns the cached candidate list, refreshing it from the store
// when stale. Refreshes swap the whole list.
func (e *Engine) snapshot(ctx context.Context) ([]Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fetchedAt.IsZero() && e.now().Sub(e.fetchedAt) < e.ttl {
		return e.candidates, nil
	}

	fresh, err := e.store.ActiveCandidates(ctx, e.maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("refresh candidates: %w", err)
	}

	e.candidates = fresh
	e.fetchedAt = e.now()
	e.logger.Info(ctx, "candidate cache refreshed", "count", len(fresh))
	return e.candidates, nil
}

// normalize lower-cases, trims, drops empties, and dedupes into a set.
func normalize(raw []string) map[string]struct{} {
	set := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes |intersection| / |union| of two non-empty sets.
func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
