// Package tags owns the canonical category label registry. Labels arrive as
// free-form strings from upstream suggestion calls; the registry guarantees
// that repeated submissions of the same label (in any casing or padding)
// resolve to a single stored Tag.
package tags

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Tag is a persistent category label. Name keeps the casing of the first
// writer; comparisons are case-insensitive.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence interface for tags. FindByName must compare
// case-insensitively against the stored canonical name.
type Store interface {
	FindByName(ctx context.Context, name string) (*Tag, bool, error)
	Insert(ctx context.Context, tag *Tag) error
}

// Registry provides idempotent get-or-create semantics over a Store.
type Registry struct {
	store  Store
	logger log.Logger

	// mu serializes lookup-then-create so two concurrent callers with the
	// same new name never both insert.
	mu sync.Mutex
}

// NewRegistry creates a tag registry backed by the given store.
func NewRegistry(store Store, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{store: store, logger: logger}
}

// Ensure resolves each non-blank name to a stored Tag, creating tags that do
// not exist yet. Names are trimmed first; blanks are skipped; duplicates
// within the call (case-insensitive) collapse to one tag. Safe to call
// repeatedly with overlapping sets.
func (r *Registry) Ensure(ctx context.Context, names []string) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(names))
	out := make([]Tag, 0, len(names))

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		folded := strings.ToLower(name)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}

		existing, ok, err := r.store.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find tag %q: %w", name, err)
		}
		if ok {
			out = append(out, *existing)
			continue
		}

		tag := Tag{
			ID:        ulid.Make().String(),
			Name:      name,
			CreatedAt: time.Now(),
		}
		if err := r.store.Insert(ctx, &tag); err != nil {
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}
		r.logger.Info(ctx, "created tag", "tag_id", tag.ID, "name", tag.Name)
		out = append(out, tag)
	}

	return out, nil
}
