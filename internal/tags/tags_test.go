package tags_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/linnemanlabs/beacon/internal/tags"
	"github.com/linnemanlabs/beacon/internal/tags/memstore"
	"github.com/linnemanlabs/go-core/log"
)

func TestEnsure_Idempotent(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	r := tags.NewRegistry(store, log.Nop())
	ctx := context.Background()

	first, err := r.Ensure(ctx, []string{"Theft", "theft ", " THEFT"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d tags, want 1", len(first))
	}
	if first[0].Name != "Theft" {
		t.Errorf("Name = %q, want first writer's casing", first[0].Name)
	}
	if first[0].ID == "" || first[0].CreatedAt.IsZero() {
		t.Errorf("tag not fully populated: %+v", first[0])
	}

	second, err := r.Ensure(ctx, []string{"THEFT"})
	if err != nil {
		t.Fatalf("Ensure second call: %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Errorf("second Ensure = %+v, want the stored tag %q", second, first[0].ID)
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d tags, want 1", store.Len())
	}
}

func TestEnsure_SkipsBlanks(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	r := tags.NewRegistry(store, log.Nop())

	got, err := r.Ensure(context.Background(), []string{"", "  ", "vandalism", "\t"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(got) != 1 || got[0].Name != "vandalism" {
		t.Errorf("got %+v, want just vandalism", got)
	}
}

func TestEnsure_OrderFollowsInput(t *testing.T) {
	t.Parallel()

	r := tags.NewRegistry(memstore.New(), log.Nop())

	got, err := r.Ensure(context.Background(), []string{"noise", "parking", "Noise", "lighting"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	want := []string{"noise", "parking", "lighting"}
	if len(got) != len(want) {
		t.Fatalf("got %d tags, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name != w {
			t.Errorf("got[%d].Name = %q, want %q", i, got[i].Name, w)
		}
	}
}

func TestEnsure_ConcurrentSameName(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	r := tags.NewRegistry(store, log.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Ensure(context.Background(), []string{"flooding", fmt.Sprintf("extra-%d", i%4)}); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// One "flooding" plus extra-0..3.
	if store.Len() != 5 {
		t.Errorf("store holds %d tags, want 5", store.Len())
	}
}

// failingStore breaks on a chosen operation.
type failingStore struct {
	tags.Store
	failFind   bool
	failInsert bool
}

func (s *failingStore) FindByName(ctx context.Context, name string) (*tags.Tag, bool, error) {
	if s.failFind {
		return nil, false, errors.New("connection reset")
	}
	return s.Store.FindByName(ctx, name)
}

func (s *failingStore) Insert(ctx context.Context, tag *tags.Tag) error {
	if s.failInsert {
		return errors.New("connection reset")
	}
	return s.Store.Insert(ctx, tag)
}

func TestEnsure_StoreErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store *failingStore
		want  string
	}{
		{"find fails", &failingStore{Store: memstore.New(), failFind: true}, "find tag"},
		{"insert fails", &failingStore{Store: memstore.New(), failInsert: true}, "insert tag"},
	}

	for _, tt := range tests {
		r := tags.NewRegistry(tt.store, log.Nop())
		_, err := r.Ensure(context.Background(), []string{"graffiti"})
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q wrap", tt.name, err, tt.want)
		}
	}
}
