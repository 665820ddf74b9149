// Package memstore provides an in-memory implementation of tags.Store.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/linnemanlabs/beacon/internal/tags"
)

// Store holds tags in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	byName map[string]*tags.Tag // lower-cased name -> tag
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{byName: make(map[string]*tags.Tag)}
}

// FindByName looks up a tag by name, case-insensitively. Returns a copy.
func (s *Store) FindByName(_ context.Context, name string) (*tags.Tag, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, false, nil
	}
	cp := *t
	return &cp, true, nil
}

// Insert stores a copy of the tag.
func (s *Store) Insert(_ context.Context, t *tags.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.byName[strings.ToLower(t.Name)] = &cp
	return nil
}

// Len reports the number of stored tags.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}
