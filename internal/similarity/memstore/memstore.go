// Package memstore provides an in-memory implementation of similarity.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/beacon/internal/similarity"
)

// Store holds candidates in memory. Suitable for dev/testing.
type Store struct {
	mu         sync.RWMutex
	candidates []similarity.Candidate
	resolved   map[string]time.Time // incident ID -> resolved timestamp
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{resolved: make(map[string]time.Time)}
}

// Add appends a candidate. Newest additions are returned first.
func (s *Store) Add(c similarity.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]similarity.Candidate{c}, s.candidates...)
}

// SetResolved records the resolved timestamp for an incident.
func (s *Store) SetResolved(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved[id] = t
}

// ActiveCandidates returns a copy of up to max candidates, newest first.
func (s *Store) ActiveCandidates(_ context.Context, max int) ([]similarity.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.candidates)
	if max > 0 && n > max {
		n = max
	}
	out := make([]similarity.Candidate, n)
	copy(out, s.candidates[:n])
	return out, nil
}

// ResolvedAt returns the recorded resolved timestamp, if any.
func (s *Store) ResolvedAt(_ context.Context, incidentID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.resolved[incidentID]
	return t, ok, nil
}
