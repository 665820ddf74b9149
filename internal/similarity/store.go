package similarity

import (
	"context"
	"time"
)

// Store is the read-side collaborator the engine refreshes candidates from.
type Store interface {
	// ActiveCandidates returns up to max open or recently resolved incidents
	// with their tag sets loaded, newest submissions first.
	ActiveCandidates(ctx context.Context, max int) ([]Candidate, error)

	// ResolvedAt returns the timestamp of the incident's most recent
	// transition into a terminal (resolved/closed) status, if one exists.
	ResolvedAt(ctx context.Context, incidentID string) (time.Time, bool, error)
}
