// Package pgstore provides a PostgreSQL implementation of similarity.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/similarity"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/similarity/pgstore")

//go:embed schema.sql
var schema string

// activeStatuses are incident statuses eligible for candidate scoring: still
// open, or resolved recently enough that the row has not been closed out.
var activeStatuses = []string{"open", "in_progress", "resolved"}

// terminalStatuses mark a finished incident for the resolved-at lookup.
var terminalStatuses = []string{"resolved", "closed"}

// Store reads similarity candidates from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply incidents schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// ActiveCandidates returns up to max active incidents with tags eagerly
// loaded, newest submissions first.
func (s *Store) ActiveCandidates(ctx context.Context, max int) ([]similarity.Candidate, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ActiveCandidates", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT i.id, i.tracking_number, i.incident_type, i.location, i.office,
		        i.resolution_notes, i.submitted_at,
		        COALESCE(array_agg(t.tag) FILTER (WHERE t.tag IS NOT NULL), '{}')
		 FROM incidents i
		 LEFT JOIN incident_tags t ON t.incident_id = i.id
		 WHERE i.status = ANY($1)
		 GROUP BY i.id
		 ORDER BY i.submitted_at DESC
		 LIMIT $2`,
		activeStatuses, max,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []similarity.Candidate
	for rows.Next() {
		var c similarity.Candidate
		if err := rows.Scan(
			&c.ID, &c.TrackingNumber, &c.IncidentType, &c.Location, &c.Office,
			&c.ResolutionNotes, &c.SubmittedAt, &c.Tags,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	span.SetAttributes(attribute.Int("beacon.similarity.candidates", len(out)))
	return out, nil
}

// ResolvedAt returns the most recent terminal status transition for the
// incident, if one exists.
func (s *Store) ResolvedAt(ctx context.Context, incidentID string) (time.Time, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ResolvedAt", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var ts time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT created_at FROM status_updates
		 WHERE incident_id = $1 AND status = ANY($2)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		incidentID, terminalStatuses,
	).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return time.Time{}, false, fmt.Errorf("scan resolved-at: %w", err)
	}
	return ts, true, nil
}
