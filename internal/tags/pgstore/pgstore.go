// Package pgstore provides a PostgreSQL implementation of tags.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/tags"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/tags/pgstore")

//go:embed schema.sql
var schema string

// Store persists tags in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply tags schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// FindByName retrieves a tag by name, case-insensitively.
func (s *Store) FindByName(ctx context.Context, name string) (*tags.Tag, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.FindByName", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var t tags.Tag
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM tags WHERE lower(name) = lower($1)`,
		name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan tag: %w", err)
	}
	return &t, true, nil
}

// Insert stores a new tag.
func (s *Store) Insert(ctx context.Context, t *tags.Tag) error {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}
