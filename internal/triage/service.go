package triage

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/beacon/internal/tags"
	"github.com/linnemanlabs/go-core/log"
)

// TagRegistry canonicalizes free-form tag labels into stored tags.
type TagRegistry interface {
	Ensure(ctx context.Context, names []string) ([]tags.Tag, error)
}

// Service is the business boundary for triage operations. It canonicalizes
// the draft's tags through the registry, then runs the pipeline.
type Service struct {
	registry TagRegistry
	engine   *Engine
	logger   log.Logger
	submits  func(result string)
}

// NewService creates a triage service. submits, if non-nil, receives the
// outcome ("ok" or "error") of every triage call.
func NewService(registry TagRegistry, engine *Engine, logger log.Logger, submits func(result string)) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if submits == nil {
		submits = func(string) {}
	}
	return &Service{
		registry: registry,
		engine:   engine,
		logger:   logger,
		submits:  submits,
	}
}

// Triage runs the full pipeline for one draft and returns the consolidated
// result. The draft and everything derived from it live only for this call.
func (s *Service) Triage(ctx context.Context, draft *Draft) (*Result, error) {
	canonical, err := s.registry.Ensure(ctx, draft.Tags)
	if err != nil {
		s.submits("error")
		return nil, fmt.Errorf("ensure tags: %w", err)
	}

	names := make([]string, len(canonical))
	for i, t := range canonical {
		names[i] = t.Name
	}
	draft.Tags = names

	result, err := s.engine.Run(ctx, draft)
	if err != nil {
		s.submits("error")
		return nil, err
	}
	s.submits("ok")

	s.logger.Info(ctx, "triage complete",
		"decision", result.Decision,
		"office", result.SuggestedOffice,
		"is_incident", result.IsIncident,
		"tags", len(result.SuggestedTags),
		"similar", len(result.SimilarIncidents),
	)
	return result, nil
}
