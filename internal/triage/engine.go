package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/beacon/internal/similarity"
	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/triage")

// SimilarLimit is the fixed number of similar incidents attached to an
// allowed result.
const SimilarLimit = 3

// SimilarityFinder is the duplicate-detection collaborator.
type SimilarityFinder interface {
	FindSimilar(ctx context.Context, queryTags []string, limit int) ([]similarity.Result, error)
}

// EngineHooks are optional callbacks for instrumentation. Nil fields are
// no-ops.
type EngineHooks struct {
	OnModerationDefault func(cause string)
	OnFallback          func()
	OnComplete          func(e *CompleteEvent)
}

// CompleteEvent describes one finished triage run.
type CompleteEvent struct {
	Decision     Decision
	Office       string
	IsIncident   bool
	Sequential   bool
	Duration     float64
	SimilarCount int
}

// Engine runs the triage pipeline: office routing, incident classification,
// and moderation fan out concurrently; a failed join is retried once, fully
// sequentially; similarity search runs only for allowed content.
type Engine struct {
	router     *OfficeRouter
	classifier *Classifier
	gate       *Gate
	similar    SimilarityFinder
	logger     log.Logger
	hooks      EngineHooks
}

// NewEngine creates a triage engine. All three analysis components share the
// given provider.
func NewEngine(provider Provider, similar SimilarityFinder, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if hooks.OnFallback == nil {
		hooks.OnFallback = func() {}
	}
	if hooks.OnComplete == nil {
		hooks.OnComplete = func(*CompleteEvent) {}
	}
	return &Engine{
		router:     NewOfficeRouter(provider, logger),
		classifier: NewClassifier(provider, logger),
		gate:       NewGate(provider, logger, hooks.OnModerationDefault),
		similar:    similar,
		logger:     logger,
		hooks:      hooks,
	}
}

// Run triages a draft. It fails only when both the concurrent attempt and the
// single sequential re-run fail, or when the similarity query fails for an
// allowed report.
func (e *Engine) Run(ctx context.Context, draft *Draft) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "triage.Run")
	defer span.End()

	office, isIncident, verdict, err := e.concurrent(ctx, draft)
	sequential := false
	if err != nil {
		// Partial concurrent output is discarded wholesale: the final result
		// must never mix values from two different attempts.
		e.logger.Warn(ctx, "concurrent triage failed, re-running sequentially", "error", err)
		e.hooks.OnFallback()
		span.AddEvent("sequential fallback")
		sequential = true

		office, isIncident, verdict, err = e.sequentialRun(ctx, draft)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("sequential triage: %w", err)
		}
	}

	// Results combine in a fixed order (office, classification, moderation)
	// regardless of completion order.
	result := &Result{
		Decision:           verdict.Decision,
		Confidence:         verdict.Confidence,
		Reasons:            verdict.Reasons,
		SuggestedTags:      draft.Tags,
		SuggestedOffice:    office.Code,
		NormalizedLocation: draft.EnhancedLocation,
		IsIncident:         isIncident,
	}

	if verdict.Decision == DecisionAllow {
		similar, err := e.similar.FindSimilar(ctx, draft.Tags, SimilarLimit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("similar incidents: %w", err)
		}
		result.SimilarIncidents = similar
	}

	span.SetAttributes(
		attribute.String("beacon.triage.decision", string(result.Decision)),
		attribute.String("beacon.triage.office", result.SuggestedOffice),
		attribute.Bool("beacon.triage.sequential", sequential),
		attribute.Int("beacon.triage.similar", len(result.SimilarIncidents)),
	)
	e.hooks.OnComplete(&CompleteEvent{
		Decision:     result.Decision,
		Office:       result.SuggestedOffice,
		IsIncident:   result.IsIncident,
		Sequential:   sequential,
		Duration:     time.Since(start).Seconds(),
		SimilarCount: len(result.SimilarIncidents),
	})
	return result, nil
}

// concurrent fans out the three independent analysis calls and joins them.
// On any failure the partial results are discarded and zero values returned.
func (e *Engine) concurrent(ctx context.Context, draft *Draft) (Office, bool, Verdict, error) {
	var (
		office     Office
		isIncident bool
		verdict    Verdict
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := e.router.AssignOffice(gctx, draft.Description, draft.EnhancedLocation, draft.Tags)
		office = o
		return err
	})
	g.Go(func() error {
		v, err := e.classifier.Classify(gctx, draft.IncidentType, draft.Description)
		isIncident = v
		return err
	})
	g.Go(func() error {
		// The gate absorbs collaborator failures into a default verdict, so
		// it never trips the join.
		verdict = e.gate.Review(gctx, draft.IncidentType, draft.Description, draft.EnhancedLocation, draft.Tags, OfficeNames())
		return nil
	})

	if err := g.Wait(); err != nil {
		return Office{}, false, Verdict{}, err
	}
	return office, isIncident, verdict, nil
}

// sequentialRun re-executes the same three calls in-process, in order. Any
// failure here is terminal.
func (e *Engine) sequentialRun(ctx context.Context, draft *Draft) (Office, bool, Verdict, error) {
	office, err := e.router.AssignOffice(ctx, draft.Description, draft.EnhancedLocation, draft.Tags)
	if err != nil {
		return Office{}, false, Verdict{}, err
	}
	isIncident, err := e.classifier.Classify(ctx, draft.IncidentType, draft.Description)
	if err != nil {
		return Office{}, false, Verdict{}, err
	}
	verdict := e.gate.Review(ctx, draft.IncidentType, draft.Description, draft.EnhancedLocation, draft.Tags, OfficeNames())
	return office, isIncident, verdict, nil
}
