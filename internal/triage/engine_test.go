package triage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/beacon/internal/similarity"
	"github.com/linnemanlabs/go-core/log"
)

const allowJSON = `{"decision":"ALLOW","confidence":0.9,"reasons":["factual"]}`
const blockJSON = `{"decision":"BLOCK","confidence":0.95,"reasons":["harassment"]}`

type scripted struct {
	text string
	err  error
}

// scriptedProvider dispatches on prompt kind and consumes responses in order,
// so concurrent and sequential attempts can be scripted independently.
type scriptedProvider struct {
	mu       sync.Mutex
	route    []scripted
	classify []scripted
	moderate []scripted
	rIdx     int
	cIdx     int
	mIdx     int
}

func (p *scriptedProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pop := func(s []scripted, idx *int) (string, error) {
		if *idx >= len(s) {
			return "", errors.New("unexpected extra call")
		}
		r := s[*idx]
		*idx++
		return r.text, r.err
	}

	switch {
	case strings.Contains(prompt, "Route this campus incident"):
		return pop(p.route, &p.rIdx)
	case strings.Contains(prompt, "concrete incident"):
		return pop(p.classify, &p.cIdx)
	case strings.Contains(prompt, "abusive or defamatory"):
		return pop(p.moderate, &p.mIdx)
	default:
		return "", errors.New("unknown prompt")
	}
}

// mockFinder records FindSimilar calls.
type mockFinder struct {
	mu      sync.Mutex
	results []similarity.Result
	err     error
	calls   int
	lastTag []string
}

func (m *mockFinder) FindSimilar(_ context.Context, queryTags []string, _ int) ([]similarity.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTag = queryTags
	return m.results, m.err
}

func testDraft() *Draft {
	return &Draft{
		IncidentType:     "maintenance",
		Description:      "the stairwell light in Hall B has been out for a week",
		EnhancedLocation: "Hall B, 12 Campus Way, stairwell 2",
		Tags:             []string{"broken-lightbulb", "stairwell", "safety-hazard"},
	}
}

func TestRun_AllowedReport(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		route:    []scripted{{text: "FACILITIES"}},
		classify: []scripted{{text: "true"}},
		moderate: []scripted{{text: allowJSON}},
	}
	finder := &mockFinder{results: []similarity.Result{{ID: "inc-1", Score: 0.75}}}
	engine := NewEngine(provider, finder, log.Nop(), EngineHooks{})

	result, err := engine.Run(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Decision != DecisionAllow {
		t.Errorf("decision = %q, want ALLOW", result.Decision)
	}
	if result.SuggestedOffice != "FACILITIES" {
		t.Errorf("office = %q, want FACILITIES", result.SuggestedOffice)
	}
	if !result.IsIncident {
		t.Error("expected IsIncident")
	}
	if result.NormalizedLocation != "Hall B, 12 Campus Way, stairwell 2" {
		t.Errorf("location = %q", result.NormalizedLocation)
	}
	if len(result.SimilarIncidents) != 1 || result.SimilarIncidents[0].ID != "inc-1" {
		t.Errorf("similar = %+v, want inc-1", result.SimilarIncidents)
	}
	if finder.calls != 1 {
		t.Errorf("finder calls = %d, want 1", finder.calls)
	}
}

func TestRun_BlockedSkipsSimilarity(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		route:    []scripted{{text: "SECURITY"}},
		classify: []scripted{{text: "true"}},
		moderate: []scripted{{text: blockJSON}},
	}
	finder := &mockFinder{}
	engine := NewEngine(provider, finder, log.Nop(), EngineHooks{})

	result, err := engine.Run(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Decision != DecisionBlock {
		t.Errorf("decision = %q, want BLOCK", result.Decision)
	}
	if result.SimilarIncidents != nil {
		t.Errorf("similar = %+v, want none", result.SimilarIncidents)
	}
	if finder.calls != 0 {
		t.Errorf("finder calls = %d, want 0 (no search for rejected content)", finder.calls)
	}
}

func TestRun_FailureRetriesSequentiallyAllOrNothing(t *testing.T) {
	t.Parallel()

	// First (concurrent) attempt: routing fails, classification says false.
	// Second (sequential) attempt: routing says SECURITY, classification true.
	// The result must carry only second-attempt values: classification true
	// proves the concurrent "false" was discarded, not mixed in.
	provider := &scriptedProvider{
		route:    []scripted{{err: errors.New("boom")}, {text: "SECURITY"}},
		classify: []scripted{{text: "false"}, {text: "true"}},
		moderate: []scripted{{text: allowJSON}, {text: allowJSON}},
	}
	finder := &mockFinder{}

	fallbacks := 0
	engine := NewEngine(provider, finder, log.Nop(), EngineHooks{
		OnFallback: func() { fallbacks++ },
	})

	result, err := engine.Run(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.SuggestedOffice != "SECURITY" {
		t.Errorf("office = %q, want SECURITY (from sequential attempt)", result.SuggestedOffice)
	}
	if !result.IsIncident {
		t.Error("IsIncident = false, want true from sequential attempt, not the discarded concurrent value")
	}
	if fallbacks != 1 {
		t.Errorf("fallbacks = %d, want exactly 1", fallbacks)
	}
}

func TestRun_SequentialFailureIsTerminal(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		route:    []scripted{{err: errors.New("first")}, {err: errors.New("second")}},
		classify: []scripted{{text: "true"}, {text: "true"}},
		moderate: []scripted{{text: allowJSON}, {text: allowJSON}},
	}
	engine := NewEngine(provider, &mockFinder{}, log.Nop(), EngineHooks{})

	_, err := engine.Run(context.Background(), testDraft())
	if err == nil {
		t.Fatal("expected terminal error after sequential failure")
	}
	if !strings.Contains(err.Error(), "sequential triage") {
		t.Errorf("err = %v, want sequential triage wrap", err)
	}
}

func TestRun_SimilarityFailurePropagates(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		route:    []scripted{{text: "FACILITIES"}},
		classify: []scripted{{text: "true"}},
		moderate: []scripted{{text: allowJSON}},
	}
	finder := &mockFinder{err: errors.New("candidate store down")}
	engine := NewEngine(provider, finder, log.Nop(), EngineHooks{})

	_, err := engine.Run(context.Background(), testDraft())
	if err == nil {
		t.Fatal("expected error when candidate refresh fails")
	}
	if !strings.Contains(err.Error(), "similar incidents") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_ModerationGarbageStillCompletes(t *testing.T) {
	t.Parallel()

	// The gate fails open, so garbage moderation output never trips the join.
	provider := &scriptedProvider{
		route:    []scripted{{text: "HEALTH_SAFETY"}},
		classify: []scripted{{text: "true"}},
		moderate: []scripted{{text: "not json at all"}},
	}
	engine := NewEngine(provider, &mockFinder{}, log.Nop(), EngineHooks{})

	result, err := engine.Run(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Decision != DecisionAllow || result.Confidence != 0.3 {
		t.Errorf("verdict = %s/%v, want default ALLOW/0.3", result.Decision, result.Confidence)
	}
}

func TestRun_CompleteHook(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		route:    []scripted{{text: "IT_SERVICES"}},
		classify: []scripted{{text: "false"}},
		moderate: []scripted{{text: allowJSON}},
	}

	var event *CompleteEvent
	engine := NewEngine(provider, &mockFinder{}, log.Nop(), EngineHooks{
		OnComplete: func(e *CompleteEvent) { event = e },
	})

	if _, err := engine.Run(context.Background(), testDraft()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if event == nil {
		t.Fatal("expected OnComplete")
	}
	if event.Decision != DecisionAllow || event.Office != "IT_SERVICES" {
		t.Errorf("event = %+v", event)
	}
	if event.Sequential {
		t.Error("Sequential = true, want false")
	}
	if event.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestRun_EmitsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	provider := &scriptedProvider{
		route:    []scripted{{text: "FACILITIES"}},
		classify: []scripted{{text: "true"}},
		moderate: []scripted{{text: allowJSON}},
	}
	engine := NewEngine(provider, &mockFinder{}, log.Nop(), EngineHooks{})

	if _, err := engine.Run(context.Background(), testDraft()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	spans := exporter.GetSpans()
	found := false
	for _, s := range spans {
		if s.Name == "triage.Run" {
			found = true
		}
	}
	if !found {
		t.Errorf("no triage.Run span in %d exported spans", len(spans))
	}
}
