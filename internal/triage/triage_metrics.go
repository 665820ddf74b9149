package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal        *prometheus.CounterVec
	TriageDuration      *prometheus.HistogramVec
	SequentialFallbacks prometheus.Counter
	ModerationDefaults  *prometheus.CounterVec
	LLMCallsTotal       *prometheus.CounterVec
	LLMDuration         prometheus.Histogram
	SimilarResults      prometheus.Histogram
	SubmitsTotal        *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_triages_total",
			Help: "Total triage runs by moderation decision and routed office.",
		}, []string{"decision", "office"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"decision"}),
		SequentialFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_triage_sequential_fallbacks_total",
			Help: "Concurrent joins that failed and were re-run sequentially.",
		}),
		ModerationDefaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_moderation_defaults_total",
			Help: "Moderation verdicts degraded to the fail-open default, by cause.",
		}, []string{"cause"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_llm_calls_total",
			Help: "Text-analysis collaborator calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_llm_call_duration_seconds",
			Help:    "Duration of individual collaborator calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		SimilarResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_similar_results",
			Help:    "Similar incidents attached per allowed triage.",
			Buckets: prometheus.LinearBuckets(0, 1, 4), // 0 .. 3
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_submits_total",
			Help: "Total triage submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.SequentialFallbacks,
		m.ModerationDefaults,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.SimilarResults,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnModerationDefault: func(cause string) {
			m.ModerationDefaults.WithLabelValues(cause).Inc()
		},
		OnFallback: func() {
			m.SequentialFallbacks.Inc()
		},
		OnComplete: func(e *CompleteEvent) {
			m.TriagesTotal.WithLabelValues(string(e.Decision), e.Office).Inc()
			m.TriageDuration.WithLabelValues(string(e.Decision)).Observe(e.Duration)
			if e.Decision == DecisionAllow {
				m.SimilarResults.Observe(float64(e.SimilarCount))
			}
		},
	}
}

// ObserveLLMCall records one collaborator call; wired into Failover.
func (m *Metrics) ObserveLLMCall(endpoint, outcome string, duration float64) {
	m.LLMCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.LLMDuration.Observe(duration)
}

// ObserveSubmit records one triage submission outcome; wired into Service.
func (m *Metrics) ObserveSubmit(result string) {
	m.SubmitsTotal.WithLabelValues(result).Inc()
}
