package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Provider is the interface for any text-analysis backend. It takes one
// free-text prompt and returns the completion text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CallObserver receives per-call metrics from Failover (wired by main for
// Prometheus).
type CallObserver func(endpoint, outcome string, duration float64)

// Failover tries a primary Provider and falls back to a secondary on any
// primary error. A fallback failure is terminal for the call.
type Failover struct {
	primary  Provider
	fallback Provider
	logger   log.Logger
	observe  CallObserver
}

// NewFailover creates the primary/fallback calling convention shared by the
// moderation gate, office router, and incident classifier.
func NewFailover(primary, fallback Provider, logger log.Logger, observe CallObserver) *Failover {
	if logger == nil {
		logger = log.Nop()
	}
	if observe == nil {
		observe = func(string, string, float64) {}
	}
	return &Failover{primary: primary, fallback: fallback, logger: logger, observe: observe}
}

// Complete sends the prompt to the primary endpoint, then to the fallback if
// the primary fails.
func (f *Failover) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := f.primary.Complete(ctx, prompt)
	if err == nil {
		f.observe("primary", "ok", time.Since(start).Seconds())
		return text, nil
	}
	f.observe("primary", "error", time.Since(start).Seconds())
	f.logger.Warn(ctx, "primary llm endpoint failed, trying fallback", "error", err)

	if f.fallback == nil {
		return "", fmt.Errorf("primary endpoint: %w", err)
	}

	start = time.Now()
	text, ferr := f.fallback.Complete(ctx, prompt)
	if ferr != nil {
		f.observe("fallback", "error", time.Since(start).Seconds())
		return "", fmt.Errorf("fallback endpoint: %w", ferr)
	}
	f.observe("fallback", "ok", time.Since(start).Seconds())
	return text, nil
}
