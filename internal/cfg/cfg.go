package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds beacon-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds           int
	ShutdownBudgetSeconds  int
	APIPort                int
	ClaudeAPIKey           string
	ClaudeModel            string
	ClaudeFallbackModel    string
	DatabaseURL            string
	SimilarCacheTTLSeconds int
	SimilarMaxCandidates   int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "primary Claude model")
	fs.StringVar(&c.ClaudeFallbackModel, "claude-fallback-model", "claude-3-5-haiku-20241022", "fallback Claude model tried when the primary call fails (empty = no fallback)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory stores)")
	fs.IntVar(&c.SimilarCacheTTLSeconds, "similar-cache-ttl-seconds", 600, "seconds before the similarity candidate cache is refreshed (1..3600)")
	fs.IntVar(&c.SimilarMaxCandidates, "similar-max-candidates", 30, "maximum incidents held in the similarity candidate cache (1..500)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude API key and primary model are required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.SimilarCacheTTLSeconds <= 0 || c.SimilarCacheTTLSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid SIMILAR_CACHE_TTL_SECONDS %d (must be 1..3600)", c.SimilarCacheTTLSeconds))
	}
	if c.SimilarMaxCandidates <= 0 || c.SimilarMaxCandidates > 500 {
		errs = append(errs, fmt.Errorf("invalid SIMILAR_MAX_CANDIDATES %d (must be 1..500)", c.SimilarMaxCandidates))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
