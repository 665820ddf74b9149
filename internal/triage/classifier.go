package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

// Classifier decides whether a report describes a genuine incident or a
// general concern.
type Classifier struct {
	provider Provider
	logger   log.Logger
}

// NewClassifier creates an incident classifier over the given provider.
func NewClassifier(provider Provider, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{provider: provider, logger: logger}
}

// Classify returns true when the report is a real incident. A collaborator
// failure is returned to the caller; an ambiguous token defaults to true so
// real incidents are never silently downgraded.
func (c *Classifier) Classify(ctx context.Context, incidentType, description string) (bool, error) {
	text, err := c.provider.Complete(ctx, buildClassifyPrompt(incidentType, description))
	if err != nil {
		return false, fmt.Errorf("classify incident: %w", err)
	}

	switch strings.ToLower(strings.Trim(strings.TrimSpace(stripCodeFences(text)), `"'.`)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		c.logger.Warn(ctx, "ambiguous classification token, defaulting to incident", "token", text)
		return true, nil
	}
}

func buildClassifyPrompt(incidentType, description string) string {
	var sb strings.Builder

	sb.WriteString("Decide whether this campus report describes a concrete incident ")
	sb.WriteString("(a specific event that happened or is happening) or a general concern ")
	sb.WriteString("(an opinion, suggestion, or non-specific worry).\n\n")
	sb.WriteString("Report type: ")
	sb.WriteString(incidentType)
	sb.WriteString("\nDescription:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nReturn ONLY the token true (concrete incident) or false (general concern).")

	return sb.String()
}
