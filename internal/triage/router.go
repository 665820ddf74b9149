package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

// OfficeRouter maps a report's free text to one handling office.
type OfficeRouter struct {
	provider Provider
	logger   log.Logger
}

// NewOfficeRouter creates an office router over the given provider.
func NewOfficeRouter(provider Provider, logger log.Logger) *OfficeRouter {
	if logger == nil {
		logger = log.Nop()
	}
	return &OfficeRouter{provider: provider, logger: logger}
}

// AssignOffice asks the collaborator for an office code. A collaborator
// failure is returned to the caller; an unrecognized code falls back to
// DefaultOffice.
func (r *OfficeRouter) AssignOffice(ctx context.Context, description, location string, tagNames []string) (Office, error) {
	text, err := r.provider.Complete(ctx, buildRoutingPrompt(description, location, tagNames))
	if err != nil {
		return Office{}, fmt.Errorf("assign office: %w", err)
	}

	code := strings.ToUpper(strings.Trim(strings.TrimSpace(stripCodeFences(text)), `"'.`))
	office, ok := OfficeByCode(code)
	if !ok {
		r.logger.Warn(ctx, "unrecognized office code, using default",
			"code", code, "default", DefaultOffice.Code)
		return DefaultOffice, nil
	}
	return office, nil
}

func buildRoutingPrompt(description, location string, tagNames []string) string {
	var sb strings.Builder

	sb.WriteString("Route this campus incident report to the correct handling office.\n\n")
	sb.WriteString("Report description:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nLocation: ")
	sb.WriteString(location)
	if len(tagNames) > 0 {
		sb.WriteString("\nCategory tags: ")
		sb.WriteString(strings.Join(tagNames, ", "))
	}

	sb.WriteString("\n\nOffices:\n")
	for _, o := range Offices {
		sb.WriteString("- ")
		sb.WriteString(o.Code)
		sb.WriteString(": ")
		sb.WriteString(o.Name)
		sb.WriteString(" - ")
		sb.WriteString(o.Description)
		sb.WriteString("\n")
	}

	sb.WriteString("\nReturn ONLY the office code (e.g. FACILITIES), no other text.")
	return sb.String()
}
