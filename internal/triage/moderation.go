package triage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

// Default-verdict causes, surfaced as the single reason on a degraded verdict.
const (
	causeException = "exception"
	causeParse     = "parse-error"
	causeInvalid   = "Invalid response"
)

// defaultConfidence is the confidence kept when the response carries no
// usable numeric confidence.
const defaultConfidence = 0.5

// Gate reviews report content against the moderation policy. It never
// returns an error: when the collaborator is degraded or its response cannot
// be parsed, the gate fails open with an ALLOW verdict so legitimate reports
// are not silently dropped.
type Gate struct {
	provider  Provider
	logger    log.Logger
	onDefault func(cause string)
}

// NewGate creates a moderation gate. onDefault, if non-nil, is invoked with
// the cause each time the gate degrades to a default verdict.
func NewGate(provider Provider, logger log.Logger, onDefault func(cause string)) *Gate {
	if logger == nil {
		logger = log.Nop()
	}
	if onDefault == nil {
		onDefault = func(string) {}
	}
	return &Gate{provider: provider, logger: logger, onDefault: onDefault}
}

// Review moderates the report and returns a verdict.
func (g *Gate) Review(ctx context.Context, incidentType, description, location string, tagNames, officeNames []string) Verdict {
	text, err := g.provider.Complete(ctx, buildModerationPrompt(incidentType, description, location, tagNames, officeNames))
	if err != nil {
		g.logger.Warn(ctx, "moderation call failed, failing open", "error", err)
		return g.defaultVerdict(causeException)
	}
	return g.parseVerdict(ctx, text)
}

// parseVerdict extracts a verdict from the collaborator's completion text,
// tolerating code fences and surrounding prose.
func (g *Gate) parseVerdict(ctx context.Context, text string) Verdict {
	raw := extractJSONObject(stripCodeFences(text))
	if raw == "" {
		g.logger.Warn(ctx, "no JSON object in moderation response", "response", truncate(text, 200))
		return g.defaultVerdict(causeInvalid)
	}

	var payload struct {
		Decision   string          `json:"decision"`
		Confidence json.RawMessage `json:"confidence"`
		Reasons    []string        `json:"reasons"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		g.logger.Warn(ctx, "unparseable moderation response", "error", err, "response", truncate(raw, 200))
		return g.defaultVerdict(causeParse)
	}

	var decision Decision
	switch strings.ToUpper(strings.TrimSpace(payload.Decision)) {
	case string(DecisionAllow):
		decision = DecisionAllow
	case string(DecisionBlock):
		decision = DecisionBlock
	default:
		g.logger.Warn(ctx, "missing or unknown moderation decision", "decision", payload.Decision)
		return g.defaultVerdict(causeParse)
	}

	// Non-numeric confidence is ignored, not fatal; out-of-range is clamped.
	confidence := defaultConfidence
	if len(payload.Confidence) > 0 {
		if f, err := strconv.ParseFloat(strings.Trim(string(payload.Confidence), `"`), 64); err == nil {
			confidence = clamp01(f)
		}
	}

	reasons := payload.Reasons
	if len(reasons) == 0 {
		reasons = []string{"unspecified"}
	}

	return Verdict{Decision: decision, Confidence: confidence, Reasons: reasons}
}

func (g *Gate) defaultVerdict(cause string) Verdict {
	g.onDefault(cause)
	return Verdict{Decision: DecisionAllow, Confidence: 0.3, Reasons: []string{cause}}
}

func buildModerationPrompt(incidentType, description, location string, tagNames, officeNames []string) string {
	var sb strings.Builder

	sb.WriteString("Review this campus incident report for abusive or defamatory content.\n\n")
	sb.WriteString("Report type: ")
	sb.WriteString(incidentType)
	sb.WriteString("\nLocation: ")
	sb.WriteString(location)
	if len(tagNames) > 0 {
		sb.WriteString("\nCategory tags: ")
		sb.WriteString(strings.Join(tagNames, ", "))
	}
	sb.WriteString("\nDescription:\n")
	sb.WriteString(description)

	sb.WriteString("\n\nHandling offices that may be named in reports:\n")
	for _, name := range officeNames {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return BLOCK for harassment, targeted insults, threats, or unconstructive
disparagement of a named handling office. Return ALLOW for neutral, factual,
or safety-focused text, even when it mentions an office.

Return a JSON object with this structure:
{"decision": "ALLOW", "confidence": 0.9, "reasons": ["short reason phrases"]}

decision must be ALLOW or BLOCK, confidence is 0.0-1.0.
Return ONLY the JSON, no other text.`)

	return sb.String()
}

// stripCodeFences removes a markdown code fence wrapper if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the substring between the first '{' and the last
// '}', tolerating leading and trailing prose. Empty when no object is found.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
