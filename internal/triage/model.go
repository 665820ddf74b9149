package triage

import "github.com/linnemanlabs/beacon/internal/similarity"

// Decision is the moderation outcome for a submission.
type Decision string

const (
	// DecisionAllow means the submission may proceed.
	DecisionAllow Decision = "ALLOW"

	// DecisionBlock means the submission is rejected as abusive or defamatory.
	DecisionBlock Decision = "BLOCK"
)

// Draft is an incoming incident report before persistence. EnhancedLocation
// is derived upstream by concatenating building/address/raw location.
type Draft struct {
	IncidentType     string
	Description      string
	EnhancedLocation string
	Tags             []string
}

// Verdict is the moderation gate's output. Reasons is always non-empty; a
// fallback cause fills it when the collaborator response could not be parsed.
type Verdict struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Result is the consolidated triage outcome returned to the caller.
// SimilarIncidents is populated only when the decision is ALLOW.
type Result struct {
	Decision           Decision            `json:"decision"`
	Confidence         float64             `json:"confidence"`
	Reasons            []string            `json:"reasons"`
	SuggestedTags      []string            `json:"suggestedTags"`
	SuggestedOffice    string              `json:"suggestedOffice"`
	NormalizedLocation string              `json:"normalizedLocation"`
	IsIncident         bool                `json:"isIncident"`
	SimilarIncidents   []similarity.Result `json:"similarIncidents,omitempty"`
}
