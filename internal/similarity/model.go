package similarity

import "time"

// Candidate is a read-only snapshot of a previously stored incident used for
// overlap scoring. Candidates are replaced wholesale on cache refresh, never
// mutated in place.
type Candidate struct {
	ID              string
	TrackingNumber  string
	Tags            []string
	IncidentType    string
	Location        string
	Office          string
	SubmittedAt     time.Time
	ResolutionNotes string
}

// Result is one similar incident returned to the caller, produced fresh per
// query.
type Result struct {
	ID              string     `json:"id"`
	TrackingNumber  string     `json:"trackingNumber"`
	Score           float64    `json:"similarityScore"`
	IncidentType    string     `json:"incidentType"`
	Location        string     `json:"location"`
	Office          string     `json:"office"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}
