// Package reportapi exposes the triage pipeline over HTTP.
package reportapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/beacon/internal/triage"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

// maxDraftTags bounds how many labels a single draft may carry.
const maxDraftTags = 20

// TriageService defines the business operations reportapi needs.
type TriageService interface {
	Triage(ctx context.Context, draft *triage.Draft) (*triage.Result, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports/triage", a.handleTriageReport)
		r.Get("/offices", a.handleListOffices)
	})
}

type triageRequest struct {
	IncidentType string   `json:"incidentType"`
	Description  string   `json:"description"`
	Building     string   `json:"building"`
	Address      string   `json:"address"`
	Location     string   `json:"location"`
	Tags         []string `json:"tags"`
}

func (a *API) handleTriageReport(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		http.Error(w, `{"error":"description is required"}`, http.StatusBadRequest)
		return
	}
	if len(req.Tags) > maxDraftTags {
		http.Error(w, `{"error":"too many tags"}`, http.StatusBadRequest)
		return
	}

	draft := &triage.Draft{
		IncidentType:     req.IncidentType,
		Description:      req.Description,
		EnhancedLocation: enhanceLocation(req.Building, req.Address, req.Location),
		Tags:             req.Tags,
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.report.type", draft.IncidentType))

	result, err := a.svc.Triage(r.Context(), draft)
	if err != nil {
		a.logger.Error(r.Context(), err, "triage pipeline failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("beacon.triage.decision", string(result.Decision)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (a *API) handleListOffices(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"offices": triage.Offices,
	})
}

// enhanceLocation concatenates the non-empty location parts before the draft
// reaches the core.
func enhanceLocation(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
