package reportapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/beacon/internal/triage"
	"github.com/linnemanlabs/go-core/log"
)

type stubService struct {
	result *triage.Result
	err    error
	draft  *triage.Draft
}

func (s *stubService) Triage(_ context.Context, draft *triage.Draft) (*triage.Result, error) {
	s.draft = draft
	return s.result, s.err
}

func newTestRouter(svc TriageService) chi.Router {
	r := chi.NewRouter()
	New(log.Nop(), svc).RegisterRoutes(r)
	return r
}

func TestTriageReport_Success(t *testing.T) {
	t.Parallel()

	svc := &stubService{result: &triage.Result{
		Decision:        triage.DecisionAllow,
		Confidence:      0.9,
		Reasons:         []string{"factual"},
		SuggestedTags:   []string{"leak"},
		SuggestedOffice: "FACILITIES",
		IsIncident:      true,
	}}
	r := newTestRouter(svc)

	body := `{
		"incidentType": "maintenance",
		"description": "ceiling leak in the library",
		"building": "Main Library",
		"address": "12 Campus Way",
		"location": "second floor",
		"tags": ["leak", "ceiling"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/triage", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got triage.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Decision != triage.DecisionAllow || got.SuggestedOffice != "FACILITIES" {
		t.Errorf("response = %+v", got)
	}

	if svc.draft == nil {
		t.Fatal("service never called")
	}
	if want := "Main Library, 12 Campus Way, second floor"; svc.draft.EnhancedLocation != want {
		t.Errorf("EnhancedLocation = %q, want %q", svc.draft.EnhancedLocation, want)
	}
	if len(svc.draft.Tags) != 2 {
		t.Errorf("draft tags = %v", svc.draft.Tags)
	}
}

func TestTriageReport_BadRequests(t *testing.T) {
	t.Parallel()

	manyTags := make([]string, 21)
	for i := range manyTags {
		manyTags[i] = "t"
	}
	tooMany, _ := json.Marshal(map[string]any{"description": "x", "tags": manyTags})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"broken json", `{"description":`, "invalid payload"},
		{"missing description", `{"incidentType":"noise"}`, "description is required"},
		{"blank description", `{"description":"   "}`, "description is required"},
		{"too many tags", string(tooMany), "too many tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubService{}
			r := newTestRouter(svc)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/triage", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
			if svc.draft != nil {
				t.Error("service was called on a rejected request")
			}
		})
	}
}

func TestTriageReport_ServiceFailure(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubService{err: errors.New("llm down")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/triage",
		strings.NewReader(`{"description":"broken window in Hall C"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "llm down") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestListOffices(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/offices", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		Offices []triage.Office `json:"offices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Offices) != len(triage.Offices) {
		t.Fatalf("got %d offices, want %d", len(got.Offices), len(triage.Offices))
	}
	if got.Offices[0].Code != "FACILITIES" {
		t.Errorf("first office = %q", got.Offices[0].Code)
	}
}

func TestEnhanceLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"Hall B", "12 Campus Way", "stairwell"}, "Hall B, 12 Campus Way, stairwell"},
		{[]string{"", "12 Campus Way", "  "}, "12 Campus Way"},
		{[]string{"", "", ""}, ""},
	}
	for _, tt := range tests {
		if got := enhanceLocation(tt.parts...); got != tt.want {
			t.Errorf("enhanceLocation(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestNew_RequiresService(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil service")
		}
	}()
	New(log.Nop(), nil)
}
