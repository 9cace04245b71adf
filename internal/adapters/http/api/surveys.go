package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/survey"
)

// SurveyDependencies defines the template operations used by the handlers.
type SurveyDependencies interface {
	CreateSurvey(ctx context.Context, p survey.Payload) (model.Template, error)
	GetSurvey(ctx context.Context, id string) (model.Template, error)
	ListSurveys(ctx context.Context) ([]model.TemplateSummary, error)
}

// SurveysHandler handles survey template requests.
type SurveysHandler struct {
	deps SurveyDependencies
}

// NewSurveysHandler creates a new surveys handler.
func NewSurveysHandler(deps SurveyDependencies) *SurveysHandler {
	return &SurveysHandler{deps: deps}
}

// HandleList handles GET /api/surveys requests.
func (h *SurveysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListSurveys(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []model.TemplateSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/surveys requests.
func (h *SurveysHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p survey.Payload
	if !decodeJSON(w, r, &p) {
		return
	}
	t, err := h.deps.CreateSurvey(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, survey.Describe(t))
}

// HandleGet handles GET /api/surveys/{surveyId} requests.
func (h *SurveysHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.GetSurvey(r.Context(), chi.URLParam(r, "surveyId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, survey.Describe(t))
}
