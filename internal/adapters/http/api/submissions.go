package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/learnstyle/internal/domain/model"
)

// SubmissionDependencies defines the submission operations used by the
// handlers.
type SubmissionDependencies interface {
	// CreateSubmission reports replay=true when an idempotency key matched
	// an earlier request.
	CreateSubmission(ctx context.Context, req model.SubmissionRequest) (model.Submission, bool, error)
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
	ListSubmissionsForStudent(ctx context.Context, studentID string) ([]model.Submission, error)
}

// SubmissionsHandler handles submission requests.
type SubmissionsHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// submissionResult is the createSubmission response. Scores and
// DominantCategory key on category ids; CategoryLabels resolves them.
type submissionResult struct {
	ID                    string            `json:"id"`
	Scores                map[string]int    `json:"scores"`
	DominantCategory      string            `json:"dominantCategory"`
	DominantCategoryLabel string            `json:"dominantCategoryLabel"`
	CategoryLabels        map[string]string `json:"categoryLabels"`
}

// historyEntry is one row of a student's submission history.
type historyEntry struct {
	ID                    string               `json:"id"`
	SurveyID              string               `json:"surveyId"`
	CourseTitle           string               `json:"courseTitle"`
	Status                string               `json:"status"`
	CreatedAt             time.Time            `json:"createdAt"`
	DominantCategoryLabel string               `json:"dominantCategoryLabel"`
	AnswerDetails         []model.AnswerDetail `json:"answerDetails"`
}

type historyResponse struct {
	Submissions []historyEntry `json:"submissions"`
	Total       int            `json:"total"`
}

// HandleCreate handles POST /api/submissions requests.
func (h *SubmissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.SubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	sub, replay, err := h.deps.CreateSubmission(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, submissionResult{
		ID:                    sub.ID,
		Scores:                sub.Scores,
		DominantCategory:      sub.DominantCategory,
		DominantCategoryLabel: sub.DominantCategoryLabel,
		CategoryLabels:        sub.CategoryLabels,
	})
}

// HandleGet handles GET /api/submissions/{submissionId} requests.
func (h *SubmissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.deps.GetSubmission(r.Context(), chi.URLParam(r, "submissionId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleListForStudent handles GET /api/students/{studentId}/submissions
// requests.
func (h *SubmissionsHandler) HandleListForStudent(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.ListSubmissionsForStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := historyResponse{
		Submissions: make([]historyEntry, len(subs)),
		Total:       len(subs),
	}
	for i := range subs {
		s := &subs[i]
		resp.Submissions[i] = historyEntry{
			ID:                    s.ID,
			SurveyID:              s.SurveyID,
			CourseTitle:           s.CourseTitle,
			Status:                s.Status,
			CreatedAt:             s.CreatedAt,
			DominantCategoryLabel: s.DominantCategoryLabel,
			AnswerDetails:         s.AnswerDetails,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
