package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/learnstyle/internal/adapters/http/api"
	service "github.com/okian/learnstyle/internal/app"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/survey"
	"github.com/okian/learnstyle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const surveyJSON = `{
  "title": "Learning Buddy",
  "creatorName": "Ms. Rivera",
  "questions": [
    {"id": "q1", "text": "In class I prefer to", "options": [
      {"label": "Join a group activity", "scores": {"Active Learner": 5, "Passive Learner": 0}},
      {"label": "Listen to the lecture", "scores": {"Active Learner": 0, "Passive Learner": 5}}
    ]},
    {"id": "q2", "text": "When I get stuck I", "options": [
      {"label": "Try things out", "scores": {"Active Learner": 3, "Passive Learner": 1}},
      {"label": "Read the notes again", "scores": {"Active Learner": 1, "Passive Learner": 3}}
    ]}
  ]
}`

// failingDeps reports a storage failure from every operation.
type failingDeps struct{}

var errDisk = model.NewStorageError("write", errors.New("disk full: /var/lib/learnstyle"))

func (failingDeps) CreateSurvey(context.Context, survey.Payload) (model.Template, error) {
	return model.Template{}, errDisk
}

func (failingDeps) GetSurvey(context.Context, string) (model.Template, error) {
	return model.Template{}, errDisk
}

func (failingDeps) ListSurveys(context.Context) ([]model.TemplateSummary, error) {
	return nil, errDisk
}

func (failingDeps) CreateSubmission(context.Context, model.SubmissionRequest) (model.Submission, bool, error) { //nolint:gocritic // hugeParam: matches the interface
	return model.Submission{}, false, errDisk
}

func (failingDeps) GetSubmission(context.Context, string) (model.Submission, error) {
	return model.Submission{}, errDisk
}

func (failingDeps) ListSubmissionsForStudent(context.Context, string) ([]model.Submission, error) {
	return nil, errDisk
}

func (failingDeps) GetStats() map[string]interface{} { return map[string]interface{}{} }

func newRouter(deps api.Dependencies, stats api.StatsProvider) chi.Router {
	r := api.NewRouter([]string{"http://localhost:3000"})
	api.NewServer(deps, stats).Register(context.Background(), r)
	return r
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func TestServer_Register(t *testing.T) {
	Convey("Given a router with the API registered", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		Reset(func() { _ = svc.Stop(context.Background()) })
		r := newRouter(svc, svc)

		Convey("Then health endpoint should report ok", func() {
			w := do(r, http.MethodGet, "/healthz", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And stats endpoint should be accessible", func() {
			w := do(r, http.MethodGet, "/stats", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"collectedAt"`)
			So(w.Body.String(), ShouldContainSubstring, `"queueLength"`)
		})

		Convey("And metrics endpoint should serve Prometheus text", func() {
			do(r, http.MethodGet, "/healthz", "", nil)
			w := do(r, http.MethodGet, "/metrics", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("And CORS preflight should allow the Idempotency-Key header", func() {
			w := do(r, http.MethodOptions, "/api/submissions", "", map[string]string{
				"Origin":                         "http://localhost:3000",
				"Access-Control-Request-Method":  http.MethodPost,
				"Access-Control-Request-Headers": "Idempotency-Key",
			})
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:3000")
		})

		Convey("And unknown routes should return 404", func() {
			w := do(r, http.MethodGet, "/scoreboard", "", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSurveyRoutes(t *testing.T) {
	Convey("Given an empty service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		Reset(func() { _ = svc.Stop(context.Background()) })
		r := newRouter(svc, svc)

		Convey("When listing surveys", func() {
			w := do(r, http.MethodGet, "/api/surveys", "", nil)

			Convey("Then an empty JSON array is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When a survey is created without a categories list", func() {
			w := do(r, http.MethodPost, "/api/surveys", surveyJSON, nil)
			var view survey.View
			So(decode(w, &view), ShouldBeNil)

			Convey("Then categories follow first appearance and zero scores are dropped", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(view.ID, ShouldNotBeEmpty)
				So(view.Categories, ShouldHaveLength, 2)
				So(view.Categories[0].Label, ShouldEqual, "Active Learner")
				So(view.Categories[1].Label, ShouldEqual, "Passive Learner")
				first := view.Questions[0].Options[0].Scores
				So(first, ShouldHaveLength, 1)
				So(first[0], ShouldResemble, survey.ScoreEntry{Category: "Active Learner", Value: 5})
			})

			Convey("Then it can be fetched and listed", func() {
				got := do(r, http.MethodGet, "/api/surveys/"+view.ID, "", nil)
				So(got.Code, ShouldEqual, http.StatusOK)
				var again survey.View
				So(decode(got, &again), ShouldBeNil)
				So(again.Categories, ShouldResemble, view.Categories)
				So(again.Questions, ShouldResemble, view.Questions)

				list := do(r, http.MethodGet, "/api/surveys", "", nil)
				var summaries []model.TemplateSummary
				So(decode(list, &summaries), ShouldBeNil)
				So(summaries, ShouldHaveLength, 1)
				So(summaries[0].QuestionCount, ShouldEqual, 2)
				So(summaries[0].CreatorName, ShouldEqual, "Ms. Rivera")
			})
		})

		Convey("When an inconsistent survey is posted", func() {
			body := `{"title": "", "categories": ["A"], "questions": [
				{"text": "Q", "options": [{"label": "x", "scores": {"B": 3}}]}
			]}`
			w := do(r, http.MethodPost, "/api/surveys", body, nil)

			Convey("Then every violation is reported with 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				var resp struct {
					Code       string            `json:"code"`
					Violations []model.Violation `json:"violations"`
				}
				So(decode(w, &resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "validation_failed")
				fields := make([]string, len(resp.Violations))
				for i, v := range resp.Violations {
					fields[i] = v.Field
				}
				So(fields, ShouldContain, "title")
				So(fields, ShouldContain, "questions[0].options")
				So(fields, ShouldContain, "questions[0].options[0].scores")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(r, http.MethodPost, "/api/surveys", "{not json", nil)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When an unknown survey is requested", func() {
			w := do(r, http.MethodGet, "/api/surveys/missing", "", nil)

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "not_found")
			})
		})
	})
}

func TestSubmissionRoutes(t *testing.T) {
	Convey("Given a service with one survey", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(func() { _ = svc.Stop(context.Background()) })
		r := newRouter(svc, svc)

		created := do(r, http.MethodPost, "/api/surveys", surveyJSON, nil)
		So(created.Code, ShouldEqual, http.StatusCreated)
		var view survey.View
		So(decode(created, &view), ShouldBeNil)
		active := view.Categories[0]

		submit := func(body string, header map[string]string) *httptest.ResponseRecorder {
			return do(r, http.MethodPost, "/api/submissions", body, header)
		}
		complete := `{"surveyId": "` + view.ID + `", "studentId": "stu-1", "courseTitle": "Biology 101",
			"answers": [{"questionId": "q2", "selectedOptionIndex": 0}, {"questionId": "q1", "selectedOptionIndex": 0}]}`

		Convey("When a complete answer set is submitted", func() {
			w := submit(complete, nil)
			var res struct {
				ID                    string            `json:"id"`
				Scores                map[string]int    `json:"scores"`
				DominantCategory      string            `json:"dominantCategory"`
				DominantCategoryLabel string            `json:"dominantCategoryLabel"`
				CategoryLabels        map[string]string `json:"categoryLabels"`
			}
			So(decode(w, &res), ShouldBeNil)

			Convey("Then the scored result is returned with 201", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(res.ID, ShouldNotBeEmpty)
				So(res.Scores[active.ID], ShouldEqual, 8)
				So(res.DominantCategory, ShouldEqual, active.ID)
				So(res.DominantCategoryLabel, ShouldEqual, "Active Learner")
				So(res.CategoryLabels[active.ID], ShouldEqual, "Active Learner")
			})

			Convey("Then the submission can be fetched", func() {
				got := do(r, http.MethodGet, "/api/submissions/"+res.ID, "", nil)
				So(got.Code, ShouldEqual, http.StatusOK)
				var sub model.Submission
				So(decode(got, &sub), ShouldBeNil)
				So(sub.StudentID, ShouldEqual, "stu-1")
				So(sub.Status, ShouldEqual, model.StatusSubmitted)
			})

			Convey("Then it appears in the student's history", func() {
				hist := do(r, http.MethodGet, "/api/students/stu-1/submissions", "", nil)
				So(hist.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Submissions []struct {
						ID            string               `json:"id"`
						SurveyID      string               `json:"surveyId"`
						CourseTitle   string               `json:"courseTitle"`
						Status        string               `json:"status"`
						AnswerDetails []model.AnswerDetail `json:"answerDetails"`
					} `json:"submissions"`
					Total int `json:"total"`
				}
				So(decode(hist, &resp), ShouldBeNil)
				So(resp.Total, ShouldEqual, 1)
				So(resp.Submissions[0].ID, ShouldEqual, res.ID)
				So(resp.Submissions[0].SurveyID, ShouldEqual, view.ID)
				So(resp.Submissions[0].CourseTitle, ShouldEqual, "Biology 101")
				So(resp.Submissions[0].Status, ShouldEqual, "submitted")
				So(resp.Submissions[0].AnswerDetails[0].SelectedOptionText, ShouldEqual, "Join a group activity")
			})
		})

		Convey("When the same Idempotency-Key is sent twice", func() {
			header := map[string]string{"Idempotency-Key": "retry-1"}
			first := submit(complete, header)
			second := submit(complete, header)

			Convey("Then the replay returns the original with 200", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)
				var a, b struct {
					ID string `json:"id"`
				}
				So(decode(first, &a), ShouldBeNil)
				So(decode(second, &b), ShouldBeNil)
				So(b.ID, ShouldEqual, a.ID)

				hist := do(r, http.MethodGet, "/api/students/stu-1/submissions", "", nil)
				So(hist.Body.String(), ShouldContainSubstring, `"total":1`)
			})
		})

		Convey("When an answer set is incomplete", func() {
			body := `{"surveyId": "` + view.ID + `", "studentId": "stu-2",
				"answers": [{"questionId": "q1", "selectedOptionIndex": 0}]}`
			w := submit(body, nil)

			Convey("Then 422 incomplete_submission is returned and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, "incomplete_submission")
				hist := do(r, http.MethodGet, "/api/students/stu-2/submissions", "", nil)
				So(hist.Body.String(), ShouldContainSubstring, `"total":0`)
			})
		})

		Convey("When an option index is out of range", func() {
			body := `{"surveyId": "` + view.ID + `", "studentId": "stu-3",
				"answers": [{"questionId": "q1", "selectedOptionIndex": 0}, {"questionId": "q2", "selectedOptionIndex": 2}]}`
			w := submit(body, nil)

			Convey("Then 422 invalid_answer names the question", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				var resp struct {
					Code       string `json:"code"`
					QuestionID string `json:"questionId"`
				}
				So(decode(w, &resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "invalid_answer")
				So(resp.QuestionID, ShouldEqual, "q2")
			})
		})

		Convey("When the survey does not exist", func() {
			body := `{"surveyId": "nope", "studentId": "stu-4",
				"answers": [{"questionId": "q1", "selectedOptionIndex": 0}]}`
			w := submit(body, nil)

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an unknown submission is requested", func() {
			w := do(r, http.MethodGet, "/api/submissions/nope", "", nil)

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a student has no history", func() {
			w := do(r, http.MethodGet, "/api/students/nobody/submissions", "", nil)

			Convey("Then an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"submissions":[]`)
				So(w.Body.String(), ShouldContainSubstring, `"total":0`)
			})
		})
	})
}

func TestStorageFailures(t *testing.T) {
	Convey("Given a backend whose storage is failing", t, func() {
		r := newRouter(failingDeps{}, failingDeps{})

		Convey("When any operation is requested", func() {
			list := do(r, http.MethodGet, "/api/surveys", "", nil)
			create := do(r, http.MethodPost, "/api/submissions", `{"surveyId":"s","studentId":"x","answers":[]}`, nil)

			Convey("Then 500 storage_error is returned without internal details", func() {
				So(list.Code, ShouldEqual, http.StatusInternalServerError)
				So(create.Code, ShouldEqual, http.StatusInternalServerError)
				So(list.Body.String(), ShouldContainSubstring, "storage_error")
				So(list.Body.String(), ShouldNotContainSubstring, "/var/lib")
			})
		})
	})
}
