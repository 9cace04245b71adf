// Package storetest holds the behavior suite every repository.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/domain/model"
)

// Factory returns a fresh, empty store for one sub-test.
type Factory func(t *testing.T) repository.Store

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// Template returns a two-question template with a fresh id.
func Template(createdAt time.Time) model.Template {
	return model.Template{
		ID:          uuid.NewString(),
		Title:       "Learning Buddy",
		CreatorName: "Ms. Frizzle",
		Categories: []model.Category{
			{ID: "cat-a", Label: "Active Learner"},
			{ID: "cat-b", Label: "Passive Learner"},
		},
		Questions: []model.Question{
			{ID: "q1", Text: "Do you like to move while learning?", Options: []model.Option{
				{Label: "Yes", Scores: map[string]int{"cat-a": 3}},
				{Label: "No", Scores: map[string]int{"cat-a": 0, "cat-b": 0}},
			}},
			{ID: "q2", Text: "Group or solo?", Options: []model.Option{
				{Label: "Group", Scores: map[string]int{"cat-a": 2}},
				{Label: "Solo", Scores: map[string]int{"cat-b": 4}},
			}},
		},
		CreatedAt: createdAt,
	}
}

// Submission returns a scored submission for student against surveyID.
func Submission(studentID, surveyID string, createdAt time.Time) model.Submission {
	return model.Submission{
		ID:        uuid.NewString(),
		StudentID: studentID,
		SurveyID:  surveyID,
		Answers: []model.Answer{
			{QuestionID: "q1", SelectedOptionIndex: 0},
			{QuestionID: "q2", SelectedOptionIndex: 1},
		},
		Scores:                map[string]int{"cat-a": 3, "cat-b": 4},
		DominantCategory:      "cat-b",
		DominantCategoryLabel: "Passive Learner",
		CategoryLabels:        map[string]string{"cat-a": "Active Learner", "cat-b": "Passive Learner"},
		AnswerDetails: []model.AnswerDetail{
			{QuestionID: "q1", QuestionText: "Do you like to move while learning?", SelectedOptionText: "Yes"},
			{QuestionID: "q2", QuestionText: "Group or solo?", SelectedOptionText: "Solo"},
		},
		SessionID:   "session-1",
		CourseTitle: "Biology 101",
		Status:      model.StatusSubmitted,
		CreatedAt:   createdAt,
	}
}

// Run exercises newStore against the Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("TemplateRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		tpl := Template(base)
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create template: %v", err)
		}
		got, err := s.GetTemplate(ctx, tpl.ID)
		if err != nil {
			t.Fatalf("get template: %v", err)
		}
		if got.Title != tpl.Title || got.CreatorName != tpl.CreatorName {
			t.Errorf("unexpected header %+v", got)
		}
		if len(got.Categories) != 2 || got.Categories[0] != tpl.Categories[0] || got.Categories[1] != tpl.Categories[1] {
			t.Errorf("category order not preserved: %+v", got.Categories)
		}
		zero := got.Questions[0].Options[1].Scores
		if len(zero) != 2 || zero["cat-a"] != 0 || zero["cat-b"] != 0 {
			t.Errorf("all-zero option lost entries: %v", zero)
		}
		if !got.CreatedAt.Equal(tpl.CreatedAt) {
			t.Errorf("created at: got %v want %v", got.CreatedAt, tpl.CreatedAt)
		}
	})

	t.Run("TemplateNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetTemplate(context.Background(), "missing")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListTemplatesNewestFirst", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		older := Template(base)
		newer := Template(base.Add(time.Hour))
		for _, tpl := range []model.Template{older, newer} {
			if err := s.CreateTemplate(ctx, tpl); err != nil {
				t.Fatalf("create template: %v", err)
			}
		}
		list, err := s.ListTemplates(ctx)
		if err != nil {
			t.Fatalf("list templates: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 templates, got %d", len(list))
		}
		if list[0].ID != newer.ID || list[1].ID != older.ID {
			t.Errorf("unexpected order: %+v", list)
		}
		if list[0].QuestionCount != 2 {
			t.Errorf("question count: got %d", list[0].QuestionCount)
		}
	})

	t.Run("SubmissionRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		sub := Submission("stu-1", "tpl-1", base)
		if err := s.CreateSubmission(ctx, sub); err != nil {
			t.Fatalf("create submission: %v", err)
		}
		got, err := s.GetSubmission(ctx, sub.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if got.DominantCategory != "cat-b" || got.Scores["cat-b"] != 4 || got.Scores["cat-a"] != 3 {
			t.Errorf("unexpected scores %+v", got)
		}
		if len(got.AnswerDetails) != 2 || got.AnswerDetails[1].SelectedOptionText != "Solo" {
			t.Errorf("answer details lost: %+v", got.AnswerDetails)
		}
		if got.CategoryLabels["cat-a"] != "Active Learner" || got.CourseTitle != "Biology 101" {
			t.Errorf("denormalized fields lost: %+v", got)
		}
		if got.Status != model.StatusSubmitted {
			t.Errorf("status: got %q", got.Status)
		}
	})

	t.Run("SubmissionNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetSubmission(context.Background(), "missing")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateIDs", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		tpl := Template(base)
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create template: %v", err)
		}
		again := tpl
		again.Title = "Overwritten"
		if err := s.CreateTemplate(ctx, again); !errors.Is(err, repository.ErrAlreadyExists) {
			t.Errorf("duplicate template: expected ErrAlreadyExists, got %v", err)
		}
		if got, err := s.GetTemplate(ctx, tpl.ID); err != nil || got.Title != tpl.Title {
			t.Errorf("original template changed: %+v, %v", got, err)
		}

		sub := Submission("stu-dup", tpl.ID, base)
		if err := s.CreateSubmission(ctx, sub); err != nil {
			t.Fatalf("create submission: %v", err)
		}
		if err := s.CreateSubmission(ctx, sub); !errors.Is(err, repository.ErrAlreadyExists) {
			t.Errorf("duplicate submission: expected ErrAlreadyExists, got %v", err)
		}
		if errors.Is(s.CreateSubmission(ctx, sub), model.ErrStorage) {
			t.Errorf("duplicate submission reported as a storage failure")
		}
		list, err := s.ListSubmissionsByStudent(ctx, "stu-dup")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("expected one stored submission, got %d", len(list))
		}
	})

	t.Run("ListByStudentOrdering", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		first := Submission("stu-1", "tpl-1", base)
		tiedA := Submission("stu-1", "tpl-1", base.Add(time.Minute))
		tiedB := Submission("stu-1", "tpl-2", base.Add(time.Minute))
		other := Submission("stu-2", "tpl-1", base.Add(time.Hour))
		for _, sub := range []model.Submission{first, tiedA, tiedB, other} {
			if err := s.CreateSubmission(ctx, sub); err != nil {
				t.Fatalf("create submission: %v", err)
			}
		}

		list, err := s.ListSubmissionsByStudent(ctx, "stu-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{tiedB.ID, tiedA.ID, first.ID}
		if len(list) != len(want) {
			t.Fatalf("expected %d submissions, got %d", len(want), len(list))
		}
		for i, id := range want {
			if list[i].ID != id {
				t.Errorf("position %d: got %s want %s", i, list[i].ID, id)
			}
		}

		empty, err := s.ListSubmissionsByStudent(ctx, "nobody")
		if err != nil {
			t.Fatalf("list unknown student: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected empty history, got %d", len(empty))
		}
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		const students, perStudent = 8, 5
		var wg sync.WaitGroup
		errs := make(chan error, students*perStudent)
		for i := 0; i < students; i++ {
			wg.Add(1)
			go func(student string) {
				defer wg.Done()
				for j := 0; j < perStudent; j++ {
					errs <- s.CreateSubmission(ctx, Submission(student, "tpl-1", base.Add(time.Duration(j)*time.Second)))
				}
			}(fmt.Sprintf("stu-%d", i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent create: %v", err)
			}
		}
		for i := 0; i < students; i++ {
			list, err := s.ListSubmissionsByStudent(ctx, fmt.Sprintf("stu-%d", i))
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != perStudent {
				t.Errorf("student %d: got %d submissions", i, len(list))
			}
		}
	})
}
