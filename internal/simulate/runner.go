package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/scoring"
	"github.com/okian/learnstyle/internal/domain/survey"
	"github.com/okian/learnstyle/pkg/logger"
)

// ErrVerification is returned when the service disagreed with local scoring
// or returned an unexpected history.
var ErrVerification = errors.New("verification failed")

type student struct {
	id       string
	answers  []model.Answer
	expected scoring.Outcome

	submissionID string
	ok           bool
}

type submissionResult struct {
	ID                    string         `json:"id"`
	Scores                map[string]int `json:"scores"`
	DominantCategory      string         `json:"dominantCategory"`
	DominantCategoryLabel string         `json:"dominantCategoryLabel"`
}

type historyResponse struct {
	Submissions []struct {
		ID            string               `json:"id"`
		SurveyID      string               `json:"surveyId"`
		Status        string               `json:"status"`
		AnswerDetails []model.AnswerDetail `json:"answerDetails"`
	} `json:"submissions"`
	Total int `json:"total"`
}

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("simulate")
	stats := &Stats{
		StartTime:          time.Now(),
		DominantByCategory: make(map[string]int),
	}

	log.Info(ctx, "starting classroom simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("students", cfg.Students),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Any("seed", cfg.Seed),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Publish the survey
	payload, err := LearningBuddy()
	if err != nil {
		return stats, fmt.Errorf("survey draft invalid: %w", err)
	}
	var view survey.View
	if _, err := client.postJSON(ctx, "/api/surveys", payload, &view, http.StatusCreated); err != nil {
		return stats, fmt.Errorf("survey creation failed: %w", err)
	}
	stats.SurveyID = view.ID
	tmpl := templateFromView(view)
	log.Info(ctx, "survey published",
		logger.String("survey_id", view.ID),
		logger.Int("questions", len(tmpl.Questions)),
	)

	// Step 3: Generate answers
	students, err := generateStudents(tmpl, cfg.Students, cfg.Seed)
	if err != nil {
		return stats, fmt.Errorf("answer generation failed: %w", err)
	}

	// Step 4: Submit concurrently and compare with local scoring
	var mu sync.Mutex
	forEach(ctx, len(students), cfg.Workers, func(i int) {
		s := &students[i]
		var res submissionResult
		_, err := client.postJSON(ctx, "/api/submissions", model.SubmissionRequest{
			SurveyID:  view.ID,
			StudentID: s.id,
			Answers:   s.answers,
		}, &res, http.StatusCreated)

		mu.Lock()
		defer mu.Unlock()
		stats.Submitted++
		if err != nil {
			stats.Failed++
			log.Warn(ctx, "submission failed", logger.String("student_id", s.id), logger.Error(err))
			return
		}
		stats.Successful++
		s.submissionID = res.ID
		if res.DominantCategory != s.expected.DominantCategory || !sameScores(res.Scores, s.expected.Scores) {
			stats.Mismatched++
			log.Warn(ctx, "classification mismatch",
				logger.String("student_id", s.id),
				logger.String("got", res.DominantCategoryLabel),
				logger.String("want", s.expected.DominantLabel()),
			)
			return
		}
		s.ok = true
		stats.DominantByCategory[res.DominantCategoryLabel]++
		if cfg.Verbose {
			log.Info(ctx, "student classified",
				logger.String("student_id", s.id),
				logger.String("dominant_category", res.DominantCategoryLabel),
			)
		}
	})

	// Step 5: Check every history
	forEach(ctx, len(students), cfg.Workers, func(i int) {
		s := &students[i]
		if s.submissionID == "" {
			return
		}
		var hist historyResponse
		err := client.getJSON(ctx, "/api/students/"+url.PathEscape(s.id)+"/submissions", &hist)

		mu.Lock()
		defer mu.Unlock()
		stats.HistoriesChecked++
		if err != nil || !historyMatches(hist, s.submissionID, view.ID, len(tmpl.Questions)) {
			stats.HistoryMismatches++
			log.Warn(ctx, "unexpected history", logger.String("student_id", s.id), logger.Any("error", err))
		}
	})

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("simulation interrupted: %w", err)
	}
	if !stats.OK() {
		return stats, fmt.Errorf("%w: %d failed, %d mismatched, %d bad histories",
			ErrVerification, stats.Failed, stats.Mismatched, stats.HistoryMismatches)
	}
	return stats, nil
}

// templateFromView rebuilds the stored template from its wire form so it
// can be scored locally.
func templateFromView(v survey.View) model.Template { //nolint:gocritic // hugeParam: decoded response
	idByLabel := make(map[string]string, len(v.Categories))
	for _, c := range v.Categories {
		idByLabel[c.Label] = c.ID
	}
	t := model.Template{
		ID:         v.ID,
		Title:      v.Title,
		Categories: v.Categories,
		Questions:  make([]model.Question, len(v.Questions)),
		CreatedAt:  v.CreatedAt,
	}
	for qi, q := range v.Questions {
		mq := model.Question{ID: q.ID, Text: q.Text, Options: make([]model.Option, len(q.Options))}
		for oi, o := range q.Options {
			scores := make(map[string]int, len(o.Scores))
			for _, e := range o.Scores {
				scores[idByLabel[e.Category]] = int(e.Value)
			}
			mq.Options[oi] = model.Option{Label: o.Label, Scores: scores}
		}
		t.Questions[qi] = mq
	}
	return t
}

// generateStudents picks one random option per question for n students and
// records the expected outcome. Answer order is shuffled since it must not
// matter.
func generateStudents(t model.Template, n int, seed int64) ([]student, error) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // simulation data
	run := uuid.NewString()[:8]

	students := make([]student, n)
	for i := range students {
		answers := make([]model.Answer, len(t.Questions))
		for qi, q := range t.Questions {
			answers[qi] = model.Answer{QuestionID: q.ID, SelectedOptionIndex: rng.Intn(len(q.Options))}
		}
		rng.Shuffle(len(answers), func(a, b int) { answers[a], answers[b] = answers[b], answers[a] })

		expected, err := scoring.Score(t, answers)
		if err != nil {
			return nil, err
		}
		students[i] = student{
			id:       fmt.Sprintf("sim-%s-%04d", run, i),
			answers:  answers,
			expected: expected,
		}
	}
	return students, nil
}

// forEach runs fn for 0..n-1 on the given number of workers.
func forEach(ctx context.Context, n, workers int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()
}

func sameScores(got, want map[string]int) bool {
	if len(got) != len(want) {
		return false
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func historyMatches(h historyResponse, submissionID, surveyID string, questions int) bool {
	if h.Total != 1 || len(h.Submissions) != 1 {
		return false
	}
	s := h.Submissions[0]
	return s.ID == submissionID &&
		s.SurveyID == surveyID &&
		s.Status == model.StatusSubmitted &&
		len(s.AnswerDetails) == questions
}

// displayFinalStats logs the final statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.String("surveyID", stats.SurveyID),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("historiesChecked", stats.HistoriesChecked),
		logger.Int("historyMismatches", stats.HistoryMismatches),
		logger.Any("dominantByCategory", stats.DominantByCategory),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
