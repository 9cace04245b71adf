// Package scoring reduces a student's answers against a survey template into
// a per-category score vector and a single dominant category.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/metrics"
)

// CategoryScore is one entry of the ordered score vector.
type CategoryScore struct {
	CategoryID string `json:"categoryId"`
	Label      string `json:"label"`
	Score      int    `json:"score"`
}

// Outcome is the result of scoring one submission.
type Outcome struct {
	// Scores holds the final sum per category id; every template category is
	// present, including those that accumulated 0.
	Scores           map[string]int
	DominantCategory string
	// Ordered is Scores in template declaration order.
	Ordered []CategoryScore
}

// DominantLabel returns the label of the dominant category.
func (o Outcome) DominantLabel() string {
	for _, c := range o.Ordered {
		if c.CategoryID == o.DominantCategory {
			return c.Label
		}
	}
	return ""
}

// Score computes the outcome of answers against t. It has no side effects
// and returns identical results for identical inputs regardless of answer
// order.
func Score(t model.Template, answers []model.Answer) (Outcome, error) {
	if len(answers) < len(t.Questions) {
		return Outcome{}, &model.IncompleteError{Answered: len(answers), Required: len(t.Questions)}
	}

	chosen := make([]*model.Option, len(t.Questions))
	for _, a := range answers {
		qi := t.QuestionIndex(a.QuestionID)
		if qi < 0 {
			return Outcome{}, &model.AnswerError{QuestionID: a.QuestionID, Reason: "unknown question"}
		}
		if chosen[qi] != nil {
			return Outcome{}, &model.AnswerError{QuestionID: a.QuestionID, Reason: "answered more than once"}
		}
		q := t.Questions[qi]
		if a.SelectedOptionIndex < 0 || a.SelectedOptionIndex >= len(q.Options) {
			return Outcome{}, &model.AnswerError{
				QuestionID: a.QuestionID,
				Reason:     fmt.Sprintf("selected option %d out of range [0,%d)", a.SelectedOptionIndex, len(q.Options)),
			}
		}
		chosen[qi] = &q.Options[a.SelectedOptionIndex]
	}
	// more answers than questions with no duplicate/unknown is impossible,
	// so any gap here is a question nobody answered
	for qi, opt := range chosen {
		if opt == nil {
			return Outcome{}, &model.AnswerError{QuestionID: t.Questions[qi].ID, Reason: "not answered"}
		}
	}

	sums := make([]int, len(t.Categories))
	for _, opt := range chosen {
		for ci, c := range t.Categories {
			sums[ci] += opt.Scores[c.ID]
		}
	}

	out := Outcome{
		Scores:  make(map[string]int, len(t.Categories)),
		Ordered: make([]CategoryScore, len(t.Categories)),
	}
	best := -1
	for ci, c := range t.Categories {
		out.Scores[c.ID] = sums[ci]
		out.Ordered[ci] = CategoryScore{CategoryID: c.ID, Label: c.Label, Score: sums[ci]}
		if best < 0 || sums[ci] > sums[best] {
			best = ci
		}
	}
	if best >= 0 {
		out.DominantCategory = t.Categories[best].ID
	}
	return out, nil
}

// Scorer computes outcomes for the service layer.
type Scorer interface {
	Score(ctx context.Context, t model.Template, answers []model.Answer) (Outcome, error)
}

// Engine is the Scorer used by the service. It wraps Score with latency
// metrics and honors context cancellation before doing any work.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score implements Scorer.
func (e *Engine) Score(ctx context.Context, t model.Template, answers []model.Answer) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("context cancelled: %w", err)
	}
	start := e.now()
	out, err := Score(t, answers)
	metrics.RecordScoringLatency(float64(e.now().Sub(start).Microseconds()) / 1000)
	return out, err
}
