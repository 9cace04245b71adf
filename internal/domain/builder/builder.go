// Package builder accumulates a draft survey template in memory and
// validates it before it is handed to persistence.
//
// A Builder is an immutable value. Every edit returns a new Builder and
// leaves the receiver untouched, so callers can keep older values around for
// undo or discard an edit that was rejected.
package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/survey"
)

// DefaultCategories are the learner categories a fresh draft starts with when
// WithDefaultCategories is used.
var DefaultCategories = []string{"Active Learner", "Passive Learner", "Structured Learner"}

// Builder is a draft survey template. Option score maps key on draft
// category ids, and every option always carries an entry for every
// category.
type Builder struct {
	title      string
	categories []model.Category
	questions  []model.Question
	newID      func() string
}

// Option configures New.
type Option func(*Builder)

// WithIDGenerator sets the function that mints draft category ids.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithDefaultCategories seeds the draft with DefaultCategories.
func WithDefaultCategories() Option {
	return func(b *Builder) {
		for _, label := range DefaultCategories {
			b.categories = append(b.categories, model.Category{Label: label})
		}
	}
}

// New returns an empty draft.
func New(opts ...Option) Builder {
	b := Builder{newID: draftID}
	for _, opt := range opts {
		opt(&b)
	}
	// seeded categories get ids once the generator is final
	for i := range b.categories {
		if b.categories[i].ID == "" {
			b.categories[i].ID = b.mintID()
		}
	}
	return b
}

func draftID() string {
	return "category-" + uuid.NewString()
}

// mintID draws ids until one is free. Draft ids key the score maps, so a
// reused id would merge two categories.
func (b Builder) mintID() string {
	for {
		id := b.newID()
		if id != "" && b.categoryIndex(id) < 0 {
			return id
		}
	}
}

// Title returns the draft title.
func (b Builder) Title() string { return b.title }

// Categories returns a copy of the draft categories in declaration order.
func (b Builder) Categories() []model.Category {
	return append([]model.Category(nil), b.categories...)
}

// Questions returns a deep copy of the draft questions.
func (b Builder) Questions() []model.Question {
	out := make([]model.Question, len(b.questions))
	for i, q := range b.questions {
		out[i] = q.Clone()
	}
	return out
}

func (b Builder) clone() Builder {
	out := b
	out.categories = b.Categories()
	out.questions = b.Questions()
	return out
}

// SetTitle replaces the title.
func (b Builder) SetTitle(title string) Builder {
	out := b.clone()
	out.title = title
	return out
}

// AddCategory appends a category with a freshly minted id. Every existing
// option gains a zero score for it.
func (b Builder) AddCategory(label string) (Builder, error) {
	label = strings.TrimSpace(label)
	if err := b.checkLabel(label, ""); err != nil {
		return b, err
	}
	out := b.clone()
	c := model.Category{ID: out.mintID(), Label: label}
	out.categories = append(out.categories, c)
	for qi := range out.questions {
		for oi := range out.questions[qi].Options {
			out.questions[qi].Options[oi].Scores[c.ID] = 0
		}
	}
	return out, nil
}

// RenameCategory changes the label of an existing category.
func (b Builder) RenameCategory(id, label string) (Builder, error) {
	i := b.categoryIndex(id)
	if i < 0 {
		return b, model.NewNotFound("category", id)
	}
	label = strings.TrimSpace(label)
	if err := b.checkLabel(label, id); err != nil {
		return b, err
	}
	out := b.clone()
	out.categories[i].Label = label
	return out, nil
}

// RemoveCategory drops a category and strips its key from every option. The
// last remaining category cannot be removed.
func (b Builder) RemoveCategory(id string) (Builder, error) {
	i := b.categoryIndex(id)
	if i < 0 {
		return b, model.NewNotFound("category", id)
	}
	if len(b.categories) <= 1 {
		return b, model.NewValidationError(model.Violation{
			Field:   "categories",
			Message: "at least one category is required",
		})
	}
	out := b.clone()
	out.categories = append(out.categories[:i], out.categories[i+1:]...)
	for qi := range out.questions {
		for oi := range out.questions[qi].Options {
			delete(out.questions[qi].Options[oi].Scores, id)
		}
	}
	return out, nil
}

// AddQuestion appends a question with two empty options.
func (b Builder) AddQuestion() Builder {
	out := b.clone()
	out.questions = append(out.questions, model.Question{
		Options: []model.Option{out.emptyOption(), out.emptyOption()},
	})
	return out
}

// RemoveQuestion drops the question at index.
func (b Builder) RemoveQuestion(index int) (Builder, error) {
	if err := b.checkQuestion(index); err != nil {
		return b, err
	}
	out := b.clone()
	out.questions = append(out.questions[:index], out.questions[index+1:]...)
	return out, nil
}

// SetQuestionText replaces the text of the question at index.
func (b Builder) SetQuestionText(index int, text string) (Builder, error) {
	if err := b.checkQuestion(index); err != nil {
		return b, err
	}
	out := b.clone()
	out.questions[index].Text = text
	return out, nil
}

// AddOption appends an empty option to the question at qi.
func (b Builder) AddOption(qi int) (Builder, error) {
	if err := b.checkQuestion(qi); err != nil {
		return b, err
	}
	out := b.clone()
	out.questions[qi].Options = append(out.questions[qi].Options, out.emptyOption())
	return out, nil
}

// RemoveOption drops an option; a question never goes below
// model.MinOptions options.
func (b Builder) RemoveOption(qi, oi int) (Builder, error) {
	if err := b.checkOption(qi, oi); err != nil {
		return b, err
	}
	if len(b.questions[qi].Options) <= model.MinOptions {
		return b, model.NewValidationError(model.Violation{
			Field:   fmt.Sprintf("questions[%d].options", qi),
			Message: fmt.Sprintf("at least %d options are required", model.MinOptions),
		})
	}
	out := b.clone()
	opts := out.questions[qi].Options
	out.questions[qi].Options = append(opts[:oi], opts[oi+1:]...)
	return out, nil
}

// SetOptionLabel replaces an option label.
func (b Builder) SetOptionLabel(qi, oi int, label string) (Builder, error) {
	if err := b.checkOption(qi, oi); err != nil {
		return b, err
	}
	out := b.clone()
	out.questions[qi].Options[oi].Label = label
	return out, nil
}

// SetOptionScore sets the score of one option for one category. The value is
// clamped to [model.MinScore, model.MaxScore].
func (b Builder) SetOptionScore(qi, oi int, categoryID string, value int) (Builder, error) {
	if err := b.checkOption(qi, oi); err != nil {
		return b, err
	}
	if b.categoryIndex(categoryID) < 0 {
		return b, model.NewNotFound("category", categoryID)
	}
	out := b.clone()
	out.questions[qi].Options[oi].Scores[categoryID] = model.ClampScore(value)
	return out, nil
}

// Validate reports every problem with the draft in one error.
func (b Builder) Validate() error {
	verr := model.NewValidationError()
	if strings.TrimSpace(b.title) == "" {
		verr.Add("title", "must not be empty")
	}
	if len(b.categories) == 0 {
		verr.Add("categories", "at least one category is required")
	}
	for i, c := range b.categories {
		if strings.TrimSpace(c.Label) == "" {
			verr.Add(fmt.Sprintf("categories[%d]", i), "label must not be empty")
		}
	}
	if len(b.questions) == 0 {
		verr.Add("questions", "at least one question is required")
	}
	for qi, q := range b.questions {
		if strings.TrimSpace(q.Text) == "" {
			verr.Add(fmt.Sprintf("questions[%d].text", qi), "must not be empty")
		}
		if len(q.Options) < model.MinOptions {
			verr.Add(fmt.Sprintf("questions[%d].options", qi), "at least %d options are required", model.MinOptions)
		}
		for oi, o := range q.Options {
			if strings.TrimSpace(o.Label) == "" {
				verr.Add(fmt.Sprintf("questions[%d].options[%d].label", qi, oi), "must not be empty")
			}
		}
	}
	return verr.OrNil()
}

// ToPersistablePayload validates the draft and renders it in wire form:
// questions are numbered q1..qN, scores are keyed by category label in
// declaration order and normalized. Draft ids do not appear in the result.
func (b Builder) ToPersistablePayload() (survey.Payload, error) {
	if err := b.Validate(); err != nil {
		return survey.Payload{}, err
	}

	p := survey.Payload{
		Title:      strings.TrimSpace(b.title),
		Categories: make([]string, len(b.categories)),
		Questions:  make([]survey.QuestionPayload, len(b.questions)),
	}
	for i, c := range b.categories {
		p.Categories[i] = strings.TrimSpace(c.Label)
	}
	for qi, q := range b.questions {
		qp := survey.QuestionPayload{
			ID:      "q" + strconv.Itoa(qi+1),
			Text:    strings.TrimSpace(q.Text),
			Options: make([]survey.OptionPayload, len(q.Options)),
		}
		for oi, o := range q.Options {
			scores := make(survey.Scores, 0, len(b.categories))
			for ci, c := range b.categories {
				scores = append(scores, survey.ScoreEntry{Category: p.Categories[ci], Value: float64(o.Scores[c.ID])})
			}
			qp.Options[oi] = survey.OptionPayload{
				Label:  strings.TrimSpace(o.Label),
				Scores: survey.Normalize(scores),
			}
		}
		p.Questions[qi] = qp
	}
	return p, nil
}

func (b Builder) emptyOption() model.Option {
	scores := make(map[string]int, len(b.categories))
	for _, c := range b.categories {
		scores[c.ID] = 0
	}
	return model.Option{Scores: scores}
}

func (b Builder) categoryIndex(id string) int {
	for i, c := range b.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (b Builder) checkLabel(label, selfID string) error {
	if label == "" {
		return model.NewValidationError(model.Violation{Field: "label", Message: "must not be empty"})
	}
	for _, c := range b.categories {
		if c.ID != selfID && strings.EqualFold(strings.TrimSpace(c.Label), label) {
			return model.NewValidationError(model.Violation{
				Field:   "label",
				Message: fmt.Sprintf("duplicate category label %q", label),
			})
		}
	}
	return nil
}

func (b Builder) checkQuestion(qi int) error {
	if qi < 0 || qi >= len(b.questions) {
		return model.NewNotFound("question", strconv.Itoa(qi))
	}
	return nil
}

func (b Builder) checkOption(qi, oi int) error {
	if err := b.checkQuestion(qi); err != nil {
		return err
	}
	if oi < 0 || oi >= len(b.questions[qi].Options) {
		return model.NewNotFound("option", fmt.Sprintf("%d/%d", qi, oi))
	}
	return nil
}
