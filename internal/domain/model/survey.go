// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Score bounds for a single option/category cell.
const (
	MinScore = 0
	MaxScore = 10
)

// MinOptions is the smallest number of options a question may carry.
const MinOptions = 2

// Category is one classification dimension of a template. Score maps key on
// ID; Label is for display and the wire format.
type Category struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label" bson:"label"`
}

// Option is a selectable answer. Scores is keyed by category id and its key
// set is always a subset of the owning template's category ids.
type Option struct {
	Label  string         `json:"label" bson:"label"`
	Scores map[string]int `json:"scores" bson:"scores"`
}

// Question is one prompt of a template.
type Question struct {
	ID      string   `json:"id" bson:"id"`
	Text    string   `json:"text" bson:"text"`
	Options []Option `json:"options" bson:"options"`
}

// Template is a persisted, immutable survey. Category order is significant:
// it breaks ties when picking the dominant category.
type Template struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	CreatorName string     `json:"creatorName,omitempty" bson:"creatorName,omitempty"`
	Categories  []Category `json:"categories" bson:"categories"`
	Questions   []Question `json:"questions" bson:"questions"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}

// TemplateSummary is the listing shape of a template.
type TemplateSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount"`
	CreatorName   string    `json:"creatorName,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// Summary returns the listing shape of t.
func (t Template) Summary() TemplateSummary {
	return TemplateSummary{
		ID:            t.ID,
		Title:         t.Title,
		QuestionCount: len(t.Questions),
		CreatorName:   t.CreatorName,
		CreatedAt:     t.CreatedAt,
	}
}

// CategoryIndex returns the declaration index of the category id, or -1.
func (t Template) CategoryIndex(id string) int {
	for i, c := range t.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CategoryLabel returns the label for id, or "" when unknown.
func (t Template) CategoryLabel(id string) string {
	if i := t.CategoryIndex(id); i >= 0 {
		return t.Categories[i].Label
	}
	return ""
}

// CategoryByLabel looks a category up by label, case-insensitively.
func (t Template) CategoryByLabel(label string) (Category, bool) {
	label = strings.TrimSpace(label)
	for _, c := range t.Categories {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryLabels maps every category id to its label.
func (t Template) CategoryLabels() map[string]string {
	out := make(map[string]string, len(t.Categories))
	for _, c := range t.Categories {
		out[c.ID] = c.Label
	}
	return out
}

// QuestionIndex returns the position of the question id, or -1.
func (t Template) QuestionIndex(id string) int {
	for i, q := range t.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy; templates handed to callers never share maps
// with stored values.
func (t Template) Clone() Template {
	out := t
	out.Categories = append([]Category(nil), t.Categories...)
	out.Questions = make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	out := q
	out.Options = make([]Option, len(q.Options))
	for i, o := range q.Options {
		out.Options[i] = o.Clone()
	}
	return out
}

// Clone returns a deep copy of o.
func (o Option) Clone() Option {
	out := o
	out.Scores = make(map[string]int, len(o.Scores))
	for k, v := range o.Scores {
		out.Scores[k] = v
	}
	return out
}

// ClampScore bounds v to [MinScore, MaxScore].
func ClampScore(v int) int {
	switch {
	case v < MinScore:
		return MinScore
	case v > MaxScore:
		return MaxScore
	default:
		return v
	}
}
