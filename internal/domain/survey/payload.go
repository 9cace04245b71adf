package survey

import (
	"time"

	"github.com/okian/learnstyle/internal/domain/model"
)

// Payload is the createSurvey request body. Scores are keyed by category
// label. Categories is optional; when omitted, the declaration order is the
// order in which labels first appear across the options.
type Payload struct {
	Title       string            `json:"title"`
	CreatorName string            `json:"creatorName,omitempty"`
	Categories  []string          `json:"categories,omitempty"`
	Questions   []QuestionPayload `json:"questions"`
}

// QuestionPayload is one question of a Payload.
type QuestionPayload struct {
	ID      string          `json:"id,omitempty"`
	Text    string          `json:"text"`
	Options []OptionPayload `json:"options"`
}

// OptionPayload is one option of a QuestionPayload.
type OptionPayload struct {
	Label  string `json:"label"`
	Scores Scores `json:"scores"`
}

// View is the SurveyTemplate response shape: stable category ids are
// exposed, option scores are rendered by label in declaration order.
type View struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	CreatorName string            `json:"creatorName,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	Categories  []model.Category  `json:"categories"`
	Questions   []QuestionPayload `json:"questions"`
}

// Describe renders t in its wire form. Only the stored key set of each
// option is emitted, so the normalization applied at creation is visible.
func Describe(t model.Template) View {
	v := View{
		ID:          t.ID,
		Title:       t.Title,
		CreatorName: t.CreatorName,
		CreatedAt:   t.CreatedAt,
		Categories:  append([]model.Category(nil), t.Categories...),
		Questions:   make([]QuestionPayload, len(t.Questions)),
	}
	for i, q := range t.Questions {
		qp := QuestionPayload{ID: q.ID, Text: q.Text, Options: make([]OptionPayload, len(q.Options))}
		for j, o := range q.Options {
			scores := make(Scores, 0, len(o.Scores))
			for _, c := range t.Categories {
				if val, ok := o.Scores[c.ID]; ok {
					scores = append(scores, ScoreEntry{Category: c.Label, Value: float64(val)})
				}
			}
			qp.Options[j] = OptionPayload{Label: o.Label, Scores: scores}
		}
		v.Questions[i] = qp
	}
	return v
}
