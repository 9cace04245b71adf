package survey

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/learnstyle/internal/domain/model"
)

// Option configures Compile.
type Option func(*compiler)

type compiler struct {
	newID func() string
	now   func() time.Time
}

// WithIDGenerator overrides how template and category ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *compiler) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(c *compiler) {
		if fn != nil {
			c.now = fn
		}
	}
}

// Compile validates p and turns it into a persistable template. Every
// violation is collected into a single *model.ValidationError. Category ids
// are minted here; option scores are re-keyed from label to id and passed
// through Normalize.
func Compile(p Payload, opts ...Option) (model.Template, error) {
	c := &compiler{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}

	verr := model.NewValidationError()

	title := strings.TrimSpace(p.Title)
	if title == "" {
		verr.Add("title", "must not be empty")
	}

	labels := p.Categories
	explicit := len(labels) > 0
	if !explicit {
		labels = labelsInFirstAppearance(p.Questions)
	}

	categories := make([]model.Category, 0, len(labels))
	byLabel := make(map[string]string, len(labels))
	for i, raw := range labels {
		label := strings.TrimSpace(raw)
		field := fmt.Sprintf("categories[%d]", i)
		if label == "" {
			if explicit {
				verr.Add(field, "label must not be empty")
			}
			continue
		}
		key := strings.ToLower(label)
		if _, dup := byLabel[key]; dup {
			verr.Add(field, "duplicate category label %q", label)
			continue
		}
		id := c.newID()
		byLabel[key] = id
		categories = append(categories, model.Category{ID: id, Label: label})
	}
	if len(categories) == 0 {
		verr.Add("categories", "at least one category is required")
	}

	if len(p.Questions) == 0 {
		verr.Add("questions", "at least one question is required")
	}

	questions := make([]model.Question, 0, len(p.Questions))
	seenIDs := make(map[string]struct{}, len(p.Questions))
	for qi, qp := range p.Questions {
		qfield := fmt.Sprintf("questions[%d]", qi)

		qid := strings.TrimSpace(qp.ID)
		if qid == "" {
			qid = fmt.Sprintf("q%d", qi+1)
		}
		if _, dup := seenIDs[qid]; dup {
			verr.Add(qfield+".id", "duplicate question id %q", qid)
		}
		seenIDs[qid] = struct{}{}

		text := strings.TrimSpace(qp.Text)
		if text == "" {
			verr.Add(qfield+".text", "must not be empty")
		}
		if len(qp.Options) < model.MinOptions {
			verr.Add(qfield+".options", "at least %d options are required", model.MinOptions)
		}

		q := model.Question{ID: qid, Text: text, Options: make([]model.Option, 0, len(qp.Options))}
		for oi, op := range qp.Options {
			ofield := fmt.Sprintf("%s.options[%d]", qfield, oi)
			label := strings.TrimSpace(op.Label)
			if label == "" {
				verr.Add(ofield+".label", "must not be empty")
			}
			q.Options = append(q.Options, model.Option{
				Label:  label,
				Scores: compileScores(op.Scores, byLabel, ofield+".scores", verr),
			})
		}
		questions = append(questions, q)
	}

	if err := verr.OrNil(); err != nil {
		return model.Template{}, err
	}

	return model.Template{
		ID:          c.newID(),
		Title:       title,
		CreatorName: strings.TrimSpace(p.CreatorName),
		Categories:  categories,
		Questions:   questions,
		CreatedAt:   c.now(),
	}, nil
}

func compileScores(s Scores, byLabel map[string]string, field string, verr *model.ValidationError) map[string]int {
	out := make(map[string]int, len(s))
	for _, e := range s {
		label := strings.TrimSpace(e.Category)
		id, ok := byLabel[strings.ToLower(label)]
		if !ok {
			if label != "" {
				verr.Add(field, "unknown category %q", label)
			} else {
				verr.Add(field, "category label must not be empty")
			}
			continue
		}
		if _, dup := out[id]; dup {
			verr.Add(field, "duplicate score for category %q", label)
			continue
		}
		if e.Value != math.Trunc(e.Value) || e.Value < model.MinScore || e.Value > model.MaxScore {
			verr.Add(field, "score for %q must be an integer in [%d,%d]", label, model.MinScore, model.MaxScore)
			continue
		}
		out[id] = int(e.Value)
	}
	return NormalizeMap(out)
}

// labelsInFirstAppearance derives the declaration order when a payload does
// not list its categories.
func labelsInFirstAppearance(questions []QuestionPayload) []string {
	var labels []string
	seen := make(map[string]struct{})
	for _, q := range questions {
		for _, o := range q.Options {
			for _, e := range o.Scores {
				label := strings.TrimSpace(e.Category)
				key := strings.ToLower(label)
				if label == "" {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				labels = append(labels, label)
			}
		}
	}
	return labels
}
