package simulate

import (
	"fmt"

	"github.com/okian/learnstyle/internal/domain/builder"
	"github.com/okian/learnstyle/internal/domain/survey"
)

// Learning Buddy categories, in declaration order.
const (
	active = iota
	structured
	passive
)

var buddyCategories = []string{"Active learner", "Structured learner", "Passive learner"}

// seedOption is an option that scores a single category.
type seedOption struct {
	label    string
	category int
	value    int
}

type seedQuestion struct {
	text    string
	options []seedOption
}

func likert(category int, labels [5]string, reversed bool) []seedOption {
	out := make([]seedOption, len(labels))
	for i, l := range labels {
		v := i + 1
		if reversed {
			v = len(labels) - i
		}
		out[i] = seedOption{label: fmt.Sprintf("%d - %s", i+1, l), category: category, value: v}
	}
	return out
}

var (
	agreement = [5]string{"Not at all", "A little", "Not sure", "Mostly", "Yes, a lot"}
	energy    = [5]string{"Very low", "Low", "Okay", "High", "Very high"}
	worry     = [5]string{"Not worried", "A little worried", "Somewhat worried", "Quite worried", "Very worried"}
)

var buddyQuestions = []seedQuestion{
	{"When I can move or use my hands, I learn better.", likert(active, agreement, false)},
	{"A short move break before learning helps me.", likert(active, agreement, false)},
	{"Pictures or step cards make things clear for me.", likert(structured, agreement, false)},
	{"A clear checklist or plan helps me focus.", likert(structured, agreement, false)},
	{"My energy right now is...", likert(passive, energy, true)},
	{"My worry right now is...", likert(passive, worry, false)},
	{"What do you want to do first?", []seedOption{
		{"A - Move break", active, 5},
		{"B - Calm time", passive, 5},
		{"C - Lesson preview", structured, 5},
	}},
	{"When I get stuck, I like to...", []seedOption{
		{"A - Try it with hands/body", active, 5},
		{"B - Look at an example or steps", structured, 5},
		{"C - Take a quiet minute first", passive, 5},
	}},
	{"Which starter helps you most today?", []seedOption{
		{"A - Quick game / movement challenge", active, 5},
		{"B - Picture card of today's steps", structured, 5},
		{"C - Quiet breath + 30-sec video", passive, 5},
	}},
}

// LearningBuddy drafts the "Learning Buddy: Style Check" survey with the
// template builder and returns its creation payload.
func LearningBuddy() (survey.Payload, error) {
	b := builder.New().SetTitle("Learning Buddy: Style Check")

	var err error
	for _, label := range buddyCategories {
		if b, err = b.AddCategory(label); err != nil {
			return survey.Payload{}, err
		}
	}
	cats := b.Categories()

	for qi, sq := range buddyQuestions {
		b = b.AddQuestion()
		if b, err = b.SetQuestionText(qi, sq.text); err != nil {
			return survey.Payload{}, err
		}
		for oi, so := range sq.options {
			// a new question starts with two empty options
			if oi >= 2 {
				if b, err = b.AddOption(qi); err != nil {
					return survey.Payload{}, err
				}
			}
			if b, err = b.SetOptionLabel(qi, oi, so.label); err != nil {
				return survey.Payload{}, err
			}
			if b, err = b.SetOptionScore(qi, oi, cats[so.category].ID, so.value); err != nil {
				return survey.Payload{}, err
			}
		}
	}

	p, err := b.ToPersistablePayload()
	if err != nil {
		return survey.Payload{}, err
	}
	p.CreatorName = "Classroom Simulator"
	return p, nil
}
