package survey_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/survey"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func compileOpts() []survey.Option {
	return []survey.Option{
		survey.WithIDGenerator(sequentialIDs()),
		survey.WithClock(func() time.Time { return fixedNow }),
	}
}

func TestScoresJSON(t *testing.T) {
	Convey("Given a scores object", t, func() {
		raw := `{"Zeta": 3, "Alpha": 0, "Mid": 10}`

		Convey("When it is decoded", func() {
			var s survey.Scores
			err := json.Unmarshal([]byte(raw), &s)

			Convey("Then key order is preserved", func() {
				So(err, ShouldBeNil)
				So(len(s), ShouldEqual, 3)
				So(s[0].Category, ShouldEqual, "Zeta")
				So(s[1].Category, ShouldEqual, "Alpha")
				So(s[2].Category, ShouldEqual, "Mid")
			})

			Convey("Then encoding writes the same order back", func() {
				out, err := json.Marshal(s)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `{"Zeta":3,"Alpha":0,"Mid":10}`)
			})
		})

		Convey("When a value is not a number", func() {
			var s survey.Scores
			err := json.Unmarshal([]byte(`{"A":"x"}`), &s)
			So(err, ShouldNotBeNil)
		})

		Convey("When the document is not an object", func() {
			var s survey.Scores
			So(json.Unmarshal([]byte(`[1,2]`), &s), ShouldNotBeNil)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given option scores", t, func() {
		Convey("When some entries are nonzero", func() {
			out := survey.Normalize(survey.Scores{{"A", 0}, {"B", 4}, {"C", 0}})
			Convey("Then only nonzero entries remain", func() {
				So(out, ShouldResemble, survey.Scores{{"B", 4}})
			})
		})

		Convey("When every entry is zero", func() {
			in := survey.Scores{{"A", 0}, {"B", 0}, {"C", 0}}
			out := survey.Normalize(in)
			Convey("Then the full map is kept", func() {
				So(out, ShouldResemble, in)
			})
			Convey("Then normalizing again is a no-op", func() {
				So(survey.Normalize(out), ShouldResemble, in)
			})
		})

		Convey("When an id-keyed map is all zero", func() {
			out := survey.NormalizeMap(map[string]int{"a": 0, "b": 0})
			So(out, ShouldResemble, map[string]int{"a": 0, "b": 0})
		})
	})
}

func learningPayload() survey.Payload {
	return survey.Payload{
		Title:       "Learning Buddy",
		CreatorName: "Ms. Frizzle",
		Questions: []survey.QuestionPayload{
			{Text: "Do you like to move while learning?", Options: []survey.OptionPayload{
				{Label: "Yes", Scores: survey.Scores{{"Active", 5}, {"Passive", 0}}},
				{Label: "No", Scores: survey.Scores{{"Active", 0}, {"Passive", 1}}},
			}},
			{Text: "Group or solo?", Options: []survey.OptionPayload{
				{Label: "Group", Scores: survey.Scores{{"Active", 3}}},
				{Label: "Neither", Scores: survey.Scores{{"Active", 0}, {"Passive", 0}}},
			}},
		},
	}
}

func TestCompile(t *testing.T) {
	Convey("Given a valid payload without a categories list", t, func() {
		p := learningPayload()

		Convey("When it is compiled", func() {
			tpl, err := survey.Compile(p, compileOpts()...)

			Convey("Then categories follow first appearance", func() {
				So(err, ShouldBeNil)
				So(tpl.Categories, ShouldResemble, []model.Category{
					{ID: "id-1", Label: "Active"},
					{ID: "id-2", Label: "Passive"},
				})
				So(tpl.ID, ShouldEqual, "id-3")
				So(tpl.CreatedAt, ShouldEqual, fixedNow)
				So(tpl.CreatorName, ShouldEqual, "Ms. Frizzle")
			})

			Convey("Then missing question ids default to their position", func() {
				So(tpl.Questions[0].ID, ShouldEqual, "q1")
				So(tpl.Questions[1].ID, ShouldEqual, "q2")
			})

			Convey("Then scores are keyed by id and normalized", func() {
				So(tpl.Questions[0].Options[0].Scores, ShouldResemble, map[string]int{"id-1": 5})
				So(tpl.Questions[0].Options[1].Scores, ShouldResemble, map[string]int{"id-2": 1})
				So(tpl.Questions[1].Options[1].Scores, ShouldResemble, map[string]int{"id-1": 0, "id-2": 0})
			})

			Convey("Then describing it round-trips the normalized shape by label", func() {
				v := survey.Describe(tpl)
				So(v.Questions[1].Options[1].Scores, ShouldResemble, survey.Scores{{"Active", 0}, {"Passive", 0}})
				So(v.Questions[0].Options[0].Scores, ShouldResemble, survey.Scores{{"Active", 5}})
				So(v.Categories[1].Label, ShouldEqual, "Passive")
			})
		})
	})

	Convey("Given an explicit categories list", t, func() {
		p := learningPayload()
		p.Categories = []string{"Passive", "Active"}

		Convey("Then declaration order comes from the list", func() {
			tpl, err := survey.Compile(p, compileOpts()...)
			So(err, ShouldBeNil)
			So(tpl.Categories[0].Label, ShouldEqual, "Passive")
			So(tpl.Categories[1].Label, ShouldEqual, "Active")
		})

		Convey("When a score names an undeclared label", func() {
			p.Questions[0].Options[0].Scores = append(p.Questions[0].Options[0].Scores, survey.ScoreEntry{Category: "Visual", Value: 2})
			_, err := survey.Compile(p, compileOpts()...)

			Convey("Then the payload is rejected", func() {
				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Has("questions[0].options[0].scores"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a payload with many problems", t, func() {
		p := survey.Payload{
			Title:      "  ",
			Categories: []string{"A", "a", ""},
			Questions: []survey.QuestionPayload{
				{ID: "x", Text: "", Options: []survey.OptionPayload{
					{Label: "", Scores: survey.Scores{{"A", 11}}},
				}},
				{ID: "x", Text: "ok", Options: []survey.OptionPayload{
					{Label: "one", Scores: survey.Scores{{"A", 2.5}}},
					{Label: "two", Scores: survey.Scores{{"A", 1}, {"A", 2}}},
				}},
			},
		}

		Convey("When it is compiled", func() {
			_, err := survey.Compile(p, compileOpts()...)

			Convey("Then every violation is reported at once", func() {
				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				for _, field := range []string{
					"title",
					"categories[1]",
					"categories[2]",
					"questions[0].text",
					"questions[0].options",
					"questions[0].options[0].label",
					"questions[0].options[0].scores",
					"questions[1].id",
					"questions[1].options[0].scores",
					"questions[1].options[1].scores",
				} {
					So(verr.Has(field), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given a payload with no questions and no scores", t, func() {
		_, err := survey.Compile(survey.Payload{Title: "Empty"}, compileOpts()...)

		Convey("Then both minimums are violated", func() {
			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Has("categories"), ShouldBeTrue)
			So(verr.Has("questions"), ShouldBeTrue)
		})
	})
}
