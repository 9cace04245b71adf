package model

import "time"

// StatusSubmitted is the only status a stored submission can have.
const StatusSubmitted = "submitted"

// Answer selects one option of one question.
type Answer struct {
	QuestionID          string `json:"questionId" bson:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex" bson:"selectedOptionIndex"`
}

// SubmissionRequest is the createSubmission input.
type SubmissionRequest struct {
	SurveyID    string   `json:"surveyId"`
	StudentID   string   `json:"studentId"`
	SessionID   string   `json:"sessionId,omitempty"`
	CourseTitle string   `json:"courseTitle,omitempty"`
	Answers     []Answer `json:"answers"`

	// IdempotencyKey is scoped per student. Empty disables replay detection.
	IdempotencyKey string `json:"-"`
}

// AnswerDetail is the denormalized form of an answer kept for history views.
type AnswerDetail struct {
	QuestionID         string `json:"questionId" bson:"questionId"`
	QuestionText       string `json:"questionText" bson:"questionText"`
	SelectedOptionText string `json:"selectedOptionText" bson:"selectedOptionText"`
}

// Submission is one student's scored, immutable survey result.
type Submission struct {
	ID        string   `json:"id" bson:"_id"`
	StudentID string   `json:"studentId" bson:"studentId"`
	SurveyID  string   `json:"surveyId" bson:"surveyId"`
	Answers   []Answer `json:"answers" bson:"answers"`

	// Scores and DominantCategory key on category ids of the template.
	Scores           map[string]int `json:"scores" bson:"scores"`
	DominantCategory string         `json:"dominantCategory" bson:"dominantCategory"`

	DominantCategoryLabel string            `json:"dominantCategoryLabel" bson:"dominantCategoryLabel"`
	CategoryLabels        map[string]string `json:"categoryLabels" bson:"categoryLabels"`
	AnswerDetails         []AnswerDetail    `json:"answerDetails" bson:"answerDetails"`

	SessionID   string    `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	CourseTitle string    `json:"courseTitle,omitempty" bson:"courseTitle,omitempty"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// ScoresByLabel re-keys the score vector by category label.
func (s Submission) ScoresByLabel() map[string]int {
	out := make(map[string]int, len(s.Scores))
	for id, v := range s.Scores {
		label, ok := s.CategoryLabels[id]
		if !ok {
			label = id
		}
		out[label] = v
	}
	return out
}

// ClassificationEvent announces a newly scored submission to downstream
// consumers such as an activity recommender.
type ClassificationEvent struct {
	SubmissionID          string         `json:"submissionId"`
	StudentID             string         `json:"studentId"`
	SurveyID              string         `json:"surveyId"`
	SessionID             string         `json:"sessionId,omitempty"`
	DominantCategory      string         `json:"dominantCategory"`
	DominantCategoryLabel string         `json:"dominantCategoryLabel"`
	Scores                map[string]int `json:"scores"`
	CreatedAt             time.Time      `json:"createdAt"`
}

// Event builds the classification event for s.
func (s Submission) Event() ClassificationEvent {
	return ClassificationEvent{
		SubmissionID:          s.ID,
		StudentID:             s.StudentID,
		SurveyID:              s.SurveyID,
		SessionID:             s.SessionID,
		DominantCategory:      s.DominantCategory,
		DominantCategoryLabel: s.DominantCategoryLabel,
		Scores:                s.ScoresByLabel(),
		CreatedAt:             s.CreatedAt,
	}
}
