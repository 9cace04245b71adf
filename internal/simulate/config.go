// Package simulate drives a running learnstyle service the way a classroom
// would: one instructor publishes a survey, then many students answer it at
// once. Every classification returned by the service is checked against a
// local scoring run.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Students int           // Number of students submitting answers
	Workers  int           // Number of concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	Seed     int64         // Seed for answer generation
	Verbose  bool          // Log every submission
}

// Stats holds run statistics.
type Stats struct {
	SurveyID           string
	Submitted          int
	Successful         int
	Failed             int
	Mismatched         int
	HistoriesChecked   int
	HistoryMismatches  int
	DominantByCategory map[string]int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// OK reports whether every submission succeeded and matched.
func (s *Stats) OK() bool {
	return s.Failed == 0 && s.Mismatched == 0 && s.HistoryMismatches == 0
}
