package domain

import (
	"fmt"
	"time"
)

// NoAnswer is the selected index recorded when a question timed out without a selection.
const NoAnswer = -1

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id"`
	Category    string   `json:"section"`
	Prompt      string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question id is empty", ErrInvalidArgument)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %s has %d options, need at least 2", ErrInvalidArgument, q.ID, len(q.Options))
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %s answer index %d out of range", ErrInvalidArgument, q.ID, q.AnswerIndex)
	}
	return nil
}

// ValidOption reports whether idx addresses one of the question's options.
func (q Question) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// Pool is a named collection of questions the selector draws from.
type Pool struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Categories returns the distinct categories in pool order.
func (p Pool) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range p.Questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}
	return out
}

// QuestionResult is the immutable outcome of one question in a session.
// Score always equals AccuracyScore + SpeedScore.
type QuestionResult struct {
	QuestionID    string
	IsCorrect     bool
	TimeTaken     time.Duration
	SelectedIndex int
	AccuracyScore float64
	SpeedScore    float64
	Score         float64
}

// TimedOut reports whether the question ended without a selection.
func (r QuestionResult) TimedOut() bool {
	return r.SelectedIndex == NoAnswer
}

// State is the lifecycle state of a quiz session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats aggregates the recorded results of a session.
type Stats struct {
	TotalScore     float64
	TotalMaxScore  float64
	TotalQuestions int
	CorrectCount   int
	AnsweredCount  int
	AverageTime    time.Duration
}

// Accuracy returns the share of questions answered correctly, in [0,1].
func (s Stats) Accuracy() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.TotalQuestions)
}

// View is what a presentation layer renders at any point of a session.
// Question, Index and TimeRemaining are set only while in progress; Questions only
// once finished, for the breakdown. Results holds recorded results in question order.
type View struct {
	State         State
	Question      *Question
	Index         int
	Total         int
	TimeLimit     time.Duration
	TimeRemaining time.Duration
	Stats         Stats
	Results       []QuestionResult
	Questions     []Question
}
