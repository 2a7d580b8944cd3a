package app

import (
	"fmt"
	"sync"
	"time"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/scoring"
)

// Session is the state machine of a single quiz attempt over a fixed, ordered question list.
type Session struct {
	id string

	mu        sync.RWMutex
	state     domain.State
	questions []domain.Question
	timeLimit time.Duration
	index     int
	results   map[string]domain.QuestionResult
}

// NewSession creates a session in the not-started state.
func NewSession(id string) *Session {
	return &Session{
		id:      id,
		state:   domain.StateNotStarted,
		results: make(map[string]domain.QuestionResult),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start begins the quiz over questions, each answered within timeLimit.
func (s *Session) Start(questions []domain.Question, timeLimit time.Duration) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: question list is empty", domain.ErrInvalidArgument)
	}
	if timeLimit <= 0 {
		return fmt.Errorf("%w: time limit must be positive, got %s", domain.ErrInvalidArgument, timeLimit)
	}
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %s", domain.ErrInvalidArgument, q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateNotStarted {
		return fmt.Errorf("%w: start requires %s, session is %s", domain.ErrInvalidState, domain.StateNotStarted, s.state)
	}

	s.questions = append([]domain.Question(nil), questions...)
	s.timeLimit = timeLimit
	s.index = 0
	s.results = make(map[string]domain.QuestionResult, len(questions))
	s.state = domain.StateInProgress
	return nil
}

// CurrentQuestion returns the question awaiting an answer.
func (s *Session) CurrentQuestion() (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (domain.Question, error) {
	if s.state != domain.StateInProgress {
		return domain.Question{}, fmt.Errorf("%w: no current question while %s", domain.ErrInvalidState, s.state)
	}
	if s.index < 0 || s.index >= len(s.questions) {
		return domain.Question{}, fmt.Errorf("%w: index %d out of bounds", domain.ErrInvalidState, s.index)
	}
	return s.questions[s.index], nil
}

// SubmitAnswer resolves the current question. selectedIndex is an option index or domain.NoAnswer;
// timeTaken is clamped to [0, time limit] before scoring. A rejected submission changes nothing.
func (s *Session) SubmitAnswer(questionID string, selectedIndex int, timeTaken time.Duration) (domain.QuestionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateNotStarted {
		return domain.QuestionResult{}, fmt.Errorf("%w: session not started", domain.ErrInvalidState)
	}

	// The index stays on the last question once finished.
	current := s.questions[s.index]
	if questionID != current.ID {
		return domain.QuestionResult{}, fmt.Errorf("%w: question %s is not current (current is %s)", domain.ErrStaleSubmission, questionID, current.ID)
	}
	if _, done := s.results[questionID]; done {
		return domain.QuestionResult{}, fmt.Errorf("%w: question %s already resolved", domain.ErrDuplicateSubmission, questionID)
	}
	if s.state != domain.StateInProgress {
		return domain.QuestionResult{}, fmt.Errorf("%w: session is %s", domain.ErrInvalidState, s.state)
	}
	if selectedIndex != domain.NoAnswer && !current.ValidOption(selectedIndex) {
		return domain.QuestionResult{}, fmt.Errorf("%w: option %d out of range for question %s", domain.ErrInvalidArgument, selectedIndex, questionID)
	}

	taken := clampDuration(timeTaken, 0, s.timeLimit)
	correct := selectedIndex == current.AnswerIndex
	score := scoring.Score(correct, taken, s.timeLimit)

	result := domain.QuestionResult{
		QuestionID:    questionID,
		IsCorrect:     correct,
		TimeTaken:     taken,
		SelectedIndex: selectedIndex,
		AccuracyScore: score.Accuracy,
		SpeedScore:    score.Speed,
		Score:         score.Total,
	}
	s.results[questionID] = result

	if s.index == len(s.questions)-1 {
		s.state = domain.StateFinished
	} else {
		s.index++
	}
	return result, nil
}

// Restart returns the session to the not-started state. The question list stays
// readable through Questions so callers can replay it.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.StateNotStarted
	s.index = 0
	s.results = make(map[string]domain.QuestionResult)
}

// Stats projects aggregate statistics from the recorded results.
func (s *Session) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *Session) statsLocked() domain.Stats {
	stats := domain.Stats{
		TotalQuestions: len(s.questions),
		TotalMaxScore:  scoring.MaxTotal(len(s.questions)),
	}
	var elapsed time.Duration
	for _, r := range s.results {
		stats.TotalScore += r.Score
		stats.AnsweredCount++
		if r.IsCorrect {
			stats.CorrectCount++
		}
		elapsed += r.TimeTaken
	}
	if stats.TotalQuestions > 0 {
		stats.AverageTime = elapsed / time.Duration(stats.TotalQuestions)
	}
	return stats
}

// Results returns the recorded results in question order.
func (s *Session) Results() []domain.QuestionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resultsLocked()
}

func (s *Session) resultsLocked() []domain.QuestionResult {
	out := make([]domain.QuestionResult, 0, len(s.results))
	for _, q := range s.questions {
		if r, ok := s.results[q.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Result returns the recorded result for a question, if any.
func (s *Session) Result(questionID string) (domain.QuestionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[questionID]
	return r, ok
}

// Questions returns a copy of the session's question list.
func (s *Session) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Question(nil), s.questions...)
}

func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Session) TimeLimit() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeLimit
}

// view builds a presentation snapshot; remaining is supplied by whoever owns the countdown.
func (s *Session) view(remaining time.Duration) domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := domain.View{
		State:     s.state,
		Total:     len(s.questions),
		TimeLimit: s.timeLimit,
		Stats:     s.statsLocked(),
		Results:   s.resultsLocked(),
	}
	if s.state == domain.StateInProgress {
		q := s.questions[s.index]
		v.Question = &q
		v.Index = s.index
		v.TimeRemaining = remaining
	}
	if s.state == domain.StateFinished {
		v.Questions = append([]domain.Question(nil), s.questions...)
	}
	return v
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
