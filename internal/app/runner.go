package app

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"quiz-engine/internal/domain"
)

// RunnerConfig tunes the per-question countdown.
type RunnerConfig struct {
	TimeLimit time.Duration
	Tick      time.Duration
}

// DefaultRunnerConfig is a one-minute limit counted down in one-second ticks.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{TimeLimit: 60 * time.Second, Tick: time.Second}
}

// Runner drives a Session in real time: it counts down the active question and funnels
// both the user's confirmation and the timeout into a single SubmitAnswer per question.
type Runner struct {
	session *Session
	cfg     RunnerConfig
	now     func() time.Time
	logger  *zap.Logger

	mu          sync.Mutex
	active      *countdown
	closed      bool
	subscribers map[chan domain.View]struct{}
}

// countdown belongs to exactly one question. resolved flips once, to whichever of
// confirm or timeout gets there first.
type countdown struct {
	questionID string
	startedAt  time.Time
	remaining  int
	resolved   atomic.Bool
	stop       chan struct{}
}

func NewRunner(id string, cfg RunnerConfig, logger *zap.Logger) *Runner {
	return NewRunnerWithClock(id, cfg, logger, time.Now)
}

// NewRunnerWithClock allows deterministic elapsed times in tests.
func NewRunnerWithClock(id string, cfg RunnerConfig, logger *zap.Logger, now func() time.Time) *Runner {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultRunnerConfig().TimeLimit
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultRunnerConfig().Tick
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		session:     NewSession(id),
		cfg:         cfg,
		now:         now,
		logger:      logger.With(zap.String("session_id", id)),
		subscribers: make(map[chan domain.View]struct{}),
	}
}

// Session exposes the underlying state machine for read-only inspection.
func (r *Runner) Session() *Session {
	return r.session
}

func (r *Runner) Config() RunnerConfig {
	return r.cfg
}

// Start begins a quiz over questions and arms the countdown for the first one.
func (r *Runner) Start(questions []domain.Question) (domain.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.View{}, fmt.Errorf("%w: runner closed", domain.ErrInvalidState)
	}
	if err := r.session.Start(questions, r.cfg.TimeLimit); err != nil {
		return domain.View{}, err
	}
	r.logger.Debug("quiz started", zap.Int("questions", len(questions)), zap.Duration("time_limit", r.cfg.TimeLimit))
	r.armLocked()
	return r.broadcastLocked(), nil
}

// Confirm submits the user's selection for questionID.
func (r *Runner) Confirm(questionID string, selectedIndex int) (domain.QuestionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if selectedIndex == domain.NoAnswer {
		return domain.QuestionResult{}, fmt.Errorf("%w: confirm requires a selected option", domain.ErrInvalidArgument)
	}
	return r.submitLocked(questionID, selectedIndex, false)
}

// Expire resolves questionID as unanswered, as if its countdown reached zero.
func (r *Runner) Expire(questionID string) (domain.QuestionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(questionID, domain.NoAnswer, true)
}

func (r *Runner) submitLocked(questionID string, selectedIndex int, timedOut bool) (domain.QuestionResult, error) {
	if r.closed {
		return domain.QuestionResult{}, fmt.Errorf("%w: runner closed", domain.ErrInvalidState)
	}
	cd := r.active
	if cd == nil || cd.questionID != questionID {
		// Not the live question: the session classifies it as stale, duplicate or out of state.
		return r.session.SubmitAnswer(questionID, selectedIndex, 0)
	}
	elapsed := r.cfg.TimeLimit
	if !timedOut {
		elapsed = r.now().Sub(cd.startedAt)
	}
	return r.resolveLocked(cd, selectedIndex, elapsed)
}

func (r *Runner) resolveLocked(cd *countdown, selectedIndex int, elapsed time.Duration) (domain.QuestionResult, error) {
	if !cd.resolved.CompareAndSwap(false, true) {
		return domain.QuestionResult{}, fmt.Errorf("%w: question %s already resolved", domain.ErrDuplicateSubmission, cd.questionID)
	}
	result, err := r.session.SubmitAnswer(cd.questionID, selectedIndex, elapsed)
	if err != nil {
		// Rejected input leaves the question open.
		cd.resolved.Store(false)
		return domain.QuestionResult{}, err
	}
	r.logger.Debug("question resolved",
		zap.String("question_id", result.QuestionID),
		zap.Bool("correct", result.IsCorrect),
		zap.Bool("timed_out", result.TimedOut()),
		zap.Duration("time_taken", result.TimeTaken),
		zap.Float64("score", result.Score),
	)

	r.cancelLocked()
	r.armLocked()
	if r.session.State() == domain.StateFinished {
		stats := r.session.Stats()
		r.logger.Info("quiz finished",
			zap.Float64("total_score", stats.TotalScore),
			zap.Float64("max_score", stats.TotalMaxScore),
			zap.Int("correct", stats.CorrectCount),
		)
	}
	r.broadcastLocked()
	return result, nil
}

// Restart tears down the countdown and returns the session to not-started.
func (r *Runner) Restart() domain.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.session.Restart()
	return r.broadcastLocked()
}

// Replay restarts and immediately starts again over the same question list.
func (r *Runner) Replay() (domain.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.View{}, fmt.Errorf("%w: runner closed", domain.ErrInvalidState)
	}
	questions := r.session.Questions()
	if len(questions) == 0 {
		return domain.View{}, fmt.Errorf("%w: nothing to replay", domain.ErrInvalidState)
	}
	r.cancelLocked()
	r.session.Restart()
	if err := r.session.Start(questions, r.cfg.TimeLimit); err != nil {
		return domain.View{}, err
	}
	r.armLocked()
	return r.broadcastLocked(), nil
}

// View returns the current presentation snapshot.
func (r *Runner) View() domain.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Subscribe returns a channel that receives a view on every tick and transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (r *Runner) Subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	ch <- r.viewLocked()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the countdown and closes every subscription. The runner rejects further events.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cancelLocked()
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

func (r *Runner) armLocked() {
	q, err := r.session.CurrentQuestion()
	if err != nil {
		return
	}
	cd := &countdown{
		questionID: q.ID,
		startedAt:  r.now(),
		remaining:  r.totalTicks(),
		stop:       make(chan struct{}),
	}
	r.active = cd
	go r.run(cd)
}

func (r *Runner) cancelLocked() {
	if r.active == nil {
		return
	}
	close(r.active.stop)
	r.active = nil
}

func (r *Runner) run(cd *countdown) {
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.C:
			if r.tick(cd) {
				return
			}
		}
	}
}

// tick advances cd by one step and reports whether its countdown is over.
// A tick that lost the race with cancellation finds cd no longer active and does nothing.
func (r *Runner) tick(cd *countdown) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != cd || cd.resolved.Load() {
		return true
	}
	cd.remaining--
	if cd.remaining > 0 {
		r.broadcastLocked()
		return false
	}
	if _, err := r.resolveLocked(cd, domain.NoAnswer, r.cfg.TimeLimit); err != nil {
		r.logger.Warn("timeout submission rejected", zap.String("question_id", cd.questionID), zap.Error(err))
	}
	return true
}

func (r *Runner) totalTicks() int {
	n := int(r.cfg.TimeLimit / r.cfg.Tick)
	if r.cfg.TimeLimit%r.cfg.Tick != 0 {
		n++
	}
	return n
}

func (r *Runner) viewLocked() domain.View {
	var remaining time.Duration
	if r.active != nil {
		remaining = time.Duration(r.active.remaining) * r.cfg.Tick
		if remaining > r.cfg.TimeLimit {
			remaining = r.cfg.TimeLimit
		}
	}
	return r.session.view(remaining)
}

func (r *Runner) broadcastLocked() domain.View {
	v := r.viewLocked()
	for ch := range r.subscribers {
		select {
		case ch <- v:
		default:
			// Drop the oldest view so a slow reader never blocks the countdown.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	return v
}
