package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-engine/internal/domain"
	"quiz-engine/internal/selector"
)

// SessionRepository abstracts where live quiz runners are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(sessionID string, runner *Runner)
	Get(sessionID string) (*Runner, bool)
	Delete(sessionID string)
}

// PoolRepository loads question pools (from cache/backing store).
type PoolRepository interface {
	GetPool(ctx context.Context, poolID string) (domain.Pool, error)
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions SessionRepository
	pools    PoolRepository
	cfg      RunnerConfig
	logger   *zap.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(store SessionRepository, pools PoolRepository, cfg RunnerConfig, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		sessions: store,
		pools:    pools,
		cfg:      cfg,
		logger:   logger,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartRequest describes a fresh quiz drawn from a pool.
type StartRequest struct {
	PoolID     string
	Count      int
	Categories []string
}

// Start draws a new question list and starts it. An existing session is torn down and
// restarted over the new list.
func (s *QuizService) Start(ctx context.Context, sessionID string, req StartRequest) (domain.View, error) {
	pool, err := s.pools.GetPool(ctx, req.PoolID)
	if err != nil {
		return domain.View{}, err
	}

	s.rndMu.Lock()
	questions := selector.Select(pool.Questions, selector.Options{Count: req.Count, Categories: req.Categories}, s.rnd)
	s.rndMu.Unlock()
	if len(questions) == 0 {
		return domain.View{}, fmt.Errorf("%w: pool %s has no eligible questions", domain.ErrInvalidArgument, req.PoolID)
	}

	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		runner = NewRunner(sessionID, s.cfg, s.logger)
		s.sessions.Put(sessionID, runner)
	} else {
		runner.Restart()
	}

	view, err := runner.Start(questions)
	if err != nil {
		return domain.View{}, err
	}
	s.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("pool_id", req.PoolID),
		zap.Int("questions", len(questions)),
	)
	return view, nil
}

// Confirm records the user's selection for a question.
func (s *QuizService) Confirm(_ context.Context, sessionID, questionID string, selectedIndex int) (domain.QuestionResult, error) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.QuestionResult{}, domain.ErrSessionNotFound
	}
	return runner.Confirm(questionID, selectedIndex)
}

// Expire resolves a question as unanswered because its time ran out on the client.
func (s *QuizService) Expire(_ context.Context, sessionID, questionID string) (domain.QuestionResult, error) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.QuestionResult{}, domain.ErrSessionNotFound
	}
	return runner.Expire(questionID)
}

// Restart replays the session's current question list from the beginning.
func (s *QuizService) Restart(_ context.Context, sessionID string) (domain.View, error) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.View{}, domain.ErrSessionNotFound
	}
	return runner.Replay()
}

// View returns the current snapshot of a session.
func (s *QuizService) View(_ context.Context, sessionID string) (domain.View, error) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.View{}, domain.ErrSessionNotFound
	}
	return runner.View(), nil
}

// Subscribe returns a channel that receives view updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.View, func(), error) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := runner.Subscribe()
	return ch, cancel, nil
}

// End stops a session's countdown and forgets it.
func (s *QuizService) End(_ context.Context, sessionID string) {
	runner, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	runner.Close()
	s.sessions.Delete(sessionID)
}
