package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/session"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// TickerFunc returns a tick channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type AttemptServiceConfig struct {
	TickInterval time.Duration
	// NewTicker is swapped in tests to drive the countdown by hand
	NewTicker      TickerFunc
	SessionOptions []session.Option
}

type activeSession struct {
	sess   *session.Session
	user   *models.User
	cancel context.CancelFunc
}

type attemptService struct {
	repo         repositories.Repository
	logger       *slog.Logger
	validator    *validator.Validator
	publisher    events.EventPublisher
	grading      GradingService
	feedback     FeedbackService
	cacheManager *cache.CacheManager
	config       AttemptServiceConfig

	mu       sync.Mutex
	sessions map[string]*activeSession // keyed by user id
	runners  sync.WaitGroup
	closed   bool
}

func NewAttemptService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	grading GradingService,
	feedback FeedbackService,
	cacheManager *cache.CacheManager,
	config AttemptServiceConfig,
) AttemptService {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.NewTicker == nil {
		config.NewTicker = realTicker
	}
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &attemptService{
		repo:         repo,
		logger:       logger,
		validator:    validator,
		publisher:    publisher,
		grading:      grading,
		feedback:     feedback,
		cacheManager: cacheManager,
		config:       config,
		sessions:     make(map[string]*activeSession),
	}
}

// ===== SESSION LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, testID string, actor *models.User) (*SessionResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	s.logger.Info("Starting test session", "test_id", testID, "student_id", actor.ID)

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	if !test.IsPublished && !canAuthor(actor) {
		return nil, ErrTestNotPublished
	}

	sess, err := session.New(test.Clone(), session.Student{ID: actor.ID, Name: actor.Name}, s.config.SessionOptions...)
	if err != nil {
		if errors.Is(err, session.ErrInvalidDuration) {
			return nil, NewBusinessRuleError("test_duration", "test duration must be positive",
				map[string]interface{}{"test_id": testID})
		}
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceShutdown
	}
	if existing, ok := s.sessions[actor.ID]; ok {
		if existing.sess.State() == session.StateActive {
			s.mu.Unlock()
			return nil, ErrSessionInProgress
		}
		// A finished session whose cleanup has not run yet
		delete(s.sessions, actor.ID)
		sessionsActive.Dec()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	entry := &activeSession{sess: sess, user: actor, cancel: cancel}
	s.sessions[actor.ID] = entry
	s.startRunner(runCtx, entry)
	s.mu.Unlock()

	sessionsStarted.Inc()
	sessionsActive.Inc()

	s.logger.Info("Test session started",
		"test_id", testID,
		"student_id", actor.ID,
		"duration_minutes", test.DurationMinutes,
		"questions", test.QuestionCount())

	return s.view(entry), nil
}

// startRunner must be called with s.mu held so Shutdown sees every runner.
func (s *attemptService) startRunner(ctx context.Context, entry *activeSession) {
	step := int(math.Round(s.config.TickInterval.Seconds()))
	if step < 1 {
		step = 1
	}

	ticks, stop := s.config.NewTicker(s.config.TickInterval)

	s.runners.Add(1)
	go func() {
		defer s.runners.Done()
		defer stop()
		entry.sess.Run(ctx, ticks, step, func(attempt *models.Attempt) {
			s.logger.Info("Session timed out", "attempt_id", attempt.ID, "student_id", attempt.StudentID)
			if err := s.finish(context.Background(), entry, attempt); err != nil {
				s.logger.Error("Failed to persist timed out attempt",
					"attempt_id", attempt.ID,
					"error", err)
			}
		})
	}()
}

func (s *attemptService) GetSession(ctx context.Context, actor *models.User) (*SessionResponse, error) {
	entry, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}
	return s.view(entry), nil
}

func (s *attemptService) SelectAnswer(ctx context.Context, req *SelectAnswerRequest, actor *models.User) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	entry, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}

	if err := entry.sess.SelectAnswer(req.QuestionID, req.OptionID); err != nil {
		return nil, mapSessionError(err)
	}

	return s.view(entry), nil
}

func (s *attemptService) Next(ctx context.Context, actor *models.User) (*SessionResponse, error) {
	return s.navigate(actor, (*session.Session).Advance)
}

func (s *attemptService) Previous(ctx context.Context, actor *models.User) (*SessionResponse, error) {
	return s.navigate(actor, (*session.Session).Retreat)
}

func (s *attemptService) navigate(actor *models.User, move func(*session.Session) (int, error)) (*SessionResponse, error) {
	entry, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}
	if _, err := move(entry.sess); err != nil {
		return nil, mapSessionError(err)
	}
	return s.view(entry), nil
}

func (s *attemptService) Submit(ctx context.Context, actor *models.User) (*AttemptResult, error) {
	entry, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}

	attempt, err := entry.sess.Submit()
	if err != nil {
		// The countdown finalized first and owns persistence
		if finished, ok := entry.sess.Attempt(); ok {
			s.logger.Info("Submit lost to timeout", "attempt_id", finished.ID)
			return s.grading.Grade(entry.sess.Test(), finished), nil
		}
		return nil, mapSessionError(err)
	}

	if err := s.finish(ctx, entry, attempt); err != nil {
		return nil, err
	}

	return s.grading.Grade(entry.sess.Test(), attempt), nil
}

func (s *attemptService) Abandon(ctx context.Context, actor *models.User) error {
	entry, err := s.lookup(actor)
	if err != nil {
		return err
	}

	if err := entry.sess.Abandon(); err != nil {
		return mapSessionError(err)
	}

	s.release(entry)
	sessionsAbandoned.Inc()

	s.logger.Info("Test session abandoned", "test_id", entry.sess.Test().ID, "student_id", entry.user.ID)
	return nil
}

// finish persists a finalized attempt and runs the follow-up work. It is
// called once per session, by whichever path performed finalization.
func (s *attemptService) finish(ctx context.Context, entry *activeSession, attempt *models.Attempt) error {
	s.release(entry)

	if err := s.repo.Attempt().Append(ctx, attempt); err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	cache.InvalidateAttemptStats(ctx, s.cacheManager)

	attemptsCompleted.WithLabelValues(string(attempt.EndReason)).Inc()
	attemptPercentage.Observe(float64(attempt.Percentage()))

	publishEvent(ctx, s.publisher, s.logger, events.EventAttemptCompleted, events.NewAttemptCompletedPayload(attempt))

	if s.feedback != nil {
		s.feedback.Warm(attempt, entry.sess.Test())
	}

	s.logger.Info("Attempt saved",
		"attempt_id", attempt.ID,
		"test_id", attempt.TestID,
		"student_id", attempt.StudentID,
		"score", attempt.Score,
		"total", attempt.TotalQuestions,
		"end_reason", attempt.EndReason)

	return nil
}

// release removes the entry from the registry and stops its runner.
func (s *attemptService) release(entry *activeSession) {
	entry.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[entry.user.ID]; ok && current == entry {
		delete(s.sessions, entry.user.ID)
		sessionsActive.Dec()
	}
}

func (s *attemptService) lookup(actor *models.User) (*activeSession, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[actor.ID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *attemptService) view(entry *activeSession) *SessionResponse {
	snap := entry.sess.Snapshot()
	test := entry.sess.Test()

	return &SessionResponse{
		Snapshot:      snap,
		Subject:       test.Subject,
		EndsAt:        time.Now().Add(time.Duration(snap.RemainingSeconds) * time.Second).UTC(),
		IsFirst:       snap.Index == 0,
		IsLast:        snap.Index >= snap.QuestionCount-1,
		AnsweredCount: len(snap.Responses),
	}
}

func mapSessionError(err error) error {
	if errors.Is(err, session.ErrNotActive) {
		return ErrSessionNotActive
	}
	return err
}

func (s *attemptService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops every countdown. Sessions still running are dropped
// without an attempt, the same as leaving the test.
func (s *attemptService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	dropped := len(s.sessions)
	for id, entry := range s.sessions {
		entry.cancel()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	sessionsActive.Sub(float64(dropped))
	if dropped > 0 {
		s.logger.Warn("Dropping running sessions on shutdown", "count", dropped)
	}

	done := make(chan struct{})
	go func() {
		s.runners.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ===== FINALIZED ATTEMPTS =====

func (s *attemptService) GetAttempt(ctx context.Context, id string, actor *models.User) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if !canSeeAttempt(actor, attempt) {
		return nil, NewPermissionError(actorID(actor), id, "attempt", "read", "not owned by student")
	}

	return attempt, nil
}

func (s *attemptService) GetResult(ctx context.Context, id string, actor *models.User) (*AttemptResult, error) {
	attempt, err := s.GetAttempt(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	// The test may have been deleted since; the result still renders
	test, err := s.repo.Test().GetByID(ctx, attempt.TestID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	return s.grading.Grade(test, attempt), nil
}

func (s *attemptService) GetFeedback(ctx context.Context, id string, actor *models.User) (*FeedbackResponse, error) {
	attempt, err := s.GetAttempt(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if s.feedback == nil {
		return &FeedbackResponse{AttemptID: attempt.ID, Text: FeedbackMissingKey, Source: FeedbackSourceFallback}, nil
	}

	test, err := s.repo.Test().GetByID(ctx, attempt.TestID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	return s.feedback.Feedback(ctx, attempt, test), nil
}

func (s *attemptService) ListAttempts(ctx context.Context, actor *models.User, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	// Students only ever see their own attempts
	if !canAuthor(actor) {
		filters.StudentID = &actor.ID
	}

	attempts, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
