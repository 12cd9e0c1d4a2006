// Package session implements the timed attempt state machine.
//
// A Session starts Active and ends in exactly one terminal state. Submission
// and timeout share a single finalize step guarded by the session mutex, so a
// race between the last timer tick and a manual submit produces one Attempt.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

var (
	ErrNilTest         = errors.New("test is required")
	ErrInvalidDuration = errors.New("test duration must be positive")
	ErrNotActive       = errors.New("session is not active")
	ErrUnknownQuestion = errors.New("question does not belong to this test")
	ErrUnknownOption   = errors.New("option does not belong to this question")
)

type State string

const (
	StateActive     State = "active"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Student identifies who is taking the test.
type Student struct {
	ID   string
	Name string
}

type Option func(*Session)

// WithClock overrides the wall clock used for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithIDGenerator overrides attempt id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) {
		s.newID = gen
	}
}

type Session struct {
	mu sync.Mutex

	test    *models.Test
	student Student

	state     State
	index     int
	responses models.Responses
	duration  int // seconds
	remaining int // seconds
	startedAt time.Time
	attempt   *models.Attempt

	now   func() time.Time
	newID func() string
	done  chan struct{}
}

// Snapshot is a consistent view of a session at one instant.
type Snapshot struct {
	State            State                  `json:"state"`
	TestID           string                 `json:"test_id"`
	TestTitle        string                 `json:"test_title"`
	Index            int                    `json:"index"`
	QuestionCount    int                    `json:"question_count"`
	CurrentQuestion  *models.PublicQuestion `json:"current_question,omitempty"`
	Responses        models.Responses       `json:"responses"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	StartedAt        time.Time              `json:"started_at"`
}

// New starts an Active session at index 0 with no responses and the full
// test duration remaining. The test is treated as read-only.
func New(test *models.Test, student Student, opts ...Option) (*Session, error) {
	if test == nil {
		return nil, ErrNilTest
	}
	if test.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	s := &Session{
		test:      test,
		student:   student,
		state:     StateActive,
		responses: models.Responses{},
		duration:  test.DurationMinutes * 60,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.remaining = s.duration
	s.startedAt = s.now()

	return s, nil
}

func (s *Session) Test() *models.Test {
	return s.test
}

func (s *Session) Student() Student {
	return s.student
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectAnswer records optionID as the response to questionID, replacing any
// earlier response. Unknown questions and foreign option ids are rejected.
func (s *Session) SelectAnswer(questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrNotActive
	}
	q, ok := s.test.FindQuestion(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.HasOption(optionID) {
		return ErrUnknownOption
	}
	s.responses[questionID] = optionID
	return nil
}

// Advance moves to the next question. At the last index it is a no-op.
func (s *Session) Advance() (int, error) {
	return s.move(1)
}

// Retreat moves to the previous question. At index 0 it is a no-op.
func (s *Session) Retreat() (int, error) {
	return s.move(-1)
}

func (s *Session) move(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return s.index, ErrNotActive
	}
	next := s.index + delta
	last := len(s.test.Questions) - 1
	if next < 0 || next > last {
		return s.index, nil
	}
	s.index = next
	return s.index, nil
}

// Tick consumes elapsedSeconds of the countdown. When the countdown reaches
// zero the session finalizes with a timeout; the finalized attempt is
// returned with true only to the call that performed the finalization.
func (s *Session) Tick(elapsedSeconds int) (*models.Attempt, bool) {
	if elapsedSeconds <= 0 {
		return nil, false
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, false
	}
	s.remaining -= elapsedSeconds
	if s.remaining > 0 {
		s.mu.Unlock()
		return nil, false
	}
	s.remaining = 0
	attempt := s.finalizeLocked(models.EndReasonTimeout)
	s.mu.Unlock()

	close(s.done)
	return attempt, true
}

// Submit finalizes the session. A second call returns ErrNotActive.
func (s *Session) Submit() (*models.Attempt, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	attempt := s.finalizeLocked(models.EndReasonSubmitted)
	s.mu.Unlock()

	close(s.done)
	return attempt, nil
}

// Abandon ends the session without producing an attempt.
func (s *Session) Abandon() error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.state = StateAbandoned
	s.mu.Unlock()

	close(s.done)
	return nil
}

// finalizeLocked must be called with mu held and state Active.
func (s *Session) finalizeLocked(reason models.EndReason) *models.Attempt {
	s.state = StateFinalizing

	responses := s.responses.Clone()
	s.attempt = &models.Attempt{
		ID:               s.newID(),
		TestID:           s.test.ID,
		StudentID:        s.student.ID,
		StudentName:      s.student.Name,
		Responses:        responses,
		Score:            Score(s.test, responses),
		TotalQuestions:   len(s.test.Questions),
		StartedAt:        s.startedAt,
		CompletedAt:      s.now(),
		TimeSpentSeconds: s.duration - s.remaining,
		EndReason:        reason,
	}

	s.state = StateCompleted
	return s.attempt.Clone()
}

// Attempt returns the finalized attempt once the session is Completed.
func (s *Session) Attempt() (*models.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return nil, false
	}
	return s.attempt.Clone(), true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:            s.state,
		TestID:           s.test.ID,
		TestTitle:        s.test.Title,
		Index:            s.index,
		QuestionCount:    len(s.test.Questions),
		Responses:        s.responses.Clone(),
		RemainingSeconds: s.remaining,
		StartedAt:        s.startedAt,
	}
	if s.index < len(s.test.Questions) {
		pub := s.test.Questions[s.index].Public()
		snap.CurrentQuestion = &pub
	}
	return snap
}

// Run drives the countdown, consuming stepSeconds per tick, until the session
// ends or ctx is cancelled. onTimeout is called only when the countdown
// itself finalized the session.
func (s *Session) Run(ctx context.Context, ticks <-chan time.Time, stepSeconds int, onTimeout func(*models.Attempt)) {
	if stepSeconds <= 0 {
		stepSeconds = 1
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticks:
			if attempt, finalized := s.Tick(stepSeconds); finalized {
				if onTimeout != nil {
					onTimeout(attempt)
				}
				return
			}
		}
	}
}
