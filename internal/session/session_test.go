package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, test *models.Test) *Session {
	t.Helper()
	s, err := New(test, Student{ID: "u2", Name: "Bob Student"},
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "attempt-1" }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		test    *models.Test
		wantErr error
	}{
		{name: "ok", test: twoQuestionTest()},
		{name: "nil test", test: nil, wantErr: ErrNilTest},
		{name: "zero duration", test: &models.Test{ID: "t", DurationMinutes: 0}, wantErr: ErrInvalidDuration},
		{name: "negative duration", test: &models.Test{ID: "t", DurationMinutes: -3}, wantErr: ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.test, Student{ID: "u2"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			snap := s.Snapshot()
			if snap.State != StateActive || snap.Index != 0 || len(snap.Responses) != 0 {
				t.Errorf("initial snapshot = %+v", snap)
			}
			if snap.RemainingSeconds != tt.test.DurationMinutes*60 {
				t.Errorf("RemainingSeconds = %d, want %d", snap.RemainingSeconds, tt.test.DurationMinutes*60)
			}
			if snap.CurrentQuestion == nil || snap.CurrentQuestion.ID != "q1" {
				t.Errorf("CurrentQuestion = %+v", snap.CurrentQuestion)
			}
		})
	}
}

func TestSession_ScenarioOneOfTwo(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())

	if err := s.SelectAnswer("q1", "o2"); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}
	if err := s.SelectAnswer("q2", "o3"); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if attempt.Score != 1 || attempt.TotalQuestions != 2 {
		t.Errorf("attempt score = %d/%d, want 1/2", attempt.Score, attempt.TotalQuestions)
	}
	if attempt.ID != "attempt-1" || attempt.TestID != "t1" || attempt.StudentID != "u2" || attempt.StudentName != "Bob Student" {
		t.Errorf("attempt identity = %+v", attempt)
	}
	if !attempt.CompletedAt.Equal(fixedNow) {
		t.Errorf("CompletedAt = %v", attempt.CompletedAt)
	}
	if attempt.EndReason != models.EndReasonSubmitted {
		t.Errorf("EndReason = %s", attempt.EndReason)
	}
	if s.State() != StateCompleted {
		t.Errorf("State() = %s", s.State())
	}
}

func TestSession_SelectAnswerLastWriteWins(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())

	_ = s.SelectAnswer("q1", "o1")
	_ = s.SelectAnswer("q1", "o2")

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(attempt.Responses) != 1 || attempt.Responses["q1"] != "o2" {
		t.Errorf("Responses = %v, want only q1=o2", attempt.Responses)
	}
}

func TestSession_SelectAnswerRejects(t *testing.T) {
	tests := []struct {
		name       string
		questionID string
		optionID   string
		wantErr    error
	}{
		{name: "unknown question", questionID: "q9", optionID: "o1", wantErr: ErrUnknownQuestion},
		{name: "foreign option", questionID: "q1", optionID: "o9", wantErr: ErrUnknownOption},
		{name: "empty option", questionID: "q1", optionID: "", wantErr: ErrUnknownOption},
		{name: "valid", questionID: "q2", optionID: "o1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, twoQuestionTest())
			err := s.SelectAnswer(tt.questionID, tt.optionID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SelectAnswer() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && len(s.Snapshot().Responses) != 0 {
				t.Error("rejected answer was recorded")
			}
		})
	}
}

func TestSession_Navigation(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())

	if idx, err := s.Retreat(); err != nil || idx != 0 {
		t.Errorf("Retreat() at 0 = %d, %v", idx, err)
	}
	if idx, _ := s.Advance(); idx != 1 {
		t.Errorf("Advance() = %d, want 1", idx)
	}
	if idx, err := s.Advance(); err != nil || idx != 1 {
		t.Errorf("Advance() at last = %d, %v", idx, err)
	}
	if got := s.Snapshot().CurrentQuestion; got == nil || got.ID != "q2" {
		t.Errorf("CurrentQuestion = %+v", got)
	}
	if idx, _ := s.Retreat(); idx != 0 {
		t.Errorf("Retreat() = %d, want 0", idx)
	}

	if _, err := s.Submit(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Advance(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Advance() after submit error = %v", err)
	}
}

func TestSession_EmptyTest(t *testing.T) {
	s := newTestSession(t, &models.Test{ID: "empty", DurationMinutes: 1})

	if idx, _ := s.Advance(); idx != 0 {
		t.Errorf("Advance() = %d", idx)
	}
	if idx, _ := s.Retreat(); idx != 0 {
		t.Errorf("Retreat() = %d", idx)
	}
	if s.Snapshot().CurrentQuestion != nil {
		t.Error("expected no current question")
	}

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if attempt.Score != 0 || attempt.TotalQuestions != 0 {
		t.Errorf("attempt = %d/%d", attempt.Score, attempt.TotalQuestions)
	}
}

func TestSession_SubmitTwice(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())

	first, err := s.Submit()
	if err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	second, err := s.Submit()
	if !errors.Is(err, ErrNotActive) || second != nil {
		t.Errorf("second Submit() = %v, %v", second, err)
	}
	if err := s.SelectAnswer("q1", "o1"); !errors.Is(err, ErrNotActive) {
		t.Errorf("SelectAnswer() after submit error = %v", err)
	}
	stored, ok := s.Attempt()
	if !ok || stored.ID != first.ID {
		t.Errorf("Attempt() = %v, %v", stored, ok)
	}
}

func TestSession_AttemptIsImmutable(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())
	_ = s.SelectAnswer("q1", "o2")
	attempt, _ := s.Submit()

	attempt.Responses["q2"] = "o1"
	attempt.Score = 99

	stored, _ := s.Attempt()
	if stored.Score != 1 || len(stored.Responses) != 1 {
		t.Errorf("stored attempt mutated: %+v", stored)
	}
}

func TestSession_TickTimeout(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())
	_ = s.SelectAnswer("q2", "o1")

	if _, done := s.Tick(30); done {
		t.Fatal("finalized too early")
	}
	if got := s.Snapshot().RemainingSeconds; got != 30 {
		t.Errorf("RemainingSeconds = %d, want 30", got)
	}
	if _, done := s.Tick(0); done {
		t.Fatal("zero tick finalized")
	}

	attempt, done := s.Tick(45)
	if !done {
		t.Fatal("expected timeout finalization")
	}
	if attempt.EndReason != models.EndReasonTimeout || attempt.Score != 1 || attempt.TimeSpentSeconds != 60 {
		t.Errorf("attempt = %+v", attempt)
	}
	if s.Snapshot().RemainingSeconds != 0 {
		t.Error("remaining should clamp to 0")
	}

	if _, again := s.Tick(1); again {
		t.Error("repeated tick finalized twice")
	}
	if _, err := s.Submit(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Submit() after timeout error = %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestSession_Abandon(t *testing.T) {
	s := newTestSession(t, twoQuestionTest())

	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if s.State() != StateAbandoned {
		t.Errorf("State() = %s", s.State())
	}
	if _, ok := s.Attempt(); ok {
		t.Error("abandoned session produced an attempt")
	}
	if _, err := s.Submit(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Submit() after abandon error = %v", err)
	}
	if err := s.Abandon(); !errors.Is(err, ErrNotActive) {
		t.Errorf("second Abandon() error = %v", err)
	}
}

func TestSession_TimeoutSubmitRace(t *testing.T) {
	for i := 0; i < 500; i++ {
		test := twoQuestionTest()
		s, err := New(test, Student{ID: "u2"})
		if err != nil {
			t.Fatal(err)
		}
		s.Tick(59)

		var (
			wg          sync.WaitGroup
			mu          sync.Mutex
			finalized   int
			attemptSeen *models.Attempt
		)
		record := func(a *models.Attempt) {
			mu.Lock()
			finalized++
			attemptSeen = a
			mu.Unlock()
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			if a, ok := s.Tick(1); ok {
				record(a)
			}
		}()
		go func() {
			defer wg.Done()
			if a, err := s.Submit(); err == nil {
				record(a)
			}
		}()
		wg.Wait()

		if finalized != 1 {
			t.Fatalf("iteration %d: finalized %d times", i, finalized)
		}
		if attemptSeen.TotalQuestions != len(test.Questions) {
			t.Fatalf("TotalQuestions = %d", attemptSeen.TotalQuestions)
		}
		if s.State() != StateCompleted {
			t.Fatalf("State() = %s", s.State())
		}
	}
}

func TestSession_Run(t *testing.T) {
	t.Run("timeout calls back once", func(t *testing.T) {
		s := newTestSession(t, twoQuestionTest())
		ticks := make(chan time.Time)
		got := make(chan *models.Attempt, 2)
		finished := make(chan struct{})

		go func() {
			s.Run(context.Background(), ticks, 20, func(a *models.Attempt) { got <- a })
			close(finished)
		}()
		for i := 0; i < 3; i++ {
			ticks <- fixedNow
		}
		<-finished

		if len(got) != 1 {
			t.Fatalf("onTimeout called %d times", len(got))
		}
		if a := <-got; a.EndReason != models.EndReasonTimeout {
			t.Errorf("EndReason = %s", a.EndReason)
		}
	})

	t.Run("submit stops runner without callback", func(t *testing.T) {
		s := newTestSession(t, twoQuestionTest())
		ticks := make(chan time.Time)
		called := false
		finished := make(chan struct{})

		go func() {
			s.Run(context.Background(), ticks, 1, func(*models.Attempt) { called = true })
			close(finished)
		}()
		if _, err := s.Submit(); err != nil {
			t.Fatal(err)
		}
		<-finished
		if called {
			t.Error("onTimeout called after manual submit")
		}
	})

	t.Run("context cancel", func(t *testing.T) {
		s := newTestSession(t, twoQuestionTest())
		ctx, cancel := context.WithCancel(context.Background())
		finished := make(chan struct{})
		go func() {
			s.Run(ctx, make(chan time.Time), 1, nil)
			close(finished)
		}()
		cancel()
		<-finished
		if s.State() != StateActive {
			t.Errorf("State() = %s, want active", s.State())
		}
	})
}
