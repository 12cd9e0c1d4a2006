package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/generator"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

var (
	studentUser      = &models.User{ID: "s1", Name: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent}
	otherStudentUser = &models.User{ID: "s2", Name: "Ola Student", Email: "ola@example.com", Role: models.RoleStudent}
	teacherUser      = &models.User{ID: "t1", Name: "Tess Teacher", Email: "tess@example.com", Role: models.RoleTeacher}
	otherTeacherUser = &models.User{ID: "t2", Name: "Tom Teacher", Email: "tom@example.com", Role: models.RoleTeacher}
	adminUser        = &models.User{ID: "a1", Name: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleTest has three questions whose correct options are o2, o1 and o3.
func sampleTest(id, createdBy string, published bool) *models.Test {
	opts := func() []models.Option {
		return []models.Option{
			{ID: "o1", Text: "first"},
			{ID: "o2", Text: "second"},
			{ID: "o3", Text: "third"},
			{ID: "o4", Text: "fourth"},
		}
	}
	return &models.Test{
		ID:              id,
		Title:           "Test " + id,
		Subject:         "Math",
		DurationMinutes: 1,
		CreatedBy:       createdBy,
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublished:     published,
		Questions: []models.Question{
			{ID: "q1", Text: "one", Options: opts(), CorrectOptionID: "o2"},
			{ID: "q2", Text: "two", Options: opts(), CorrectOptionID: "o1"},
			{ID: "q3", Text: "three", Options: opts(), CorrectOptionID: "o3"},
		},
	}
}

func mustSaveTest(t *testing.T, repo repositories.Repository, test *models.Test) {
	t.Helper()
	if err := repo.Test().Save(context.Background(), test); err != nil {
		t.Fatalf("save test %s: %v", test.ID, err)
	}
}

func mustAppendAttempt(t *testing.T, repo repositories.Repository, a *models.Attempt) {
	t.Helper()
	if err := repo.Attempt().Append(context.Background(), a); err != nil {
		t.Fatalf("append attempt %s: %v", a.ID, err)
	}
}

func countAttempts(t *testing.T, repo repositories.Repository) int {
	t.Helper()
	attempts, err := repo.Attempt().List(context.Background(), repositories.AttemptFilters{})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	return len(attempts)
}

// manualTicker hands the countdown to the test. Every send on ch is one tick.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) factory(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() {}
}

// tick delivers one tick, giving up if no runner is listening.
func (m *manualTicker) tick() bool {
	return m.tickWithin(time.Second)
}

func (m *manualTicker) tickWithin(d time.Duration) bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(d):
		return false
	}
}

type attemptFixture struct {
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	ticker    *manualTicker
	service   AttemptService
}

// newAttemptFixture builds an attempt service whose single tick consumes a
// whole minute, so one tick times out a one-minute test.
func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()

	repo := memory.NewRepository()
	publisher := events.NewMockEventPublisher(discardLogger())
	ticker := newManualTicker()
	logger := discardLogger()

	feedback := NewFeedbackService(&generator.Stub{
		FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
			return "well done", nil
		},
	}, nil, logger, time.Second)

	svc := NewAttemptService(repo, logger, validator.New(), publisher,
		NewGradingService(logger), feedback, nil,
		AttemptServiceConfig{TickInterval: time.Minute, NewTicker: ticker.factory})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &attemptFixture{repo: repo, publisher: publisher, ticker: ticker, service: svc}
}

// waitFor polls cond until it holds or a second passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
