package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	attempt := &models.Attempt{
		ID:             "a1",
		TestID:         "t1",
		StudentID:      "u2",
		Score:          1,
		TotalQuestions: 2,
		EndReason:      models.EndReasonSubmitted,
	}

	event, err := NewEvent(EventAttemptCompleted, NewAttemptCompletedPayload(attempt))
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if event.ID == "" {
		t.Error("expected event id")
	}
	if got := event.Type.Topic(); got != "quiz.attempt.completed" {
		t.Errorf("Topic() = %q", got)
	}

	var payload AttemptCompletedPayload
	if err := event.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if payload.AttemptID != "a1" || payload.Percentage != 50 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestWatermillPublisher_GoChannel(t *testing.T) {
	publisher, pubSub := NewGoChannelPublisher(testLogger())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, EventTestSaved.Topic())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	test := &models.Test{ID: "t1", Title: "Networks", Questions: []models.Question{{ID: "q1"}}}
	event, err := NewEvent(EventTestSaved, NewTestChangedPayload(test))
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message uuid = %s, want %s", msg.UUID, event.ID)
		}
		if got := msg.Metadata.Get("event_type"); got != string(EventTestSaved) {
			t.Errorf("event_type metadata = %q", got)
		}
		var received Event
		if err := json.Unmarshal(msg.Payload, &received); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		var payload TestChangedPayload
		if err := received.DecodePayload(&payload); err != nil {
			t.Fatalf("DecodePayload() error = %v", err)
		}
		if payload.TestID != "t1" || payload.QuestionCount != 1 {
			t.Errorf("unexpected payload %+v", payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	for _, typ := range []EventType{EventTestSaved, EventAttemptCompleted, EventTestSaved} {
		e, _ := NewEvent(typ, map[string]string{"k": "v"})
		if err := mock.Publish(ctx, e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if got := len(mock.GetPublishedEvents()); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
	if got := len(mock.EventsOfType(EventTestSaved)); got != 2 {
		t.Errorf("expected 2 test.saved events, got %d", got)
	}

	mock.ClearEvents()
	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("expected no events after clear, got %d", got)
	}

	boom := errors.New("boom")
	mock.FailWith = boom
	e, _ := NewEvent(EventTestDeleted, nil)
	if err := mock.Publish(ctx, e); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want %v", err, boom)
	}

	mock.FailWith = nil
	_ = mock.Close()
	if err := mock.Publish(ctx, e); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v", err)
	}
}
