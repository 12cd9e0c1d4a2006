// Package events publishes domain events about tests and attempts.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

type EventType string

const (
	EventAttemptCompleted EventType = "attempt.completed"
	EventTestSaved        EventType = "test.saved"
	EventTestDeleted      EventType = "test.deleted"
)

// TopicPrefix is prepended to the event type to form the broker topic.
const TopicPrefix = "quiz."

func (t EventType) Topic() string {
	return TopicPrefix + string(t)
}

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into a new event with a fresh id.
func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// DecodePayload unmarshals the payload into dest.
func (e *Event) DecodePayload(dest interface{}) error {
	return json.Unmarshal(e.Payload, dest)
}

type AttemptCompletedPayload struct {
	AttemptID      string           `json:"attempt_id"`
	TestID         string           `json:"test_id"`
	StudentID      string           `json:"student_id"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     int              `json:"percentage"`
	EndReason      models.EndReason `json:"end_reason"`
	CompletedAt    time.Time        `json:"completed_at"`
}

func NewAttemptCompletedPayload(a *models.Attempt) AttemptCompletedPayload {
	return AttemptCompletedPayload{
		AttemptID:      a.ID,
		TestID:         a.TestID,
		StudentID:      a.StudentID,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		Percentage:     a.Percentage(),
		EndReason:      a.EndReason,
		CompletedAt:    a.CompletedAt,
	}
}

type TestChangedPayload struct {
	TestID        string `json:"test_id"`
	Title         string `json:"title,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
	QuestionCount int    `json:"question_count"`
	IsPublished   bool   `json:"is_published"`
}

func NewTestChangedPayload(t *models.Test) TestChangedPayload {
	return TestChangedPayload{
		TestID:        t.ID,
		Title:         t.Title,
		CreatedBy:     t.CreatedBy,
		QuestionCount: t.QuestionCount(),
		IsPublished:   t.IsPublished,
	}
}

// EventPublisher sends events to whatever transport is configured.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
