package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// publishEvent sends an event and logs failures. Storage is the source of
// truth, so a lost event never fails the operation.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, payload interface{}) {
	if publisher == nil {
		return
	}

	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		logger.Error("Failed to build event", "type", eventType, "error", err)
		return
	}

	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event", "type", eventType, "event_id", event.ID, "error", err)
	}
}

func isAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

func canAuthor(u *models.User) bool {
	return u != nil && u.Role.CanAuthor()
}

// canEditTest allows the creator and admins
func canEditTest(u *models.User, t *models.Test) bool {
	if u == nil || t == nil {
		return false
	}
	return isAdmin(u) || (u.Role.CanAuthor() && t.CreatedBy == u.ID)
}

// canSeeAttempt allows the student who took it and any author
func canSeeAttempt(u *models.User, a *models.Attempt) bool {
	if u == nil || a == nil {
		return false
	}
	return a.StudentID == u.ID || u.Role.CanAuthor()
}

func actorID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
