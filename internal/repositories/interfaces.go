package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	PublishedOnly bool    `json:"published_only"`
	CreatedBy     *string `json:"created_by"`
	Subject       *string `json:"subject"`
}

// Matches applies the filters to a single test; stores without a query
// language use it directly.
func (f TestFilters) Matches(t *models.Test) bool {
	if f.PublishedOnly && !t.IsPublished {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Subject != nil && t.Subject != *f.Subject {
		return false
	}
	return true
}

type AttemptFilters struct {
	TestID    *string `json:"test_id"`
	StudentID *string `json:"student_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
}

func (f AttemptFilters) Matches(a *models.Attempt) bool {
	if f.TestID != nil && a.TestID != *f.TestID {
		return false
	}
	if f.StudentID != nil && a.StudentID != *f.StudentID {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice.
func Page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ===== REPOSITORY INTERFACES =====

// TestRepository stores authored tests in insertion order.
type TestRepository interface {
	List(ctx context.Context, filters TestFilters) ([]*models.Test, error)
	GetByID(ctx context.Context, id string) (*models.Test, error)
	// Save inserts the test or replaces the one with the same id.
	Save(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// AttemptRepository is append-only. Every finalized session is a new record,
// including repeated attempts at the same test by the same student.
type AttemptRepository interface {
	Append(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id string) (*models.Attempt, error)
	// List returns attempts in the order they were appended.
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, error)
}

type UserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create fails with ErrConflict when the email is taken.
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// CurrentUserRepository keeps the logged-in user per surface token.
type CurrentUserRepository interface {
	Get(ctx context.Context, token string) (*models.User, error)
	Set(ctx context.Context, token string, user *models.User, ttl time.Duration) error
	Clear(ctx context.Context, token string) error
}
