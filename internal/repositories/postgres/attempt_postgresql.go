package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// Append inserts a new row. A reused id fails with ErrConflict rather than
// overwriting the earlier attempt.
func (r *AttemptPostgreSQL) Append(ctx context.Context, attempt *models.Attempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to append attempt: %w", translateError(err))
	}
	return nil
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := applyAttemptFilters(r.db.WithContext(ctx).Model(&models.Attempt{}), filters)
	if err := query.Order("completed_at ASC, id ASC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
