package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type TestPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTestPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TestRepository {
	return &TestPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (r *TestPostgreSQL) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, error) {
	var tests []*models.Test
	query := applyTestFilters(r.db.WithContext(ctx).Model(&models.Test{}), filters)
	if err := query.Order("created_at ASC, id ASC").Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (r *TestPostgreSQL) GetByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	err := r.cacheManager.Test.CacheOrExecute(ctx, "id:"+id, &test, cache.TestCacheConfig.TTL, func() (interface{}, error) {
		var dbTest models.Test
		if err := r.db.WithContext(ctx).First(&dbTest, "id = ?", id).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbTest, nil
	})
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestPostgreSQL) Save(ctx context.Context, test *models.Test) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(test).Error
	if err != nil {
		return fmt.Errorf("failed to save test: %w", translateError(err))
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, test.ID)
	return nil
}

func (r *TestPostgreSQL) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Test{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete test: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, id)
	return nil
}

func (r *TestPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Test{}).Count(&count).Error
	return count, err
}
