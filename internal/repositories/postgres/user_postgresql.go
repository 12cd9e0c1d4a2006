package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *UserPostgreSQL) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cacheManager.User.CacheOrExecute(ctx, "id:"+id, &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := r.db.WithContext(ctx).First(&dbUser, "id = ?", id).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return repositories.ErrConflict
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

func (r *UserPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// CurrentUserPostgreSQL stores surface tokens in current_user_pointers.
type CurrentUserPostgreSQL struct {
	db    *gorm.DB
	users repositories.UserRepository
}

func NewCurrentUserPostgreSQL(db *gorm.DB, users repositories.UserRepository) repositories.CurrentUserRepository {
	return &CurrentUserPostgreSQL{db: db, users: users}
}

func (r *CurrentUserPostgreSQL) Get(ctx context.Context, token string) (*models.User, error) {
	var ptr models.CurrentUserPointer
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		Where("expires_at IS NULL OR expires_at = ? OR expires_at > ?", time.Time{}, time.Now()).
		First(&ptr).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.users.GetByID(ctx, ptr.UserID)
}

func (r *CurrentUserPostgreSQL) Set(ctx context.Context, token string, user *models.User, ttl time.Duration) error {
	ptr := models.CurrentUserPointer{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	if ttl > 0 {
		ptr.ExpiresAt = ptr.CreatedAt.Add(ttl)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&ptr).Error
	if err != nil {
		return fmt.Errorf("failed to store current user: %w", err)
	}
	return nil
}

func (r *CurrentUserPostgreSQL) Clear(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Delete(&models.CurrentUserPointer{}, "token = ?", token).Error
}
