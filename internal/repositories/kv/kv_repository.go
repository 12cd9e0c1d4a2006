// Package kv stores every collection as a namespaced Redis key holding a JSON
// sequence, the same layout a browser local store uses: <ns>_users,
// <ns>_tests, <ns>_attempts and <ns>_current_user:<token>.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	DefaultNamespace = "nexus"
	maxTxRetries     = 10
)

type keySet struct {
	users       string
	tests       string
	attempts    string
	currentUser string
}

func newKeySet(namespace string) keySet {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return keySet{
		users:       namespace + "_users",
		tests:       namespace + "_tests",
		attempts:    namespace + "_attempts",
		currentUser: namespace + "_current_user:",
	}
}

type Repository struct {
	client *redis.Client
	keys   keySet

	tests       *testStore
	attempts    *attemptStore
	users       *userStore
	currentUser *currentUserStore
}

// NewRepository builds the store on an existing client. The client is owned
// by the caller; Close does not close it.
func NewRepository(client *redis.Client, namespace string) *Repository {
	keys := newKeySet(namespace)
	return &Repository{
		client:      client,
		keys:        keys,
		tests:       &testStore{client: client, key: keys.tests},
		attempts:    &attemptStore{client: client, key: keys.attempts},
		users:       &userStore{client: client, key: keys.users},
		currentUser: &currentUserStore{helper: cache.NewCacheHelper(client, keys.currentUser)},
	}
}

func (r *Repository) Test() repositories.TestRepository               { return r.tests }
func (r *Repository) Attempt() repositories.AttemptRepository         { return r.attempts }
func (r *Repository) User() repositories.UserRepository               { return r.users }
func (r *Repository) CurrentUser() repositories.CurrentUserRepository { return r.currentUser }

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return nil
}

// ===== BLOB HELPERS =====

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadBlob[T any](ctx context.Context, g getter, key string) ([]T, error) {
	data, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return items, nil
}

// updateBlob runs a read-modify-write of one key under WATCH, retrying when
// another writer got in first.
func updateBlob[T any](ctx context.Context, client *redis.Client, key string, fn func([]T) ([]T, error)) error {
	txf := func(tx *redis.Tx) error {
		items, err := loadBlob[T](ctx, tx, key)
		if err != nil {
			return err
		}
		items, err = fn(items)
		if err != nil {
			return err
		}
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update %s: %w", key, repositories.ErrConflict)
}

// ===== TESTS =====

type testStore struct {
	client *redis.Client
	key    string
}

func (s *testStore) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, error) {
	tests, err := loadBlob[*models.Test](ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Test, 0, len(tests))
	for _, t := range tests {
		if filters.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *testStore) GetByID(ctx context.Context, id string) (*models.Test, error) {
	tests, err := loadBlob[*models.Test](ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}
	for _, t := range tests {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *testStore) Save(ctx context.Context, test *models.Test) error {
	return updateBlob(ctx, s.client, s.key, func(tests []*models.Test) ([]*models.Test, error) {
		for i, t := range tests {
			if t.ID == test.ID {
				tests[i] = test
				return tests, nil
			}
		}
		return append(tests, test), nil
	})
}

func (s *testStore) Delete(ctx context.Context, id string) error {
	return updateBlob(ctx, s.client, s.key, func(tests []*models.Test) ([]*models.Test, error) {
		for i, t := range tests {
			if t.ID == id {
				return append(tests[:i], tests[i+1:]...), nil
			}
		}
		return nil, repositories.ErrNotFound
	})
}

func (s *testStore) Count(ctx context.Context) (int64, error) {
	tests, err := loadBlob[json.RawMessage](ctx, s.client, s.key)
	if err != nil {
		return 0, err
	}
	return int64(len(tests)), nil
}

// ===== ATTEMPTS =====

// attemptStore keeps one list entry per attempt so appends never race.
type attemptStore struct {
	client *redis.Client
	key    string
}

func (s *attemptStore) Append(ctx context.Context, attempt *models.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

func (s *attemptStore) all(ctx context.Context) ([]*models.Attempt, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read attempts: %w", err)
	}

	attempts := make([]*models.Attempt, 0, len(raw))
	for _, item := range raw {
		var a models.Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("failed to decode attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	return attempts, nil
}

func (s *attemptStore) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	attempts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *attemptStore) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	attempts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if filters.Matches(a) {
			out = append(out, a)
		}
	}
	return repositories.Page(out, filters.Offset, filters.Limit), nil
}

// ===== USERS =====

type userStore struct {
	client *redis.Client
	key    string
}

func (s *userStore) List(ctx context.Context) ([]*models.User, error) {
	users, err := loadBlob[*models.User](ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

func (s *userStore) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	users, err := loadBlob[*models.User](ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.find(ctx, func(u *models.User) bool { return u.ID == id })
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.find(ctx, func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	return updateBlob(ctx, s.client, s.key, func(users []*models.User) ([]*models.User, error) {
		for _, u := range users {
			if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
				return nil, repositories.ErrConflict
			}
		}
		return append(users, user), nil
	})
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	users, err := loadBlob[json.RawMessage](ctx, s.client, s.key)
	if err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}

// ===== CURRENT USER =====

// currentUserStore keeps the whole user record under the token key.
type currentUserStore struct {
	helper *cache.CacheHelper
}

func (s *currentUserStore) Get(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := s.helper.Get(ctx, token, &user); err != nil {
		if errors.Is(err, cache.ErrCacheNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	return &user, nil
}

func (s *currentUserStore) Set(ctx context.Context, token string, user *models.User, ttl time.Duration) error {
	if err := s.helper.Set(ctx, token, user, ttl); err != nil {
		return fmt.Errorf("failed to store current user: %w", err)
	}
	return nil
}

func (s *currentUserStore) Clear(ctx context.Context, token string) error {
	return s.helper.Delete(ctx, token)
}

// ===== MANAGER =====

type RepositoryManager struct {
	client    *redis.Client
	namespace string
	repo      repositories.Repository
}

func NewRepositoryManager(client *redis.Client, namespace string) repositories.RepositoryManager {
	return &RepositoryManager{client: client, namespace: namespace}
}

func (rm *RepositoryManager) Initialize() error {
	if rm.client == nil {
		return fmt.Errorf("redis client is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	rm.repo = NewRepository(rm.client, rm.namespace)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
