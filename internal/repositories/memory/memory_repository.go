// Package memory is an in-process Repository used by tests and by local runs
// without any backing store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type Repository struct {
	tests       *testStore
	attempts    *attemptStore
	users       *userStore
	currentUser *currentUserStore
}

func NewRepository() *Repository {
	users := &userStore{}
	return &Repository{
		tests:       &testStore{},
		attempts:    &attemptStore{},
		users:       users,
		currentUser: &currentUserStore{users: users, pointers: map[string]pointer{}, now: time.Now},
	}
}

func (r *Repository) Test() repositories.TestRepository               { return r.tests }
func (r *Repository) Attempt() repositories.AttemptRepository         { return r.attempts }
func (r *Repository) User() repositories.UserRepository               { return r.users }
func (r *Repository) CurrentUser() repositories.CurrentUserRepository { return r.currentUser }
func (r *Repository) Ping(ctx context.Context) error                  { return nil }
func (r *Repository) Close() error                                    { return nil }

type testStore struct {
	mu    sync.RWMutex
	tests []*models.Test
}

func (s *testStore) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Test, 0, len(s.tests))
	for _, t := range s.tests {
		if filters.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (s *testStore) GetByID(ctx context.Context, id string) (*models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tests {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *testStore) Save(ctx context.Context, test *models.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tests {
		if t.ID == test.ID {
			s.tests[i] = test.Clone()
			return nil
		}
	}
	s.tests = append(s.tests, test.Clone())
	return nil
}

func (s *testStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tests {
		if t.ID == id {
			s.tests = append(s.tests[:i], s.tests[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *testStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tests)), nil
}

type attemptStore struct {
	mu       sync.RWMutex
	attempts []*models.Attempt
}

func (s *attemptStore) Append(ctx context.Context, attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt.Clone())
	return nil
}

func (s *attemptStore) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.attempts {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *attemptStore) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if filters.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	return repositories.Page(out, filters.Offset, filters.Limit), nil
}

type userStore struct {
	mu    sync.RWMutex
	users []*models.User
}

func (s *userStore) List(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, len(s.users))
	for i, u := range s.users {
		cp := *u
		out[i] = &cp
	}
	return out, nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *userStore) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

type pointer struct {
	userID    string
	expiresAt time.Time
}

type currentUserStore struct {
	mu       sync.Mutex
	users    *userStore
	pointers map[string]pointer
	now      func() time.Time
}

func (s *currentUserStore) Get(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	p, ok := s.pointers[token]
	if ok && !p.expiresAt.IsZero() && s.now().After(p.expiresAt) {
		delete(s.pointers, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.users.GetByID(ctx, p.userID)
}

func (s *currentUserStore) Set(ctx context.Context, token string, user *models.User, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := pointer{userID: user.ID}
	if ttl > 0 {
		p.expiresAt = s.now().Add(ttl)
	}
	s.pointers[token] = p
	return nil
}

func (s *currentUserStore) Clear(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pointers, token)
	return nil
}
