package kv

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/repotest"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRepository_Contract(t *testing.T) {
	repotest.RunContract(t, func(t *testing.T) repositories.Repository {
		_, client := newClient(t)
		return NewRepository(client, "")
	})
}

func TestRepository_KeyLayout(t *testing.T) {
	mr, client := newClient(t)
	repo := NewRepository(client, "nexus")
	ctx := context.Background()

	test := &models.Test{ID: "t1", Title: "Network Fundamentals", DurationMinutes: 20}
	if err := repo.Test().Save(ctx, test); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := mr.Get("nexus_tests")
	if err != nil {
		t.Fatalf("nexus_tests missing: %v", err)
	}
	var stored []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("nexus_tests is not a JSON sequence: %v", err)
	}
	if len(stored) != 1 || stored[0]["id"] != "t1" {
		t.Errorf("stored = %v", stored)
	}

	_ = repo.Attempt().Append(ctx, &models.Attempt{ID: "a1", TestID: "t1"})
	if items, _ := mr.List("nexus_attempts"); len(items) != 1 {
		t.Errorf("nexus_attempts = %v", items)
	}

	user := &models.User{ID: "u1", Email: "teacher@jmc.com"}
	_ = repo.CurrentUser().Set(ctx, "tok", user, time.Hour)
	if !mr.Exists("nexus_current_user:tok") {
		t.Error("current user pointer not stored under namespace")
	}
	mr.FastForward(2 * time.Hour)
	if _, err := repo.CurrentUser().Get(ctx, "tok"); !repositories.IsNotFoundError(err) {
		t.Errorf("Get() after ttl error = %v", err)
	}
}

func TestRepository_ConcurrentSaves(t *testing.T) {
	_, client := newClient(t)
	repo := NewRepository(client, "race")
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			test := &models.Test{ID: string(rune('a' + i)), Title: "t", DurationMinutes: 1}
			if err := repo.Test().Save(ctx, test); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Save() error = %v", err)
	}

	count, err := repo.Test().Count(ctx)
	if err != nil || count != writers {
		t.Errorf("Count() = %d, %v, want %d", count, err, writers)
	}
}

func TestRepositoryManager(t *testing.T) {
	_, client := newClient(t)
	rm := NewRepositoryManager(client, "")
	if err := rm.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := rm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := NewRepositoryManager(nil, "").Initialize(); err == nil {
		t.Error("Initialize() without client should fail")
	}
}
