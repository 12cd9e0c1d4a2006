package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedTest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheHelper_GetSet(t *testing.T) {
	mr, client := newRedis(t)
	helper := NewCacheHelper(client, TestCacheConfig.Prefix)
	ctx := context.Background()

	var got cachedTest
	if err := helper.Get(ctx, "id:t1", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Fatalf("Get() on miss error = %v", err)
	}

	if err := helper.Set(ctx, "id:t1", cachedTest{ID: "t1", Title: "Network Fundamentals"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("quiz:test:id:t1") {
		t.Fatal("key not stored under prefix")
	}
	if err := helper.Get(ctx, "id:t1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Network Fundamentals" {
		t.Errorf("Get() = %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if err := helper.Get(ctx, "id:t1", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() after ttl error = %v", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "x:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	var v string
	if err := helper.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() error = %v", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	calls := 0
	var out cachedTest
	err := helper.CacheOrExecute(ctx, "k", &out, time.Minute, func() (interface{}, error) {
		calls++
		return cachedTest{ID: "t2"}, nil
	})
	if err != nil || out.ID != "t2" || calls != 1 {
		t.Errorf("CacheOrExecute() = %+v, %v, calls %d", out, err, calls)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	mr, client := newRedis(t)
	helper := NewCacheHelper(client, "quiz:test:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedTest{ID: "t3", Title: "C Programming"}, nil
	}

	var first cachedTest
	if err := helper.CacheOrExecute(ctx, "id:t3", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if first.ID != "t3" {
		t.Errorf("first = %+v", first)
	}

	if !mr.Exists("quiz:test:id:t3") {
		t.Fatal("cache was not filled")
	}

	var second cachedTest
	if err := helper.CacheOrExecute(ctx, "id:t3", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if second.Title != "C Programming" {
		t.Errorf("second = %+v", second)
	}

	wantErr := errors.New("boom")
	err := helper.CacheOrExecute(ctx, "id:missing", &second, time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("CacheOrExecute() error = %v, want %v", err, wantErr)
	}
}

func TestCacheHelper_CacheOrExecuteSkipsFillAfterInvalidation(t *testing.T) {
	mr, client := newRedis(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	tests := []struct {
		name       string
		invalidate func()
	}{
		{"delete", func() { _ = cm.Stats.Delete(ctx, "subjects") }},
		{"pattern", func() { _ = cm.Stats.InvalidatePattern(ctx, "*") }},
		{"test change", func() { InvalidateTestCache(ctx, cm, "t1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]int
			err := cm.Stats.CacheOrExecute(ctx, "subjects", &out, time.Minute, func() (interface{}, error) {
				// A writer invalidates while the stale value is being computed
				tt.invalidate()
				return map[string]int{"Math": 1}, nil
			})
			if err != nil {
				t.Fatalf("CacheOrExecute() error = %v", err)
			}
			if out["Math"] != 1 {
				t.Errorf("out = %v, want the fetched value", out)
			}
			if mr.Exists("quiz:stats:subjects") {
				t.Error("value computed before invalidation was cached")
			}
		})
	}

	// Without a concurrent invalidation the next fill is stored
	var out map[string]int
	_ = cm.Stats.CacheOrExecute(ctx, "subjects", &out, time.Minute, func() (interface{}, error) {
		return map[string]int{"Math": 2}, nil
	})
	if !mr.Exists("quiz:stats:subjects") {
		t.Error("fill after invalidation was not cached")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	mr, client := newRedis(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	_ = cm.Test.Set(ctx, "id:t1", cachedTest{ID: "t1"}, time.Minute)
	_ = cm.Test.Set(ctx, "list:all", []cachedTest{{ID: "t1"}}, time.Minute)
	_ = cm.Test.Set(ctx, "list:published", []cachedTest{{ID: "t1"}}, time.Minute)
	_ = cm.Stats.Set(ctx, "subjects", map[string]int{"JAVA": 1}, time.Minute)
	_ = cm.User.Set(ctx, "id:u1", "kept", time.Minute)

	InvalidateTestCache(ctx, cm, "t1")

	for _, key := range []string{"quiz:test:id:t1", "quiz:test:list:all", "quiz:test:list:published", "quiz:stats:subjects"} {
		if mr.Exists(key) {
			t.Errorf("%s still cached", key)
		}
	}
	if !mr.Exists("quiz:user:id:u1") {
		t.Error("unrelated key removed")
	}

	if err := cm.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := NewCacheManager(nil).HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("HealthCheck() without client error = %v", err)
	}
}
