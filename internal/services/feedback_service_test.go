package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/generator"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestFeedbackService_Fallbacks(t *testing.T) {
	attempt := &models.Attempt{ID: "a1", StudentName: "Sam", Score: 2, TotalQuestions: 3}
	test := sampleTest("t1", teacherUser.ID, true)

	tests := []struct {
		name       string
		gen        generator.FeedbackGenerator
		timeout    time.Duration
		wantText   string
		wantSource string
	}{
		{
			name:       "no provider",
			gen:        generator.Unavailable{},
			wantText:   FeedbackMissingKey,
			wantSource: FeedbackSourceFallback,
		},
		{
			name: "provider error",
			gen: &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
				return "", errors.New("quota exceeded")
			}},
			wantText:   FeedbackFailed,
			wantSource: FeedbackSourceFallback,
		},
		{
			name: "empty text",
			gen: &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
				return "   ", nil
			}},
			wantText:   FeedbackEmpty,
			wantSource: FeedbackSourceFallback,
		},
		{
			name: "slow provider",
			gen: &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}},
			timeout:    10 * time.Millisecond,
			wantText:   FeedbackFailed,
			wantSource: FeedbackSourceFallback,
		},
		{
			name: "provider text",
			gen: &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
				if req.StudentName != "Sam" || req.Score != 2 || req.Total != 3 || req.Subject != "Math" {
					return "", errors.New("unexpected request")
				}
				return "  Solid work on Math.\n", nil
			}},
			wantText:   "Solid work on Math.",
			wantSource: FeedbackSourceProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFeedbackService(tt.gen, nil, discardLogger(), tt.timeout)
			got := svc.Feedback(context.Background(), attempt, test)
			if got.Text != tt.wantText || got.Source != tt.wantSource {
				t.Errorf("Feedback() = %q (%s), want %q (%s)", got.Text, got.Source, tt.wantText, tt.wantSource)
			}
			if got.AttemptID != "a1" {
				t.Errorf("AttemptID = %q, want a1", got.AttemptID)
			}
		})
	}
}

func TestFeedbackService_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	gen := &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "Great progress.", nil
	}}

	svc := NewFeedbackService(gen, cache.NewCacheManager(client), discardLogger(), time.Second)
	attempt := &models.Attempt{ID: "a1", StudentName: "Sam", Score: 1, TotalQuestions: 1}

	first := svc.Feedback(context.Background(), attempt, nil)
	if first.Source != FeedbackSourceProvider {
		t.Fatalf("first Source = %s, want provider", first.Source)
	}

	second := svc.Feedback(context.Background(), attempt, nil)
	if second.Source != FeedbackSourceCache || second.Text != "Great progress." {
		t.Fatalf("second Feedback() = %q (%s), want cached text", second.Text, second.Source)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}

	if !mr.Exists(cache.FeedbackCacheConfig.Prefix + "a1") {
		t.Errorf("feedback key not stored in redis")
	}
}

func TestFeedbackService_FallbackNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := NewFeedbackService(generator.Unavailable{}, cache.NewCacheManager(client), discardLogger(), time.Second)
	svc.Feedback(context.Background(), &models.Attempt{ID: "a1"}, nil)

	if mr.Exists(cache.FeedbackCacheConfig.Prefix + "a1") {
		t.Errorf("fallback text was cached")
	}
}

func TestFeedbackService_Warm(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	gen := &generator.Stub{FeedbackFunc: func(ctx context.Context, req generator.FeedbackRequest) (string, error) {
		return "Warm text.", nil
	}}
	svc := NewFeedbackService(gen, cache.NewCacheManager(client), discardLogger(), time.Second)

	svc.Warm(&models.Attempt{ID: "a9"}, nil)

	waitFor(t, func() bool { return mr.Exists(cache.FeedbackCacheConfig.Prefix + "a9") })
}
