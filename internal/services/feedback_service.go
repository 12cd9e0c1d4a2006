package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/generator"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const (
	FeedbackMissingKey = "AI Analysis unavailable (Missing API Key)."
	FeedbackEmpty      = "Keep up the good work!"
	FeedbackFailed     = "Great job on completing the test!"

	FeedbackSourceProvider = "provider"
	FeedbackSourceCache    = "cache"
	FeedbackSourceFallback = "fallback"
)

type feedbackService struct {
	generator generator.FeedbackGenerator
	cache     *cache.CacheHelper
	logger    *slog.Logger
	timeout   time.Duration
}

// NewFeedbackService never returns errors to callers: every failure turns
// into one of the fixed fallback texts.
func NewFeedbackService(gen generator.FeedbackGenerator, cacheManager *cache.CacheManager, logger *slog.Logger, timeout time.Duration) FeedbackService {
	if gen == nil {
		gen = generator.Unavailable{}
	}
	var helper *cache.CacheHelper
	if cacheManager != nil {
		helper = cacheManager.Feedback
	}
	return &feedbackService{
		generator: gen,
		cache:     helper,
		logger:    logger,
		timeout:   timeout,
	}
}

func (s *feedbackService) Feedback(ctx context.Context, attempt *models.Attempt, test *models.Test) *FeedbackResponse {
	resp := &FeedbackResponse{AttemptID: attempt.ID}

	if text, err := s.cache.GetString(ctx, attempt.ID); err == nil {
		resp.Text, resp.Source = text, FeedbackSourceCache
		feedbackRequests.WithLabelValues(FeedbackSourceCache).Inc()
		return resp
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	subject := ""
	if test != nil {
		subject = test.Subject
	}

	text, err := s.generator.GenerateFeedback(ctx, generator.FeedbackRequest{
		StudentName: attempt.StudentName,
		Score:       attempt.Score,
		Total:       attempt.TotalQuestions,
		Subject:     subject,
	})

	switch {
	case errors.Is(err, generator.ErrProviderUnavailable):
		resp.Text, resp.Source = FeedbackMissingKey, FeedbackSourceFallback
	case err != nil:
		s.logger.Warn("Feedback generation failed", "attempt_id", attempt.ID, "error", err)
		resp.Text, resp.Source = FeedbackFailed, FeedbackSourceFallback
	case strings.TrimSpace(text) == "":
		resp.Text, resp.Source = FeedbackEmpty, FeedbackSourceFallback
	default:
		resp.Text, resp.Source = strings.TrimSpace(text), FeedbackSourceProvider
		if err := s.cache.SetString(context.WithoutCancel(ctx), attempt.ID, resp.Text, cache.FeedbackCacheConfig.TTL); err != nil {
			s.logger.Warn("Failed to cache feedback", "attempt_id", attempt.ID, "error", err)
		}
	}

	feedbackRequests.WithLabelValues(resp.Source).Inc()
	return resp
}

func (s *feedbackService) Warm(attempt *models.Attempt, test *models.Test) {
	go func() {
		s.Feedback(context.Background(), attempt, test)
	}()
}
