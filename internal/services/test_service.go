package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/generator"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type testService struct {
	repo              repositories.Repository
	logger            *slog.Logger
	validator         *validator.BusinessValidator
	generator         generator.QuestionGenerator
	publisher         events.EventPublisher
	cacheManager      *cache.CacheManager
	generationTimeout time.Duration
	now               func() time.Time
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, gen generator.QuestionGenerator, publisher events.EventPublisher, cacheManager *cache.CacheManager, generationTimeout time.Duration) TestService {
	if gen == nil {
		gen = generator.Unavailable{}
	}
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &testService{
		repo:              repo,
		logger:            logger,
		validator:         validator.NewBusinessValidator(v),
		generator:         gen,
		publisher:         publisher,
		cacheManager:      cacheManager,
		generationTimeout: generationTimeout,
		now:               time.Now,
	}
}

// ===== READS =====

func (s *testService) List(ctx context.Context, actor *models.User, filters repositories.TestFilters) ([]models.TestSummary, error) {
	if !canAuthor(actor) {
		filters.PublishedOnly = true
	}

	tests, err := s.repo.Test().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	out := make([]models.TestSummary, len(tests))
	for i, t := range tests {
		out[i] = t.Summary()
	}
	return out, nil
}

func (s *testService) Get(ctx context.Context, id string, actor *models.User) (*TestResponse, error) {
	test, err := s.getTest(ctx, id)
	if err != nil {
		return nil, err
	}

	// Unpublished tests are invisible to students
	if !test.IsPublished && !canAuthor(actor) {
		return nil, ErrTestNotFound
	}

	resp := &TestResponse{
		TestSummary: test.Summary(),
		CanEdit:     canEditTest(actor, test),
		CanTake:     test.IsPublished || canAuthor(actor),
	}

	if resp.CanEdit {
		resp.Questions = []models.Question(test.Questions)
	} else {
		public := make([]models.PublicQuestion, len(test.Questions))
		for i := range test.Questions {
			public[i] = test.Questions[i].Public()
		}
		resp.Questions = public
	}

	return resp, nil
}

func (s *testService) getTest(ctx context.Context, id string) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// ===== AUTHORING =====

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, actor *models.User) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "creator_id", actorID(actor))

	if !canAuthor(actor) {
		return nil, NewPermissionError(actorID(actor), "", "test", "create", "insufficient role permissions")
	}

	if errs := s.validator.ValidateTestCreate(req); len(errs) > 0 {
		return nil, errs
	}

	now := s.now().UTC()
	test := &models.Test{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(req.Title),
		Subject:         strings.TrimSpace(req.Subject),
		Description:     strings.TrimSpace(req.Description),
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Questions:       buildQuestions(req.Questions),
		IsPublished:     req.Publish,
	}

	if err := s.save(ctx, test); err != nil {
		return nil, err
	}

	s.logger.Info("Test created",
		"test_id", test.ID,
		"questions", test.QuestionCount(),
		"published", test.IsPublished)

	return test, nil
}

func (s *testService) Update(ctx context.Context, id string, req *UpdateTestRequest, actor *models.User) (*models.Test, error) {
	existing, err := s.getTest(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canEditTest(actor, existing) {
		return nil, NewPermissionError(actorID(actor), id, "test", "update", "not owner or insufficient permissions")
	}

	if errs := s.validator.ValidateTestUpdate(req, existing); len(errs) > 0 {
		return nil, errs
	}

	test := existing.Clone()
	if req.Title != nil {
		test.Title = strings.TrimSpace(*req.Title)
	}
	if req.Subject != nil {
		test.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Description != nil {
		test.Description = strings.TrimSpace(*req.Description)
	}
	if req.DurationMinutes != nil {
		test.DurationMinutes = *req.DurationMinutes
	}
	if req.Questions != nil {
		test.Questions = buildQuestions(*req.Questions)
	}
	test.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, test); err != nil {
		return nil, err
	}

	s.logger.Info("Test updated", "test_id", id, "user_id", actorID(actor))
	return test, nil
}

func (s *testService) Delete(ctx context.Context, id string, actor *models.User) error {
	existing, err := s.getTest(ctx, id)
	if err != nil {
		return err
	}

	if !canEditTest(actor, existing) {
		return NewPermissionError(actorID(actor), id, "test", "delete", "not owner or insufficient permissions")
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}
	cache.InvalidateTestCache(ctx, s.cacheManager, id)

	// Attempts against the test are kept; reports show it as unknown
	publishEvent(ctx, s.publisher, s.logger, events.EventTestDeleted, events.NewTestChangedPayload(existing))

	s.logger.Info("Test deleted", "test_id", id, "user_id", actorID(actor))
	return nil
}

func (s *testService) SetPublished(ctx context.Context, id string, published bool, actor *models.User) (*models.Test, error) {
	existing, err := s.getTest(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canEditTest(actor, existing) {
		action := "unpublish"
		if published {
			action = "publish"
		}
		return nil, NewPermissionError(actorID(actor), id, "test", action, "not owner or insufficient permissions")
	}

	if existing.IsPublished == published {
		return existing, nil
	}

	test := existing.Clone()
	test.IsPublished = published
	test.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, test); err != nil {
		return nil, err
	}

	s.logger.Info("Test publication changed", "test_id", id, "published", published)
	return test, nil
}

// save validates the complete test, upserts it and announces the change
func (s *testService) save(ctx context.Context, test *models.Test) error {
	if errs := s.validator.ValidateTest(test); len(errs) > 0 {
		return errs
	}

	if err := s.repo.Test().Save(ctx, test); err != nil {
		return fmt.Errorf("failed to save test: %w", err)
	}
	cache.InvalidateTestCache(ctx, s.cacheManager, test.ID)

	publishEvent(ctx, s.publisher, s.logger, events.EventTestSaved, events.NewTestChangedPayload(test))
	return nil
}

// ===== GENERATION =====

func (s *testService) GenerateQuestions(ctx context.Context, req *GenerateQuestionsRequest, actor *models.User) ([]models.Question, error) {
	if !canAuthor(actor) {
		return nil, NewPermissionError(actorID(actor), "", "question", "generate", "insufficient role permissions")
	}

	if errs := s.validator.ValidateGenerate(req); len(errs) > 0 {
		return nil, errs
	}

	if s.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.generationTimeout)
		defer cancel()
	}

	start := s.now()
	questions, err := s.generator.GenerateQuestions(ctx, strings.TrimSpace(req.Topic), req.Count)
	generationDuration.Observe(s.now().Sub(start).Seconds())

	if err != nil {
		result := "error"
		if errors.Is(err, generator.ErrProviderUnavailable) {
			result = "unavailable"
		} else if errors.Is(err, generator.ErrMalformedResponse) {
			result = "malformed"
		}
		questionGenerations.WithLabelValues(result).Inc()

		s.logger.Warn("Question generation failed", "topic", req.Topic, "count", req.Count, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	// The generator contract says exactly count questions; enforce it here too
	if len(questions) != req.Count {
		questionGenerations.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %w: expected %d questions, got %d",
			ErrGenerationFailed, generator.ErrMalformedResponse, req.Count, len(questions))
	}

	questionGenerations.WithLabelValues("success").Inc()
	return questions, nil
}

// buildQuestions turns authored inputs into stored questions. New questions
// get fresh ids; option ids are o1..oN in input order.
func buildQuestions(inputs []validator.QuestionInput) []models.Question {
	out := make([]models.Question, len(inputs))
	for i, in := range inputs {
		q := models.Question{
			ID:      in.ID,
			Text:    strings.TrimSpace(in.Text),
			Options: make([]models.Option, len(in.Options)),
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		for j, text := range in.Options {
			q.Options[j] = models.Option{ID: fmt.Sprintf("o%d", j+1), Text: strings.TrimSpace(text)}
		}
		if in.CorrectOptionIndex != nil && *in.CorrectOptionIndex >= 0 && *in.CorrectOptionIndex < len(q.Options) {
			q.CorrectOptionID = q.Options[*in.CorrectOptionIndex].ID
		}
		out[i] = q
	}
	return out
}
