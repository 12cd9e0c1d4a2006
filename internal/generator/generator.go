// Package generator is the narrow capability the core uses to obtain
// generated questions and advisory feedback text from a generative provider.
package generator

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

var (
	// ErrProviderUnavailable means no provider is configured.
	ErrProviderUnavailable = errors.New("generative provider unavailable")
	ErrGenerationFailed    = errors.New("question generation failed")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

const (
	OptionsPerQuestion = 4
	MaxQuestionCount   = 20
)

// QuestionGenerator returns exactly count well-formed questions or an error.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, topic string, count int) ([]models.Question, error)
}

type FeedbackRequest struct {
	StudentName string
	Score       int
	Total       int
	Subject     string
}

// FeedbackGenerator returns free text. Callers treat it as advisory.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error)
}

type Generator interface {
	QuestionGenerator
	FeedbackGenerator
}

// Unavailable is used when no API key is configured.
type Unavailable struct{}

func (Unavailable) GenerateQuestions(ctx context.Context, topic string, count int) ([]models.Question, error) {
	return nil, ErrProviderUnavailable
}

func (Unavailable) GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error) {
	return "", ErrProviderUnavailable
}

// Stub lets tests script provider behavior.
type Stub struct {
	QuestionsFunc func(ctx context.Context, topic string, count int) ([]models.Question, error)
	FeedbackFunc  func(ctx context.Context, req FeedbackRequest) (string, error)
}

func (s *Stub) GenerateQuestions(ctx context.Context, topic string, count int) ([]models.Question, error) {
	if s.QuestionsFunc == nil {
		return nil, ErrProviderUnavailable
	}
	return s.QuestionsFunc(ctx, topic, count)
}

func (s *Stub) GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error) {
	if s.FeedbackFunc == nil {
		return "", ErrProviderUnavailable
	}
	return s.FeedbackFunc(ctx, req)
}
