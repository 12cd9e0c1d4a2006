package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const DefaultModel = "gemini-2.5-flash"

// contentModels is the slice of *genai.Models this package calls.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	models contentModels
	model  string
	logger *slog.Logger
	now    func() time.Time
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrProviderUnavailable
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGemini(client.Models, cfg.Model, logger), nil
}

func newGemini(models contentModels, model string, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		models: models,
		model:  model,
		logger: logger,
		now:    time.Now,
	}
}

func questionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"text": {Type: genai.TypeString},
				"options": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"correctOptionIndex": {
					Type:        genai.TypeInteger,
					Description: "Index (0-3) of the correct option",
				},
			},
			Required: []string{"text", "options", "correctOptionIndex"},
		},
	}
}

func (g *Gemini) GenerateQuestions(ctx context.Context, topic string, count int) ([]models.Question, error) {
	if count < 1 || count > MaxQuestionCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrGenerationFailed, MaxQuestionCount)
	}

	prompt := fmt.Sprintf("Generate %d multiple choice questions about %q.\n"+
		"Each question must have %d options and 1 correct answer.\n"+
		"Return purely JSON.", count, topic, OptionsPerQuestion)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(),
	})
	if err != nil {
		g.logger.Error("Question generation failed", "topic", topic, "count", count, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	questions, err := ParseQuestions(resp.Text(), count, g.now())
	if err != nil {
		g.logger.Warn("Discarding malformed generation reply", "topic", topic, "error", err)
		return nil, err
	}

	g.logger.Info("Questions generated", "topic", topic, "count", len(questions))
	return questions, nil
}

func (g *Gemini) GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error) {
	prompt := fmt.Sprintf("A student named %s scored %d out of %d on a test about %s.\n"+
		"Provide a short, encouraging, and constructive feedback paragraph (max 50 words) for them.",
		req.StudentName, req.Score, req.Total, req.Subject)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return strings.TrimSpace(resp.Text()), nil
}
