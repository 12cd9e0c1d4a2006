package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// RawQuestion is the shape the provider is asked to return.
type RawQuestion struct {
	Text               string   `json:"text" validate:"required,not_blank"`
	Options            []string `json:"options" validate:"len=4,dive,required"`
	CorrectOptionIndex *int     `json:"correctOptionIndex" validate:"required,min=0,max=3"`
}

var rawValidator = validator.New()

// ParseQuestions decodes a provider reply into count questions. Ids follow
// gen-<unix millis>-<i> for questions and opt-<i>-<j> for options.
func ParseQuestions(raw string, count int, now time.Time) ([]models.Question, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var items []RawQuestion
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(items) != count {
		return nil, fmt.Errorf("%w: expected %d questions, got %d", ErrMalformedResponse, count, len(items))
	}

	stamp := now.UnixMilli()
	questions := make([]models.Question, 0, len(items))
	for i, item := range items {
		if err := rawValidator.Validate(&item); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrMalformedResponse, i, err)
		}

		q := models.Question{
			ID:      fmt.Sprintf("gen-%d-%d", stamp, i),
			Text:    strings.TrimSpace(item.Text),
			Options: make([]models.Option, len(item.Options)),
		}
		for j, text := range item.Options {
			q.Options[j] = models.Option{ID: fmt.Sprintf("opt-%d-%d", i, j), Text: text}
		}
		q.CorrectOptionID = q.Options[*item.CorrectOptionIndex].ID
		questions = append(questions, q)
	}

	return questions, nil
}

// stripCodeFence removes a ```json fence some models wrap replies in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
