package services

import (
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// Grade builds the result screen for a finalized attempt. The stored score
// is authoritative; per-question rows are derived from the test as it is now.
func (s *gradingService) Grade(test *models.Test, attempt *models.Attempt) *AttemptResult {
	percentage := attempt.Percentage()

	result := &AttemptResult{
		Attempt:     attempt,
		Score:       attempt.Score,
		Total:       attempt.TotalQuestions,
		Percentage:  percentage,
		Passed:      attempt.Passed(),
		LetterGrade: s.LetterGrade(percentage),
		TestTitle:   "Unknown Test",
	}

	if test == nil {
		return result
	}

	result.TestTitle = test.Title
	result.Subject = test.Subject
	result.Questions = make([]QuestionResult, 0, len(test.Questions))

	for i := range test.Questions {
		q := &test.Questions[i]
		selected, answered := attempt.Responses[q.ID]
		result.Questions = append(result.Questions, QuestionResult{
			QuestionID:       q.ID,
			Text:             q.Text,
			Options:          append([]models.Option(nil), q.Options...),
			SelectedOptionID: selected,
			CorrectOptionID:  q.CorrectOptionID,
			Answered:         answered,
			IsCorrect:        answered && q.IsCorrect(selected),
		})
	}

	return result
}

func (s *gradingService) LetterGrade(percentage int) string {
	switch {
	case percentage >= 97:
		return "A+"
	case percentage >= 93:
		return "A"
	case percentage >= 90:
		return "A-"
	case percentage >= 87:
		return "B+"
	case percentage >= 83:
		return "B"
	case percentage >= 80:
		return "B-"
	case percentage >= 77:
		return "C+"
	case percentage >= 73:
		return "C"
	case percentage >= 70:
		return "C-"
	case percentage >= 67:
		return "D+"
	case percentage >= 63:
		return "D"
	case percentage >= 60:
		return "D-"
	default:
		return "F"
	}
}
