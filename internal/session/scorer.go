package session

import "github.com/SAP-F-2025/quiz-service/internal/models"

// Score counts the questions whose response equals the correct option id.
// Unanswered questions count as incorrect. A nil test scores 0.
func Score(test *models.Test, responses map[string]string) int {
	if test == nil {
		return 0
	}
	score := 0
	for i := range test.Questions {
		q := &test.Questions[i]
		if selected, ok := responses[q.ID]; ok && q.IsCorrect(selected) {
			score++
		}
	}
	return score
}
