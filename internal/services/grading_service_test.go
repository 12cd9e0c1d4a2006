package services

import (
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestGradingService_LetterGrade(t *testing.T) {
	svc := NewGradingService(discardLogger())

	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A+"}, {97, "A+"}, {95, "A"}, {90, "A-"}, {88, "B+"}, {85, "B"},
		{80, "B-"}, {78, "C+"}, {75, "C"}, {70, "C-"}, {67, "D+"}, {65, "D"},
		{60, "D-"}, {59, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := svc.LetterGrade(tt.percentage); got != tt.want {
			t.Errorf("LetterGrade(%d) = %s, want %s", tt.percentage, got, tt.want)
		}
	}
}

func TestGradingService_Grade(t *testing.T) {
	svc := NewGradingService(discardLogger())
	test := sampleTest("t1", teacherUser.ID, true)

	tests := []struct {
		name        string
		test        *models.Test
		attempt     *models.Attempt
		wantPct     int
		wantPassed  bool
		wantTitle   string
		wantRows    int
		wantCorrect []bool
	}{
		{
			name: "all correct",
			test: test,
			attempt: &models.Attempt{ID: "a1", Score: 3, TotalQuestions: 3,
				Responses: models.Responses{"q1": "o2", "q2": "o1", "q3": "o3"}},
			wantPct: 100, wantPassed: true, wantTitle: "Test t1", wantRows: 3,
			wantCorrect: []bool{true, true, true},
		},
		{
			name: "half rounds up to pass",
			test: test,
			attempt: &models.Attempt{ID: "a2", Score: 1, TotalQuestions: 2,
				Responses: models.Responses{"q1": "o2"}},
			wantPct: 50, wantPassed: true, wantTitle: "Test t1", wantRows: 3,
			wantCorrect: []bool{true, false, false},
		},
		{
			name:    "deleted test",
			test:    nil,
			attempt: &models.Attempt{ID: "a3", Score: 0, TotalQuestions: 3},
			wantPct: 0, wantPassed: false, wantTitle: "Unknown Test", wantRows: 0,
		},
		{
			name:    "empty test",
			test:    &models.Test{ID: "empty", Title: "Empty"},
			attempt: &models.Attempt{ID: "a4"},
			wantPct: 0, wantPassed: false, wantTitle: "Empty", wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Grade(tt.test, tt.attempt)
			if got.Percentage != tt.wantPct || got.Passed != tt.wantPassed {
				t.Errorf("percentage=%d passed=%v, want %d %v", got.Percentage, got.Passed, tt.wantPct, tt.wantPassed)
			}
			if got.TestTitle != tt.wantTitle {
				t.Errorf("TestTitle = %q, want %q", got.TestTitle, tt.wantTitle)
			}
			if len(got.Questions) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(got.Questions), tt.wantRows)
			}
			for i, want := range tt.wantCorrect {
				if got.Questions[i].IsCorrect != want {
					t.Errorf("row %d IsCorrect = %v, want %v", i, got.Questions[i].IsCorrect, want)
				}
			}
			if got.Score != tt.attempt.Score {
				t.Errorf("Score = %d, want stored %d", got.Score, tt.attempt.Score)
			}
		})
	}
}
