package models

import (
	"time"

	"gorm.io/datatypes"
)

// Test is an authored, timed set of questions.
type Test struct {
	ID              string                        `json:"id" gorm:"primaryKey;size:64"`
	Title           string                        `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Subject         string                        `json:"subject" gorm:"size:100;index" validate:"max=100"`
	Description     string                        `json:"description" gorm:"type:text" validate:"max=1000"`
	DurationMinutes int                           `json:"duration_minutes" gorm:"not null" validate:"required,test_duration"`
	CreatedBy       string                        `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
	Questions       datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb" validate:"dive"`
	IsPublished     bool                          `json:"is_published" gorm:"default:false;index"`
}

func (Test) TableName() string {
	return "tests"
}

// QuestionCount is the length of the question list.
func (t *Test) QuestionCount() int {
	return len(t.Questions)
}

// FindQuestion returns the question with the given id.
func (t *Test) FindQuestion(questionID string) (*Question, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == questionID {
			return &t.Questions[i], true
		}
	}
	return nil, false
}

// Duration converts DurationMinutes into a time.Duration.
func (t *Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// TestSummary is a test without its questions, for list views.
type TestSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Subject         string    `json:"subject"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	QuestionCount   int       `json:"question_count"`
	IsPublished     bool      `json:"is_published"`
}

func (t *Test) Summary() TestSummary {
	return TestSummary{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		QuestionCount:   len(t.Questions),
		IsPublished:     t.IsPublished,
	}
}

// Clone returns a deep copy so stores never share question slices with callers.
func (t *Test) Clone() *Test {
	out := *t
	if t.Questions != nil {
		out.Questions = make([]Question, len(t.Questions))
		for i, q := range t.Questions {
			q.Options = append([]Option(nil), q.Options...)
			out.Questions[i] = q
		}
	}
	return &out
}
