package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type EndReason string

const (
	EndReasonSubmitted EndReason = "submitted"
	EndReasonTimeout   EndReason = "timeout"
)

// PassPercentage is the minimum percentage counted as a pass.
const PassPercentage = 50

// Responses maps question id to selected option id.
type Responses map[string]string

func (r Responses) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *Responses) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*r = Responses{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan responses: unsupported type %T", value)
	}
	result := Responses{}
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	*r = result
	return nil
}

func (Responses) GormDataType() string {
	return "jsonb"
}

// Clone returns an independent copy.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Attempt is the finalized record of one test-taking session. It is written
// once, at submission or timeout, and never mutated afterwards.
type Attempt struct {
	ID               string    `json:"id" gorm:"primaryKey;size:64"`
	TestID           string    `json:"test_id" gorm:"not null;index;size:64"`
	StudentID        string    `json:"student_id" gorm:"not null;index;size:255"`
	StudentName      string    `json:"student_name" gorm:"size:100"`
	Responses        Responses `json:"responses" gorm:"type:jsonb"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at" gorm:"index"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	EndReason        EndReason `json:"end_reason" gorm:"size:20"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Percentage is the rounded score percentage, 0 for an empty test.
func (a *Attempt) Percentage() int {
	if a.TotalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(a.Score) / float64(a.TotalQuestions) * 100))
}

func (a *Attempt) Passed() bool {
	return a.Percentage() >= PassPercentage
}

// AnsweredCount is the number of questions with a recorded response.
func (a *Attempt) AnsweredCount() int {
	return len(a.Responses)
}

func (a *Attempt) Clone() *Attempt {
	out := *a
	out.Responses = a.Responses.Clone()
	return &out
}
