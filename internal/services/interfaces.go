package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/session"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type CreateTestRequest = validator.TestCreateRequest
type UpdateTestRequest = validator.TestUpdateRequest
type GenerateQuestionsRequest = validator.GenerateQuestionsRequest

type LoginResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// TestResponse carries full questions for authors and public questions
// (no correct option) for everyone else.
type TestResponse struct {
	models.TestSummary
	Questions interface{} `json:"questions"`
	CanEdit   bool        `json:"can_edit"`
	CanTake   bool        `json:"can_take"`
}

type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	OptionID   string `json:"option_id" validate:"required"`
}

// SessionResponse is a session snapshot plus the test context around it
type SessionResponse struct {
	session.Snapshot
	Subject       string    `json:"subject"`
	EndsAt        time.Time `json:"ends_at"`
	IsFirst       bool      `json:"is_first"`
	IsLast        bool      `json:"is_last"`
	AnsweredCount int       `json:"answered_count"`
}

type QuestionResult struct {
	QuestionID       string          `json:"question_id"`
	Text             string          `json:"text"`
	Options          []models.Option `json:"options"`
	SelectedOptionID string          `json:"selected_option_id,omitempty"`
	CorrectOptionID  string          `json:"correct_option_id"`
	Answered         bool            `json:"answered"`
	IsCorrect        bool            `json:"is_correct"`
}

type AttemptResult struct {
	Attempt     *models.Attempt  `json:"attempt"`
	TestTitle   string           `json:"test_title"`
	Subject     string           `json:"subject"`
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	Percentage  int              `json:"percentage"`
	Passed      bool             `json:"passed"`
	LetterGrade string           `json:"letter_grade"`
	Questions   []QuestionResult `json:"questions,omitempty"`
}

type FeedbackResponse struct {
	AttemptID string `json:"attempt_id"`
	Text      string `json:"text"`
	Source    string `json:"source"`
}

type ReportRow struct {
	AttemptID        string           `json:"attempt_id"`
	TestID           string           `json:"test_id"`
	TestTitle        string           `json:"test_title"`
	Subject          string           `json:"subject"`
	StudentID        string           `json:"student_id"`
	StudentName      string           `json:"student_name"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"total_questions"`
	Percentage       int              `json:"percentage"`
	Passed           bool             `json:"passed"`
	EndReason        models.EndReason `json:"end_reason"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	CompletedAt      time.Time        `json:"completed_at"`
}

type SubjectSummary struct {
	Subject           string  `json:"subject"`
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	PassRate          float64 `json:"pass_rate"`
}

type StudentHistory struct {
	StudentID         string      `json:"student_id"`
	Attempts          []ReportRow `json:"attempts"`
	TotalAttempts     int         `json:"total_attempts"`
	AveragePercentage float64     `json:"average_percentage"`
	Passed            int         `json:"passed"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
}

type TestService interface {
	List(ctx context.Context, actor *models.User, filters repositories.TestFilters) ([]models.TestSummary, error)
	Get(ctx context.Context, id string, actor *models.User) (*TestResponse, error)
	Create(ctx context.Context, req *CreateTestRequest, actor *models.User) (*models.Test, error)
	Update(ctx context.Context, id string, req *UpdateTestRequest, actor *models.User) (*models.Test, error)
	Delete(ctx context.Context, id string, actor *models.User) error
	SetPublished(ctx context.Context, id string, published bool, actor *models.User) (*models.Test, error)
	GenerateQuestions(ctx context.Context, req *GenerateQuestionsRequest, actor *models.User) ([]models.Question, error)
}

// AttemptService runs timed sessions, at most one per user, and reads the
// finalized attempts.
type AttemptService interface {
	Start(ctx context.Context, testID string, actor *models.User) (*SessionResponse, error)
	GetSession(ctx context.Context, actor *models.User) (*SessionResponse, error)
	SelectAnswer(ctx context.Context, req *SelectAnswerRequest, actor *models.User) (*SessionResponse, error)
	Next(ctx context.Context, actor *models.User) (*SessionResponse, error)
	Previous(ctx context.Context, actor *models.User) (*SessionResponse, error)
	Submit(ctx context.Context, actor *models.User) (*AttemptResult, error)
	Abandon(ctx context.Context, actor *models.User) error

	GetAttempt(ctx context.Context, id string, actor *models.User) (*models.Attempt, error)
	GetResult(ctx context.Context, id string, actor *models.User) (*AttemptResult, error)
	GetFeedback(ctx context.Context, id string, actor *models.User) (*FeedbackResponse, error)
	ListAttempts(ctx context.Context, actor *models.User, filters repositories.AttemptFilters) ([]*models.Attempt, error)

	ActiveSessions() int
	Shutdown(ctx context.Context) error
}

type GradingService interface {
	Grade(test *models.Test, attempt *models.Attempt) *AttemptResult
	LetterGrade(percentage int) string
}

type FeedbackService interface {
	Feedback(ctx context.Context, attempt *models.Attempt, test *models.Test) *FeedbackResponse
	// Warm produces and caches feedback without blocking the caller
	Warm(attempt *models.Attempt, test *models.Test)
}

type ReportService interface {
	TeacherReport(ctx context.Context, actor *models.User, filters repositories.AttemptFilters) ([]ReportRow, error)
	StudentHistory(ctx context.Context, actor *models.User) (*StudentHistory, error)
	SubjectSummary(ctx context.Context, actor *models.User) ([]SubjectSummary, error)
	ExportAttempts(ctx context.Context, actor *models.User, filters repositories.AttemptFilters, w io.Writer) error
}

type ServiceManager interface {
	Auth() AuthService
	Test() TestService
	Attempt() AttemptService
	Grading() GradingService
	Feedback() FeedbackService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
