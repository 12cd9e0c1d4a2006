package validator

// QuestionInput is an authored question. Options are plain texts; ids are
// assigned on save unless ID is set to keep an existing question.
type QuestionInput struct {
	ID                 string   `json:"id" validate:"omitempty,max=64"`
	Text               string   `json:"text" validate:"required,not_blank,max=2000"`
	Options            []string `json:"options" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectOptionIndex *int     `json:"correct_option_index" validate:"required,min=0"`
}

// TestCreateRequest represents the request structure for creating tests
type TestCreateRequest struct {
	Title           string          `json:"title" validate:"required,not_blank,max=200"`
	Subject         string          `json:"subject" validate:"omitempty,max=100"`
	Description     string          `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,test_duration"`
	Questions       []QuestionInput `json:"questions" validate:"omitempty,max=200,dive"`
	Publish         bool            `json:"publish"`
}

// TestUpdateRequest replaces the mutable parts of a test. Nil fields are kept.
type TestUpdateRequest struct {
	Title           *string          `json:"title" validate:"omitempty,not_blank,max=200"`
	Subject         *string          `json:"subject" validate:"omitempty,max=100"`
	Description     *string          `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes *int             `json:"duration_minutes" validate:"omitempty,test_duration"`
	Questions       *[]QuestionInput `json:"questions" validate:"omitempty,max=200,dive"`
}

// GenerateQuestionsRequest asks the generator for count questions on topic.
type GenerateQuestionsRequest struct {
	Topic string `json:"topic" validate:"required,not_blank,max=200"`
	Count int    `json:"count" validate:"required,min=1,max=20"`
}

type RegisterRequest struct {
	Name       string  `json:"name" validate:"required,not_blank,max=100"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required,min=1,max=255"`
	Role       string  `json:"role" validate:"required,user_role"`
	AvatarURL  *string `json:"avatar_url" validate:"omitempty,url,max=500"`
	ClassGrade *string `json:"class_grade" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
