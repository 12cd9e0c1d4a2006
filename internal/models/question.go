package models

// Option is a single answer choice. Immutable once authored.
type Option struct {
	ID   string `json:"id" validate:"required,max=64"`
	Text string `json:"text" validate:"required,max=500"`
}

// Question is a multiple-choice question. CorrectOptionID must match the id
// of exactly one element of Options; the validator enforces this at authoring.
type Question struct {
	ID              string   `json:"id" validate:"required,max=64"`
	Text            string   `json:"text" validate:"required,min=1,max=2000"`
	Options         []Option `json:"options" validate:"required,min=2,dive"`
	CorrectOptionID string   `json:"correct_option_id" validate:"required"`
}

// HasOption reports whether optionID belongs to this question.
func (q *Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// IsCorrect reports whether optionID is the designated correct answer.
func (q *Question) IsCorrect(optionID string) bool {
	return optionID != "" && optionID == q.CorrectOptionID
}

// PublicQuestion is a question as shown to a student during a session.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Public strips the correct answer.
func (q *Question) Public() PublicQuestion {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: opts}
}
