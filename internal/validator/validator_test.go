package validator

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func intPtr(i int) *int { return &i }

func validQuestion() models.Question {
	return models.Question{
		ID:              "q1",
		Text:            "Which layer routes packets?",
		Options:         []models.Option{{ID: "o1", Text: "Data Link"}, {ID: "o2", Text: "Network"}},
		CorrectOptionID: "o2",
	}
}

func TestValidator_Question(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		mutate   func(q *models.Question)
		wantRule string
	}{
		{name: "valid", mutate: func(q *models.Question) {}},
		{name: "missing correct option", mutate: func(q *models.Question) { q.CorrectOptionID = "o9" }, wantRule: "correct_option"},
		{name: "duplicate option ids", mutate: func(q *models.Question) { q.Options[1].ID = "o1"; q.CorrectOptionID = "o1" }, wantRule: "unique_option_ids"},
		{name: "single option", mutate: func(q *models.Question) { q.Options = q.Options[:1]; q.CorrectOptionID = "o1" }, wantRule: "min"},
		{name: "empty text", mutate: func(q *models.Question) { q.Text = "" }, wantRule: "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := v.Validate(q)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var ve ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, e := range ve {
				if e.Rule == tt.wantRule {
					found = true
				}
			}
			if !found {
				t.Errorf("rules = %+v, want %s", ve, tt.wantRule)
			}
		})
	}
}

func TestValidator_TestDuration(t *testing.T) {
	v := New()
	test := &models.Test{
		ID:              "t1",
		Title:           "Network Fundamentals",
		DurationMinutes: 0,
		Questions:       []models.Question{validQuestion()},
	}
	if err := v.Validate(test); err == nil {
		t.Fatal("expected duration error")
	}
	test.DurationMinutes = 20
	if err := v.Validate(test); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestBusinessValidator_ValidateTestCreate(t *testing.T) {
	bv := NewBusinessValidator(New())

	tests := []struct {
		name    string
		req     TestCreateRequest
		wantErr bool
	}{
		{
			name: "valid",
			req: TestCreateRequest{
				Title:           "Core JAVA",
				DurationMinutes: 25,
				Questions: []QuestionInput{
					{Text: "Not a Java feature?", Options: []string{"OOP", "Pointers"}, CorrectOptionIndex: intPtr(1)},
				},
				Publish: true,
			},
		},
		{
			name: "index out of range",
			req: TestCreateRequest{
				Title:           "Core JAVA",
				DurationMinutes: 25,
				Questions: []QuestionInput{
					{Text: "Q", Options: []string{"a", "b"}, CorrectOptionIndex: intPtr(2)},
				},
			},
			wantErr: true,
		},
		{
			name:    "publish without questions",
			req:     TestCreateRequest{Title: "Empty", DurationMinutes: 10, Publish: true},
			wantErr: true,
		},
		{
			name:    "blank title",
			req:     TestCreateRequest{Title: "   ", DurationMinutes: 10},
			wantErr: true,
		},
		{
			name:    "draft without questions",
			req:     TestCreateRequest{Title: "Draft", DurationMinutes: 10},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateTestCreate(&tt.req)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("ValidateTestCreate() = %+v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestBusinessValidator_ValidateTest(t *testing.T) {
	bv := NewBusinessValidator(nil)
	q := validQuestion()
	test := &models.Test{
		ID:              "t1",
		Title:           "Dup",
		DurationMinutes: 10,
		Questions:       []models.Question{q, q},
	}
	errs := bv.ValidateTest(test)
	if len(errs) == 0 {
		t.Fatal("expected duplicate question id error")
	}
	if errs[0].Rule != "unique_question_ids" {
		t.Errorf("Rule = %s", errs[0].Rule)
	}
}

func TestValidator_Register(t *testing.T) {
	v := New()
	req := RegisterRequest{Name: "Carol", Email: "carol@jmc.com", Password: "pw", Role: "PRINCIPAL"}
	err := v.Validate(&req)
	var ve ValidationErrors
	if !errors.As(err, &ve) || ve[0].Field != "role" {
		t.Fatalf("Validate() = %v", err)
	}
	req.Role = string(models.RoleStudent)
	if err := v.Validate(&req); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
