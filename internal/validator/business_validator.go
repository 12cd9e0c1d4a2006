package validator

import (
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// BusinessValidator handles the authoring rules that span several fields
type BusinessValidator struct {
	v *Validator
}

func NewBusinessValidator(v *Validator) *BusinessValidator {
	if v == nil {
		v = New()
	}
	return &BusinessValidator{v: v}
}

func (bv *BusinessValidator) structErrors(s interface{}) ValidationErrors {
	if err := bv.v.Validate(s); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			return ve
		}
		return ValidationErrors{{Message: err.Error()}}
	}
	return nil
}

// ValidateTestCreate validates a create request
func (bv *BusinessValidator) ValidateTestCreate(req *TestCreateRequest) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, bv.structErrors(req)...)
	errs = append(errs, validateQuestionInputs(req.Questions)...)

	if req.Publish && len(req.Questions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "a published test needs at least one question",
			Rule:    "publishable",
		})
	}

	return errs
}

// ValidateTestUpdate validates an update request against the stored test
func (bv *BusinessValidator) ValidateTestUpdate(req *TestUpdateRequest, existing *models.Test) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, bv.structErrors(req)...)
	if req.Questions != nil {
		errs = append(errs, validateQuestionInputs(*req.Questions)...)
		if existing != nil && existing.IsPublished && len(*req.Questions) == 0 {
			errs = append(errs, ValidationError{
				Field:   "questions",
				Message: "cannot remove every question from a published test",
				Rule:    "publishable",
			})
		}
	}

	return errs
}

// ValidateTest validates a fully built test before it is stored
func (bv *BusinessValidator) ValidateTest(test *models.Test) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, bv.structErrors(test)...)

	seen := make(map[string]bool, len(test.Questions))
	for i, q := range test.Questions {
		if seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].id", i),
				Message: "question ids must be unique within a test",
				Value:   q.ID,
				Rule:    "unique_question_ids",
			})
		}
		seen[q.ID] = true
	}

	if test.IsPublished && len(test.Questions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "a published test needs at least one question",
			Rule:    "publishable",
		})
	}

	return errs
}

func (bv *BusinessValidator) ValidateGenerate(req *GenerateQuestionsRequest) ValidationErrors {
	return bv.structErrors(req)
}

func validateQuestionInputs(questions []QuestionInput) ValidationErrors {
	var errs ValidationErrors

	seen := make(map[string]bool)
	for i, q := range questions {
		if q.CorrectOptionIndex != nil && (*q.CorrectOptionIndex < 0 || *q.CorrectOptionIndex >= len(q.Options)) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].correct_option_index", i),
				Message: fmt.Sprintf("must be between 0 and %d", len(q.Options)-1),
				Value:   *q.CorrectOptionIndex,
				Rule:    "option_index",
			})
		}
		if q.ID == "" {
			continue
		}
		if seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].id", i),
				Message: "question ids must be unique within a test",
				Value:   q.ID,
				Rule:    "unique_question_ids",
			})
		}
		seen[q.ID] = true
	}

	return errs
}
