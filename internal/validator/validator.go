package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const (
	MinTestDuration = 1
	MaxTestDuration = 300
)

// Validator wraps go-playground/validator with the quiz rules registered.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so API clients see the fields they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomRules(validate)

	return &Validator{validate: validate}
}

// Validate runs struct validation. The returned error is ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Var validates a single value against a tag.
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func registerCustomRules(validate *validator.Validate) {
	validate.RegisterValidation("test_duration", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= MinTestDuration && d <= MaxTestDuration
	})

	validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	validate.RegisterStructValidation(questionStructLevel, models.Question{})
}

// questionStructLevel enforces unique option ids and a correct option id that
// matches exactly one option.
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.Question)

	seen := make(map[string]bool, len(q.Options))
	matches := 0
	for _, opt := range q.Options {
		if seen[opt.ID] {
			sl.ReportError(q.Options, "options", "Options", "unique_option_ids", opt.ID)
			return
		}
		seen[opt.ID] = true
		if opt.ID == q.CorrectOptionID {
			matches++
		}
	}

	if q.CorrectOptionID != "" && matches != 1 {
		sl.ReportError(q.CorrectOptionID, "correct_option_id", "CorrectOptionID", "correct_option", q.CorrectOptionID)
	}
}

// ToValidationErrors converts a validator error into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	var out ValidationErrors

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}

	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "not_blank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have exactly %s items", fe.Param())
	case "email":
		return "must be a valid email address"
	case "test_duration":
		return fmt.Sprintf("must be between %d and %d minutes", MinTestDuration, MaxTestDuration)
	case "user_role":
		return "must be TEACHER, STUDENT or ADMIN"
	case "unique_option_ids":
		return "option ids must be unique"
	case "correct_option":
		return "must match exactly one option id"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
