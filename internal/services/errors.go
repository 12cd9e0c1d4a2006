package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

var (
	ErrTestNotFound       = errors.New("test not found")
	ErrTestNotPublished   = errors.New("test is not published")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrSessionNotFound    = errors.New("no active session")
	ErrSessionInProgress  = errors.New("a session is already in progress")
	ErrSessionNotActive   = errors.New("session is not active")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrGenerationFailed   = errors.New("question generation failed")
	ErrServiceShutdown    = errors.New("service is shutting down")
)

type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the caller may not perform an action
type PermissionError struct {
	UserID   string
	Resource string
	ID       string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ID, e.Reason)
}

func NewPermissionError(userID, id, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		ID:       id,
		Action:   action,
		Reason:   reason,
	}
}

// BusinessRuleError reports a request that is well-formed but not allowed
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}
