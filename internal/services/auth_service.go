package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type authService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	validator  *validator.Validator
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService builds the local credential service. Credentials are
// compared as stored; there is no hashing.
func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, sessionTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		logger:     logger,
		validator:  validator,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Role:       models.UserRole(req.Role),
		Password:   req.Password,
		AvatarURL:  req.AvatarURL,
		ClassGrade: req.ClassGrade,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsConflictError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", user.Role)

	// Registration signs the new user in
	return s.issueToken(ctx, user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Password != req.Password {
		s.logger.Warn("Login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, user)
}

func (s *authService) issueToken(ctx context.Context, user *models.User) (*LoginResponse, error) {
	token := uuid.NewString()
	safe := user.Sanitized()

	if err := s.repo.CurrentUser().Set(ctx, token, safe, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store current user: %w", err)
	}

	resp := &LoginResponse{Token: token, User: safe}
	if s.sessionTTL > 0 {
		expires := s.now().Add(s.sessionTTL).UTC()
		resp.ExpiresAt = &expires
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return resp, nil
}

func (s *authService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.CurrentUser().Get(ctx, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	return user.Sanitized(), nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.CurrentUser().Clear(ctx, token); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}
