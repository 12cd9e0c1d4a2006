package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

func newAuthService() AuthService {
	return NewAuthService(memory.NewRepository(), discardLogger(), validator.New(), time.Hour)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "pw", Role: "STUDENT",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if reg.Token == "" || reg.User.ID == "" {
		t.Fatalf("Register() returned %+v, want token and user", reg)
	}
	if reg.User.Password != "" {
		t.Errorf("Register() leaked the password")
	}
	if reg.ExpiresAt == nil {
		t.Errorf("ExpiresAt not set with a TTL")
	}

	// Registration signs the user in
	me, err := svc.CurrentUser(ctx, reg.Token)
	if err != nil || me.ID != reg.User.ID {
		t.Fatalf("CurrentUser() = %v, %v", me, err)
	}

	login, err := svc.Login(ctx, &LoginRequest{Email: "SAM@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if login.Token == reg.Token {
		t.Errorf("Login() reused the registration token")
	}

	if err := svc.Logout(ctx, login.Token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := svc.CurrentUser(ctx, login.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("CurrentUser() after logout error = %v, want ErrUnauthenticated", err)
	}
	// The other token is unaffected
	if _, err := svc.CurrentUser(ctx, reg.Token); err != nil {
		t.Errorf("CurrentUser() for other token error: %v", err)
	}
}

func TestAuthService_Errors(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{Name: "Tess", Email: "tess@example.com", Password: "pw", Role: "TEACHER"}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "duplicate email",
			call: func() error {
				_, err := svc.Register(ctx, &RegisterRequest{Name: "T2", Email: "Tess@Example.com", Password: "x", Role: "STUDENT"})
				return err
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "wrong password",
			call: func() error {
				_, err := svc.Login(ctx, &LoginRequest{Email: "tess@example.com", Password: "nope"})
				return err
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			call: func() error {
				_, err := svc.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "pw"})
				return err
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "empty token",
			call: func() error {
				_, err := svc.CurrentUser(ctx, "")
				return err
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name: "unknown token",
			call: func() error {
				_, err := svc.CurrentUser(ctx, "not-a-token")
				return err
			},
			wantErr: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterRequest{Name: "X", Email: "x@example.com", Password: "pw", Role: "JANITOR"})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("Register() error = %v, want ValidationErrors", err)
		}
	})
}
