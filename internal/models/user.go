package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleAdmin   UserRole = "ADMIN"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create and manage tests.
func (r UserRole) CanAuthor() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// User is a local credential record. The password is stored as entered;
// it is never returned by the API.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey;size:255"`
	Name       string    `json:"name" gorm:"not null;size:100"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role       UserRole  `json:"role" gorm:"not null;size:20;index"`
	Password   string    `json:"password,omitempty" gorm:"not null;size:255"`
	AvatarURL  *string   `json:"avatar_url,omitempty" gorm:"size:500"`
	ClassGrade *string   `json:"class_grade,omitempty" gorm:"size:100"`
	CreatedAt  time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Sanitized returns a copy without the password.
func (u *User) Sanitized() *User {
	out := *u
	out.Password = ""
	return &out
}

// CurrentUserPointer links a surface token to the logged-in user.
type CurrentUserPointer struct {
	Token     string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"not null;index;size:255"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (CurrentUserPointer) TableName() string {
	return "current_user_pointers"
}
