package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Password    string     `json:"-"` // bcrypt hash, never serialized to clients
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// NewUser validates registration input and builds a user record with the
// already-hashed credential. Uniqueness of username/email is the record
// store's concern, not this constructor's.
func NewUser(username, email, passwordHash string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters long", ErrValidation)
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '_') {
			return nil, fmt.Errorf("%w: username can only contain letters, numbers, and underscores", ErrValidation)
		}
	}
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	return &User{
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: time.Now(),
	}, nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
