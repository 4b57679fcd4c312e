package users

import (
	"errors"
	"strings"
	"time"
)

// Back-office roles, in decreasing order of privilege.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

var (
	// ErrNotFound is returned when a user is not found
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned for an unknown role
	ErrInvalidRole = errors.New("unknown role")

	// ErrInvalidEmail is returned when the email is missing or malformed
	ErrInvalidEmail = errors.New("valid email is required")

	// ErrWeakPassword is returned when the password is too short
	ErrWeakPassword = errors.New("password must be at least 10 characters")
)

// User is a back-office account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Validate validates the create user request
func (r *CreateUserRequest) Validate() error {
	if !validEmail(r.Email) {
		return ErrInvalidEmail
	}
	if !KnownRole(r.Role) {
		return ErrInvalidRole
	}
	if len(r.Password) < 10 {
		return ErrWeakPassword
	}
	return nil
}

// KnownRole reports whether role is one of the back-office roles.
func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at:], ".")
}
