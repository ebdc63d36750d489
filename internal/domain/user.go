package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of an account.
type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDelivery:
		return true
	}
	return false
}

// User-related domain errors.
var (
	ErrAccountNotFound    = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrEmailTaken         = &Error{Code: EDUPLICATE, Message: "User already exists"}
	ErrInvalidCredentials = &Error{Code: EUNAUTHORIZED, Message: "Invalid email or password"}
	ErrCannotDeleteAdmin  = &Error{Code: EINVALID, Message: "Cannot delete admin user"}
	ErrNotAuthenticated   = &Error{Code: EUNAUTHORIZED, Message: "Not authorized, no token"}
	ErrNotAdmin           = &Error{Code: EFORBIDDEN, Message: "Not authorized as an admin"}
)

// Account is a registered storefront account.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal returns the context identity for the account.
func (a *Account) Principal() *User {
	return &User{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserService provides account registration, authentication and administration.
type UserService interface {
	// Register creates a user account and returns it with a signed token.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// Login verifies credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	// GetProfile returns the caller's account.
	GetProfile(ctx context.Context) (*Account, error)

	// UpdateProfile changes the caller's name, email, phone or password.
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*AuthResult, error)

	// ListUsers returns all accounts. Admin only.
	ListUsers(ctx context.Context) ([]Account, error)

	// DeleteUser removes a non-admin account. Admin only.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// RegisterParams contains the fields for a new account.
type RegisterParams struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// UpdateProfileParams contains optional profile changes; empty fields are left unchanged.
type UpdateProfileParams struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// AuthResult is returned by register, login and profile update.
type AuthResult struct {
	Account Account `json:"user"`
	Token   string  `json:"token"`
}
