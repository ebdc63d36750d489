// Package domain provides core business types and context helpers for the storefront.
//
// Context helpers centralize request-scoped data access so that services never
// parse tokens or headers themselves.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// userContextKey stores the authenticated user in context.
	userContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// User represents the authenticated caller stored in context.
// It is built from bearer token claims and never carries the password hash.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  Role
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanAccess reports whether the user owns the resource or is an admin.
func (u *User) CanAccess(ownerID uuid.UUID) bool {
	if u == nil {
		return false
	}
	return u.ID == ownerID || u.IsAdmin()
}

// --- User Context Helpers ---

// NewContextWithUser returns a new context with the user attached.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the user from context.
// Returns nil if no user is present.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// UserIDFromContext retrieves the user ID from context.
// Returns uuid.Nil if no user is present.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return uuid.Nil
}

// RequireUserID retrieves the user ID from context, panicking if not present.
// Use this in service layers where authenticated user is required.
func RequireUserID(ctx context.Context) uuid.UUID {
	id := UserIDFromContext(ctx)
	if id == uuid.Nil {
		panic("user_id required in context but not found")
	}
	return id
}

// MustUser retrieves the user from context, panicking if not present.
func MustUser(ctx context.Context) *User {
	user := UserFromContext(ctx)
	if user == nil {
		panic("user required in context but not found")
	}
	return user
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// --- Convenience Helpers ---

// IsAuthenticated returns true if there is a user in context.
func IsAuthenticated(ctx context.Context) bool {
	return UserFromContext(ctx) != nil
}

// IsAdmin returns true if the user in context has the admin role.
func IsAdmin(ctx context.Context) bool {
	return UserFromContext(ctx).IsAdmin()
}
