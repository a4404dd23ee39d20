package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
)

type contextKey string

const (
	userIDKey contextKey = "auth.user_id"
	roleKey   contextKey = "auth.role"
)

// WithUser stores the authenticated identity on the context.
func WithUser(ctx context.Context, userID uuid.UUID, role enums.UserRole) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// UserID returns the authenticated user id, or uuid.Nil when absent.
func UserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// Role returns the authenticated role, or the empty role when absent.
func Role(ctx context.Context) enums.UserRole {
	if role, ok := ctx.Value(roleKey).(enums.UserRole); ok {
		return role
	}
	return ""
}
