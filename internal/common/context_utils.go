package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// GetUserIDFromContext extracts the authenticated user ID, if any.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// GetRoleFromContext extracts the authenticated role, if any.
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// ValidateUUID parses a UUID string with a field-scoped error message.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(idStr))
	if err != nil {
		return uuid.Nil, NewValidationError(fieldName, "must be a valid UUID")
	}
	return id, nil
}

// ValidatePositiveInteger validates an integer is in (0, maxValue].
func ValidatePositiveInteger(value int, fieldName string, maxValue int) error {
	if value <= 0 {
		return NewValidationError(fieldName, "must be positive")
	}
	if maxValue > 0 && value > maxValue {
		return NewValidationError(fieldName, fmt.Sprintf("must not exceed %d", maxValue))
	}
	return nil
}

// ValidateNonNegativeFloat validates a float is in [0, maxValue].
func ValidateNonNegativeFloat(value float64, fieldName string, maxValue float64) error {
	if value < 0 {
		return NewValidationError(fieldName, "must not be negative")
	}
	if maxValue > 0 && value > maxValue {
		return NewValidationError(fieldName, fmt.Sprintf("must not exceed %.2f", maxValue))
	}
	return nil
}

// ValidateRequiredString validates a string is non-empty after trimming.
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fieldName, "is required")
	}
	return nil
}

// SafeString dereferences a string pointer, empty when nil.
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeFloat64 dereferences a float pointer, zero when nil.
func SafeFloat64(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// ValidatePaginationParams clamps limit/offset to sane bounds.
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		return 0, 0, NewValidationError("offset", "must not be negative")
	}
	return limit, offset, nil
}
