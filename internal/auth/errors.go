package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrRateLimited        = errors.New("too many attempts")

	ErrInvalidPermissions = fmt.Errorf("%w: invalid permissions", ErrInvalidInput)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", ErrInvalidInput)
	ErrLastManager        = fmt.Errorf("%w: cannot delete the last user with %s", ErrInvalidInput, PermManageUsers)
)

// RateLimitError reports when a limited key may try again.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
