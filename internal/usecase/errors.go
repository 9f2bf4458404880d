package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmailAlreadyRegistered indicates the email is already bound to an account.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	// Unknown email and wrong password are indistinguishable through this error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound indicates no account exists for the supplied identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidOrExpiredCode indicates the reset code is wrong, expired, already
	// consumed, or was never issued. Callers cannot tell which.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrPasswordChangeCooldown indicates a voluntary password change was
	// attempted before the cooldown elapsed.
	ErrPasswordChangeCooldown = errors.New("password was changed recently")
	// ErrPasswordPolicyViolation indicates the password does not satisfy policy requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet policy requirements")
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// RateLimitExceededError signals that an endpoint-scoped attempt budget was
// exhausted. RetryAfter is zero when the window end could not be determined.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}
