package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountPayload describes the public view of an account returned by the API.
type AccountPayload struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           *string   `json:"name,omitempty"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// RegistrationRequest defines the account registration payload.
type RegistrationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

// RegistrationResponse contains the created account.
type RegistrationResponse struct {
	Account AccountPayload `json:"account"`
	Message string         `json:"message,omitempty"`
}

// AuthLoginRequest defines the payload for the login endpoint.
type AuthLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthLoginResponse describes the response returned for a successful login.
type AuthLoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Account     AccountPayload `json:"account"`
}

// PasswordResetRequest represents a password reset initiation payload.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetResponse returns information about the generated reset code.
type PasswordResetResponse struct {
	Message           string     `json:"message"`
	RequestID         string     `json:"request_id,omitempty"`
	MaskedDestination string     `json:"masked_destination,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	// SECURITY: DevCode is ONLY exposed in development mode
	// In production, reset codes are sent via secure channels
	DevCode *string `json:"dev_code,omitempty"`
}

// PasswordResetConfirmRequest captures a password reset confirmation payload.
type PasswordResetConfirmRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ProfileUpdateRequest carries mutable profile fields. Supplying new_password
// requests a password change and requires current_password.
type ProfileUpdateRequest struct {
	Name            *string `json:"name,omitempty"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
}

// ProfileResponse wraps an account payload for profile endpoints.
type ProfileResponse struct {
	Account AccountPayload `json:"account"`
}

// ProfilePictureRequest carries the picture URL to store.
type ProfilePictureRequest struct {
	PictureURL string `json:"picture_url" binding:"required,url"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountPayload converts a public profile to an API payload.
func newAccountPayload(profile domain.PublicProfile) AccountPayload {
	return AccountPayload{
		ID:             profile.ID,
		Email:          profile.Email,
		Name:           profile.Name,
		ProfilePicture: profile.ProfilePicture,
		RegisteredAt:   profile.RegisteredAt,
	}
}
