package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	uuid "github.com/google/uuid"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/usecase"
)

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset      *usecase.PasswordResetService
	dispatcher NotificationDispatcher
	isDev      bool
}

// NewPasswordHandler constructs a PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService, dispatcher NotificationDispatcher, isDev bool) *PasswordHandler {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	return &PasswordHandler{
		reset:      reset,
		dispatcher: dispatcher,
		isDev:      isDev,
	}
}

// RequestReset godoc
// @Summary Initiate a password reset
// @Description Issues a reset code and always returns an accepted response to avoid account enumeration.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Password reset request"
// @Success 202 {object} PasswordResetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/request [post]
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	if h.reset == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "password reset handler not configured"})
		return
	}

	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid password reset request"})
		return
	}

	result, err := h.reset.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		// Unknown accounts get the same accepted response as known ones.
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusAccepted, PasswordResetResponse{
				Message:   "If the account exists, instructions have been sent",
				RequestID: uuid.NewString(),
			})
			return
		}

		if respondRateLimited(c, err, "too many password reset requests") {
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to initiate password reset"})
		return
	}

	response := PasswordResetResponse{
		Message:           "If the account exists, instructions have been sent",
		RequestID:         uuid.NewString(),
		MaskedDestination: result.MaskedDestination,
	}

	expires := result.ExpiresAt
	response.ExpiresAt = &expires

	// SECURITY: Only expose the raw code in development mode
	if h.isDev {
		if code := strings.TrimSpace(result.Code); code != "" {
			response.DevCode = &code
		}
	}

	h.dispatchReset(c.Request.Context(), result)

	c.JSON(http.StatusAccepted, response)
}

// ConfirmReset godoc
// @Summary Complete a password reset
// @Description Finalizes the password reset using the emailed verification code.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Password reset confirm request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/confirm [post]
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	if h.reset == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "password reset handler not configured"})
		return
	}

	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid confirm reset request"})
		return
	}

	err := h.reset.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidOrExpiredCode, Status: http.StatusBadRequest, Message: "reset code invalid or expired"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet policy requirements"},
		}, http.StatusInternalServerError, "failed to confirm password reset")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

func (h *PasswordHandler) dispatchReset(ctx context.Context, result *usecase.ResetRequest) {
	if h.dispatcher == nil || result == nil {
		return
	}

	payload := PasswordResetNotification{
		Contact: result.MaskedDestination,
		Expires: result.ExpiresAt,
	}

	if h.isDev {
		payload.DevCode = strings.TrimSpace(result.Code)
	}

	_ = h.dispatcher.SendPasswordReset(ctx, payload)
}
