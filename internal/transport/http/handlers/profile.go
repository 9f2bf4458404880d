package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/transport/http/middleware"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/usecase"
)

// ProfileHandler exposes endpoints for the authenticated account's profile.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes binds the profile routes. The group is expected to carry
// the auth middleware already.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.getProfile)
	r.PUT("", h.updateProfile)
	r.PUT("/picture", h.updatePicture)
}

// GetProfile godoc
// @Summary Fetch the authenticated account's profile
// @Tags Profile
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profile [get]
func (h *ProfileHandler) getProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: newAccountPayload(profile)})
}

// UpdateProfile godoc
// @Summary Update the authenticated account's profile
// @Description Updates the display name and optionally the password. Password changes are refused until the cooldown since the previous change elapses.
// @Tags Profile
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ProfileUpdateRequest true "Profile update payload"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/profile [put]
func (h *ProfileHandler) updateProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), accountID, usecase.UpdateProfileInput{
		Name:            req.Name,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordChangeCooldown, Status: http.StatusTooManyRequests, Message: "password was changed recently"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet policy requirements"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: newAccountPayload(profile)})
}

// UpdatePicture godoc
// @Summary Update the authenticated account's profile picture
// @Tags Profile
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ProfilePictureRequest true "Profile picture payload"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profile/picture [put]
func (h *ProfileHandler) updatePicture(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ProfilePictureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile picture payload"))
		return
	}

	profile, err := h.profiles.UpdateProfilePicture(c.Request.Context(), accountID, req.PictureURL)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to update profile picture")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: newAccountPayload(profile)})
}
