// Profile HTTP handlers.
//
//   - GET /api/profile (current user)
//   - PUT /api/profile (update display name)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

// ProfileProvider defines the profile operations consumed by HTTP handlers.
type ProfileProvider interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateDisplayName(ctx context.Context, userID, name string) (*domain.User, error)
}

// ProfileHandlers groups the profile endpoints.
type ProfileHandlers struct {
	Svc ProfileProvider
}

// NewProfileHandlers constructs ProfileHandlers.
func NewProfileHandlers(svc ProfileProvider) *ProfileHandlers {
	return &ProfileHandlers{Svc: svc}
}

// UpdateProfileRequest is the JSON payload for profile updates.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required" example:"Alex"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Read the current user's profile
// @Tags        Profile
// @Produce     json
// @Success     200 {object} domain.User
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/profile [get]
func (h *ProfileHandlers) GetProfile(c *gin.Context) {
	user, err := h.Svc.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, user)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the display name
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.UpdateProfileRequest  true  "New display name"
// @Success     200 {object} domain.User
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/profile [put]
func (h *ProfileHandlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name is required")
		return
	}

	user, err := h.Svc.UpdateDisplayName(c.Request.Context(), middleware.UserID(c), req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyDisplayName):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, user)
}
