// Audio settings HTTP handlers.
//
//   - GET /api/settings/audio (read, with defaults for new users)
//   - PUT /api/settings/audio (validate and upsert)
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

// AudioSettingsProvider defines the settings operations consumed by HTTP
// handlers.
type AudioSettingsProvider interface {
	AudioSettings(ctx context.Context, userID string) (*domain.AudioSettings, error)
	SaveAudioSettings(ctx context.Context, userID string, cuesEnabled bool, volume int, voice string) (*domain.AudioSettings, error)
}

// SettingsHandlers groups the audio-preference endpoints.
type SettingsHandlers struct {
	Svc AudioSettingsProvider
}

// NewSettingsHandlers constructs SettingsHandlers.
func NewSettingsHandlers(svc AudioSettingsProvider) *SettingsHandlers {
	return &SettingsHandlers{Svc: svc}
}

// SaveAudioSettingsRequest is the JSON payload for updating audio cues.
type SaveAudioSettingsRequest struct {
	CuesEnabled *bool  `json:"cues_enabled" binding:"required"`
	Volume      int    `json:"volume" example:"70"`
	Voice       string `json:"voice,omitempty" example:"calm"`
}

// GetAudioSettings godoc
// @ID          getAudioSettings
// @Summary     Read audio cue settings
// @Description Returns the user's audio preferences, or the defaults (cues on, volume 70, calm voice) when nothing has been saved.
// @Tags        Settings
// @Produce     json
// @Success     200 {object} domain.AudioSettings
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/settings/audio [get]
func (h *SettingsHandlers) GetAudioSettings(c *gin.Context) {
	settings, err := h.Svc.AudioSettings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, settings)
}

// SaveAudioSettings godoc
// @ID          saveAudioSettings
// @Summary     Update audio cue settings
// @Description Validates the volume range (0-100) and voice, then upserts the preference row.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SaveAudioSettingsRequest  true  "Audio preferences"
// @Success     200 {object} domain.AudioSettings
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/settings/audio [put]
func (h *SettingsHandlers) SaveAudioSettings(c *gin.Context) {
	var req SaveAudioSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cues_enabled is required")
		return
	}

	settings, err := h.Svc.SaveAudioSettings(c.Request.Context(), middleware.UserID(c), *req.CuesEnabled, req.Volume, req.Voice)
	if err != nil {
		if errors.Is(err, services.ErrInvalidVolume) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, settings)
}
