// Timer HTTP handlers.
//
// This file exposes the in-memory exercise timer:
//   - POST /api/timer/start        (begin a countdown for an exercise)
//   - GET  /api/timer/{id}         (snapshot)
//   - POST /api/timer/{id}/pause
//   - POST /api/timer/{id}/resume
//   - POST /api/timer/{id}/reset   (discard the session)
//
// Timer sessions live in process memory only; a restart forgets them.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/services"
	"github.com/mindwell/go-mindwell-backend/internal/timer"
)

// breathingCategory selects which exercises get the phase cycle attached.
const breathingCategory = "breathing"

// ExerciseGetter fetches a stored exercise; satisfied by
// services.ExerciseService.
type ExerciseGetter interface {
	Get(ctx context.Context, userID, id string) (*domain.Exercise, error)
}

// TimerHandlers groups the countdown endpoints.
type TimerHandlers struct {
	Manager   *timer.Manager
	Exercises ExerciseGetter
}

// NewTimerHandlers constructs TimerHandlers.
func NewTimerHandlers(manager *timer.Manager, exercises ExerciseGetter) *TimerHandlers {
	return &TimerHandlers{Manager: manager, Exercises: exercises}
}

// StartTimerRequest is the JSON payload for starting a countdown.
type StartTimerRequest struct {
	ExerciseID string `json:"exercise_id" binding:"required" example:"8c2a4f0e-3b1d-4f6a-9c7e-2d5b8a1f0c3d"`
}

// StartTimer godoc
// @ID          startTimer
// @Summary     Start an exercise countdown
// @Description Loads the exercise, seeds the countdown with its per-step timings, and begins ticking. Breathing exercises also run the inhale/hold/exhale/rest cycle.
// @Tags        Timer
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.StartTimerRequest  true  "Exercise to time"
// @Success     201 {object} timer.Snapshot
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/timer/start [post]
func (h *TimerHandlers) StartTimer(c *gin.Context) {
	var req StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exercise_id is required")
		return
	}
	if _, err := uuid.Parse(req.ExerciseID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exercise_id must be a UUID")
		return
	}

	uid := middleware.UserID(c)
	ex, err := h.Exercises.Get(c.Request.Context(), uid, req.ExerciseID)
	if err != nil {
		if errors.Is(err, services.ErrExerciseNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "exercise not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	stepSeconds := make([]int, len(ex.Steps))
	for i, step := range ex.Steps {
		stepSeconds[i] = step.Seconds
	}

	snap, err := h.Manager.Start(uid, ex.ID, stepSeconds, ex.Category == breathingCategory)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	ok(c, http.StatusCreated, snap)
}

// TimerStatus godoc
// @ID          timerStatus
// @Summary     Read a countdown snapshot
// @Tags        Timer
// @Produce     json
// @Param       id  path  string  true  "Timer session ID (UUID)"  format(uuid)
// @Success     200 {object} timer.Snapshot
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/timer/{id} [get]
func (h *TimerHandlers) TimerStatus(c *gin.Context) {
	snap, err := h.Manager.Status(c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.timerError(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// PauseTimer godoc
// @ID          pauseTimer
// @Summary     Pause a running countdown
// @Tags        Timer
// @Produce     json
// @Param       id  path  string  true  "Timer session ID (UUID)"  format(uuid)
// @Success     200 {object} timer.Snapshot
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     409 {object} handlers.ErrorResponse
// @Router      /api/timer/{id}/pause [post]
func (h *TimerHandlers) PauseTimer(c *gin.Context) {
	snap, err := h.Manager.Pause(c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.timerError(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ResumeTimer godoc
// @ID          resumeTimer
// @Summary     Resume a paused countdown
// @Tags        Timer
// @Produce     json
// @Param       id  path  string  true  "Timer session ID (UUID)"  format(uuid)
// @Success     200 {object} timer.Snapshot
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     409 {object} handlers.ErrorResponse
// @Router      /api/timer/{id}/resume [post]
func (h *TimerHandlers) ResumeTimer(c *gin.Context) {
	snap, err := h.Manager.Resume(c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.timerError(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ResetTimer godoc
// @ID          resetTimer
// @Summary     Discard a countdown session
// @Tags        Timer
// @Param       id  path  string  true  "Timer session ID (UUID)"  format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/timer/{id}/reset [post]
func (h *TimerHandlers) ResetTimer(c *gin.Context) {
	if err := h.Manager.Reset(c.Param("id"), middleware.UserID(c)); err != nil {
		h.timerError(c, err)
		return
	}
	noContent(c)
}

// timerError maps manager failures to HTTP responses: unknown sessions are
// 404s, disallowed transitions are 409s.
func (h *TimerHandlers) timerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, timer.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "timer session not found")
	case errors.Is(err, timer.ErrBadTransition):
		fail(c, http.StatusConflict, ErrCodeTimerConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
