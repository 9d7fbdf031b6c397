// Exercise HTTP handlers.
//
// This file exposes REST endpoints for the exercise library:
//   - POST   /api/exercises/generate      (LLM-backed generation)
//   - GET    /api/exercises               (list, paginated, ETag support)
//   - GET    /api/exercises/search        (keyword search)
//   - GET    /api/exercises/{id}          (fetch)
//   - POST   /api/exercises/{id}/complete (idempotent completion)
//   - DELETE /api/exercises/{id}          (remove)
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

// ExerciseProvider defines the exercise operations consumed by HTTP handlers.
type ExerciseProvider interface {
	Generate(ctx context.Context, userID string, in services.GenerateInput) (*domain.Exercise, error)
	Get(ctx context.Context, userID, id string) (*domain.Exercise, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Exercise, int64, error)
	Search(ctx context.Context, userID, query string, k int) ([]domain.Exercise, error)
	Delete(ctx context.Context, userID, id string) error
	Complete(ctx context.Context, userID, exerciseID string) (already bool, err error)
	CompletedIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// ExerciseHandlers groups the exercise-library endpoints.
type ExerciseHandlers struct {
	Svc ExerciseProvider
	// DB enables the ETag pre-check; optional.
	DB *gorm.DB
}

// NewExerciseHandlers constructs ExerciseHandlers.
func NewExerciseHandlers(svc ExerciseProvider, db *gorm.DB) *ExerciseHandlers {
	return &ExerciseHandlers{Svc: svc, DB: db}
}

// GenerateExerciseRequest is the JSON payload for exercise generation.
type GenerateExerciseRequest struct {
	Category   string `json:"category" example:"breathing"`
	Duration   int    `json:"duration" binding:"required" example:"10"`
	Difficulty string `json:"difficulty,omitempty" example:"beginner"`
	Focus      string `json:"focus,omitempty" example:"letting go of work stress"`
}

// ExerciseView decorates an exercise with its completion flag.
type ExerciseView struct {
	domain.Exercise
	Completed bool `json:"completed"`
}

// ListExercisesResponse wraps a page of exercises.
type ListExercisesResponse struct {
	Exercises  []ExerciseView `json:"exercises"`
	Pagination Pagination     `json:"pagination"`
}

// CompleteExerciseResponse reports an (idempotent) completion.
type CompleteExerciseResponse struct {
	Completed        bool `json:"completed"`
	AlreadyCompleted bool `json:"already_completed"`
}

// GenerateExercise godoc
// @ID          generateExercise
// @Summary     Generate a mindfulness exercise
// @Description Prompts the LLM for a structured exercise, validates the schema (falling back to a plain-text parse), derives per-step timings, and persists the result.
// @Tags        Exercises
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.GenerateExerciseRequest  true  "Generation parameters"
// @Success     201 {object} domain.Exercise
// @Failure     400 {object} handlers.ProxyError
// @Failure     500 {object} handlers.ProxyError
// @Router      /api/exercises/generate [post]
func (h *ExerciseHandlers) GenerateExercise(c *gin.Context) {
	var req GenerateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		proxyFail(c, http.StatusBadRequest, "Duration is required", "")
		return
	}

	ex, err := h.Svc.Generate(c.Request.Context(), middleware.UserID(c), services.GenerateInput{
		Category:    req.Category,
		DurationMin: req.Duration,
		Difficulty:  req.Difficulty,
		Focus:       req.Focus,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDuration):
			proxyFail(c, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, llm.ErrNoAPIKey):
			proxyFail(c, http.StatusInternalServerError, llm.ErrNoAPIKey.Error(), "")
		default:
			status, details := upstreamStatus(err)
			proxyFail(c, status, "Failed to generate exercise", details)
		}
		return
	}
	ok(c, http.StatusCreated, ex)
}

// ListExercises godoc
// @ID          listExercises
// @Summary     List exercises (paginated)
// @Description Returns a page of the user's exercises ordered by title, each flagged with completion state. Supports weak ETag via If-None-Match.
// @Tags        Exercises
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200 {object} handlers.ListExercisesResponse
// @Success     304 {string} string "Not Modified"
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/exercises [get]
func (h *ExerciseHandlers) ListExercises(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	page, pageSize := clampPagination(c)

	if h.DB != nil {
		count, maxTS, err := repo.ExerciseStats(ctx, h.DB, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"exercises:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.Svc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	completed, err := h.Svc.CompletedIDs(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	views := make([]ExerciseView, len(items))
	for i, ex := range items {
		views[i] = ExerciseView{Exercise: ex, Completed: completed[ex.ID]}
	}
	ok(c, http.StatusOK, ListExercisesResponse{
		Exercises:  views,
		Pagination: paginationMeta(page, pageSize, total),
	})
}

// SearchExercises godoc
// @ID          searchExercises
// @Summary     Search exercises
// @Description Ranks the user's exercises against a keyword query.
// @Tags        Exercises
// @Produce     json
// @Param       q  query  string  true  "Keyword query"
// @Success     200 {array} domain.Exercise
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /api/exercises/search [get]
func (h *ExerciseHandlers) SearchExercises(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}

	results, err := h.Svc.Search(c.Request.Context(), middleware.UserID(c), q, 10)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, results)
}

// GetExercise godoc
// @ID          getExercise
// @Summary     Fetch an exercise
// @Tags        Exercises
// @Produce     json
// @Param       id  path  string  true  "Exercise ID (UUID)"  format(uuid)
// @Success     200 {object} domain.Exercise
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/exercises/{id} [get]
func (h *ExerciseHandlers) GetExercise(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exercise id must be a UUID")
		return
	}

	ex, err := h.Svc.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrExerciseNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "exercise not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ex)
}

// CompleteExercise godoc
// @ID          completeExercise
// @Summary     Mark an exercise complete
// @Description Records a completion; repeating the call is a no-op that reports already_completed.
// @Tags        Exercises
// @Produce     json
// @Param       id  path  string  true  "Exercise ID (UUID)"  format(uuid)
// @Success     200 {object} handlers.CompleteExerciseResponse
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/exercises/{id}/complete [post]
func (h *ExerciseHandlers) CompleteExercise(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exercise id must be a UUID")
		return
	}

	already, err := h.Svc.Complete(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrExerciseNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "exercise not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CompleteExerciseResponse{Completed: true, AlreadyCompleted: already})
}

// DeleteExercise godoc
// @ID          deleteExercise
// @Summary     Delete an exercise
// @Tags        Exercises
// @Param       id  path  string  true  "Exercise ID (UUID)"  format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/exercises/{id} [delete]
func (h *ExerciseHandlers) DeleteExercise(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exercise id must be a UUID")
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		if errors.Is(err, services.ErrExerciseNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "exercise not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
