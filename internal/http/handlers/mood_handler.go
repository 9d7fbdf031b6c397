// Mood HTTP handlers.
//
// This file exposes REST endpoints for mood tracking:
//   - POST   /api/moods                (record, Idempotency-Key aware)
//   - GET    /api/moods                (list, paginated, ETag support)
//   - GET    /api/moods/weekly-average (trailing-week aggregate)
//   - DELETE /api/moods/{id}           (remove)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/services"
	"github.com/mindwell/go-mindwell-backend/internal/utils"
)

// MoodRecorder defines the mood operations consumed by HTTP handlers.
type MoodRecorder interface {
	Record(ctx context.Context, userID string, in services.MoodInput) (*domain.MoodEntry, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.MoodEntry, int64, error)
	Delete(ctx context.Context, userID, id string) error
	WeeklyAverage(ctx context.Context, userID string) (float64, error)
}

// MoodHandlers groups the mood-tracking endpoints.
type MoodHandlers struct {
	Svc MoodRecorder
	// DB enables the ETag pre-check and idempotency records; optional.
	DB *gorm.DB
	// IdempotencyTTL bounds how long a recorded key blocks duplicates.
	IdempotencyTTL time.Duration
}

// NewMoodHandlers constructs MoodHandlers.
func NewMoodHandlers(svc MoodRecorder, db *gorm.DB, idemTTL time.Duration) *MoodHandlers {
	return &MoodHandlers{Svc: svc, DB: db, IdempotencyTTL: idemTTL}
}

// RecordMoodRequest is the JSON payload for recording a mood.
type RecordMoodRequest struct {
	Mood    string   `json:"mood" binding:"required" example:"calm"`
	Score   int      `json:"score" example:"4"`
	Note    string   `json:"note,omitempty"`
	Factors []string `json:"factors,omitempty"`
	Date    string   `json:"date,omitempty" example:"2026-08-27"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMoodsResponse wraps a page of mood entries.
type ListMoodsResponse struct {
	Entries    []domain.MoodEntry `json:"entries"`
	Pagination Pagination         `json:"pagination"`
}

// WeeklyAverageResponse is the trailing-week aggregate payload.
type WeeklyAverageResponse struct {
	Average float64 `json:"average"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func paginationMeta(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// RecordMood godoc
// @ID          recordMood
// @Summary     Record a mood entry
// @Description Persists a mood with score (clamped to 1-5), note, and contributing factors. Supports Idempotency-Key for safe retries.
// @Tags        Moods
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Client-chosen key for safe retries"
// @Param       body  body  handlers.RecordMoodRequest  true  "Mood payload"
// @Success     201 {object} domain.MoodEntry
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/moods [post]
func (h *MoodHandlers) RecordMood(c *gin.Context) {
	var req RecordMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	uid := middleware.UserID(c)

	// Replay: answer 200 with the previously created entry.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) && h.DB != nil {
		rec, err := repo.GetIdempotency(c.Request.Context(), h.DB, uid, middleware.IdempotencyScope(c), key, time.Now().UTC())
		if err == nil && rec.ResourceID != "" {
			if entry, gerr := repo.GetMoodEntry(c.Request.Context(), h.DB, rec.ResourceID, uid); gerr == nil {
				ok(c, http.StatusOK, entry)
				return
			}
		}
	}

	entry, err := h.Svc.Record(c.Request.Context(), uid, services.MoodInput{
		Mood:    req.Mood,
		Score:   req.Score,
		Note:    req.Note,
		Factors: req.Factors,
		Date:    date,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidMood) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && h.DB != nil {
		_, _ = repo.CreateIdempotency(c.Request.Context(), h.DB, uid,
			middleware.IdempotencyScope(c), key, entry.ID, http.StatusCreated, h.IdempotencyTTL)
	}

	ok(c, http.StatusCreated, entry)
}

// ListMoods godoc
// @ID          listMoods
// @Summary     List mood entries (paginated)
// @Description Returns a page of the user's mood entries, newest first. Supports weak ETag via If-None-Match.
// @Tags        Moods
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200 {object} handlers.ListMoodsResponse
// @Success     304 {string} string "Not Modified"
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/moods [get]
func (h *MoodHandlers) ListMoods(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	page, pageSize := clampPagination(c)

	if h.DB != nil {
		count, maxTS, err := repo.MoodStats(ctx, h.DB, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"moods:%s:%d:%d"`, uid, count, ts)
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
	ok(c, http.StatusOK, ListMoodsResponse{
		Entries:    items,
		Pagination: paginationMeta(page, pageSize, total),
	})
}

// WeeklyAverage godoc
// @ID          moodWeeklyAverage
// @Summary     Trailing-week mood average
// @Description Returns the arithmetic mean of the last seven days of scores, rounded to one decimal.
// @Tags        Moods
// @Produce     json
// @Success     200 {object} handlers.WeeklyAverageResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/moods/weekly-average [get]
func (h *MoodHandlers) WeeklyAverage(c *gin.Context) {
	avg, err := h.Svc.WeeklyAverage(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, WeeklyAverageResponse{Average: avg})
}

// DeleteMood godoc
// @ID          deleteMood
// @Summary     Delete a mood entry
// @Tags        Moods
// @Param       id  path  string  true  "Mood entry ID (UUID)"  format(uuid)
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/moods/{id} [delete]
func (h *MoodHandlers) DeleteMood(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mood entry id must be a UUID")
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		if errors.Is(err, services.ErrMoodEntryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "mood entry not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
