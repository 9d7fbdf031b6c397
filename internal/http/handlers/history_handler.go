// History and dashboard HTTP handlers.
//
// This file exposes:
//   - GET  /api/history            (practice history, paginated)
//   - POST /api/history            (log a practice session)
//   - GET  /api/dashboard/summary  (aggregate counters for the dashboard)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

// HistoryProvider defines the history operations consumed by HTTP handlers.
type HistoryProvider interface {
	Log(ctx context.Context, userID, kind string, durationMin int, notes string) (*domain.MindfulnessSession, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.MindfulnessSession, int64, error)
	Summarize(ctx context.Context, userID string) (*services.Summary, error)
}

// HistoryHandlers groups the history and dashboard endpoints.
type HistoryHandlers struct {
	Svc HistoryProvider
}

// NewHistoryHandlers constructs HistoryHandlers.
func NewHistoryHandlers(svc HistoryProvider) *HistoryHandlers {
	return &HistoryHandlers{Svc: svc}
}

// LogSessionRequest is the JSON payload for logging a practice session.
type LogSessionRequest struct {
	Type     string `json:"type" binding:"required" example:"meditation"`
	Duration int    `json:"duration" example:"10"`
	Notes    string `json:"notes,omitempty"`
}

// HistoryResponse wraps a page of practice-history rows.
type HistoryResponse struct {
	Sessions   []domain.MindfulnessSession `json:"sessions"`
	Pagination Pagination                  `json:"pagination"`
}

// LogSession godoc
// @ID          logSession
// @Summary     Log a practice session
// @Tags        History
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LogSessionRequest  true  "Session details"
// @Success     201 {object} domain.MindfulnessSession
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/history [post]
func (h *HistoryHandlers) LogSession(c *gin.Context) {
	var req LogSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type is required")
		return
	}
	if req.Duration < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "duration must not be negative")
		return
	}

	session, err := h.Svc.Log(c.Request.Context(), middleware.UserID(c), req.Type, req.Duration, req.Notes)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, session)
}

// ListHistory godoc
// @ID          listHistory
// @Summary     List practice history (paginated)
// @Tags        History
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200 {object} handlers.HistoryResponse
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/history [get]
func (h *HistoryHandlers) ListHistory(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.Svc.ListPage(c.Request.Context(), middleware.UserID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, HistoryResponse{
		Sessions:   items,
		Pagination: paginationMeta(page, pageSize, total),
	})
}

// DashboardSummary godoc
// @ID          dashboardSummary
// @Summary     Dashboard summary
// @Description Returns total sessions, minutes practiced, completed exercises, mood entry count, the trailing-week mood average, and the five most recent sessions.
// @Tags        History
// @Produce     json
// @Success     200 {object} services.Summary
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/dashboard/summary [get]
func (h *HistoryHandlers) DashboardSummary(c *gin.Context) {
	summary, err := h.Svc.Summarize(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, summary)
}
