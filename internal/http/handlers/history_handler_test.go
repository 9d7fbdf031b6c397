package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

func historyRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	u := seedUser(t, db)

	moods := services.NewMoodService(db)
	h := NewHistoryHandlers(services.NewHistoryService(db, moods))
	r := newTestRouter()
	r.Use(asUser(u.ID))
	r.POST("/api/history", h.LogSession)
	r.GET("/api/history", h.ListHistory)
	r.GET("/api/dashboard/summary", h.DashboardSummary)
	return r, db
}

func TestLogSession(t *testing.T) {
	r, _ := historyRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/history", `{"type":"meditation","duration":15,"notes":"evening sit"}`, nil)
	wantStatus(t, w, http.StatusCreated)
	var session domain.MindfulnessSession
	decodeJSON(t, w, &session)
	if session.Type != "meditation" || session.DurationMin != 15 {
		t.Fatalf("session = %+v", session)
	}

	wantStatus(t, doJSON(t, r, http.MethodPost, "/api/history", `{"duration":5}`, nil), http.StatusBadRequest)
	wantStatus(t, doJSON(t, r, http.MethodPost, "/api/history", `{"type":"meditation","duration":-1}`, nil), http.StatusBadRequest)
}

func TestListHistoryAndSummary(t *testing.T) {
	r, _ := historyRouter(t)

	for _, body := range []string{
		`{"type":"breathing","duration":5}`,
		`{"type":"meditation","duration":10}`,
		`{"type":"chat","duration":0}`,
	} {
		wantStatus(t, doJSON(t, r, http.MethodPost, "/api/history", body, nil), http.StatusCreated)
	}

	w := doJSON(t, r, http.MethodGet, "/api/history?page=1&page_size=2", "", nil)
	wantStatus(t, w, http.StatusOK)
	var page HistoryResponse
	decodeJSON(t, w, &page)
	if len(page.Sessions) != 2 || page.Pagination.Total != 3 || !page.Pagination.HasNext {
		t.Fatalf("page = %+v", page.Pagination)
	}

	w = doJSON(t, r, http.MethodGet, "/api/dashboard/summary", "", nil)
	wantStatus(t, w, http.StatusOK)
	var summary services.Summary
	decodeJSON(t, w, &summary)
	if summary.TotalSessions != 3 || summary.MinutesPracticed != 15 {
		t.Fatalf("summary = %+v", summary)
	}
}
