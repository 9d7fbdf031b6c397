package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

func moodRouter(t *testing.T, db *gorm.DB, userID string) *gin.Engine {
	t.Helper()
	h := NewMoodHandlers(services.NewMoodService(db), db, time.Hour)

	r := newTestRouter()
	r.Use(asUser(userID))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, uid, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, uid, scope, key, now)
			return err == nil && rec != nil, nil
		}))
	r.POST("/api/moods", h.RecordMood)
	r.GET("/api/moods", h.ListMoods)
	r.GET("/api/moods/weekly-average", h.WeeklyAverage)
	r.DELETE("/api/moods/:id", h.DeleteMood)
	return r
}

func TestRecordMood(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	w := doJSON(t, r, http.MethodPost, "/api/moods",
		`{"mood":"calm","score":4,"note":"slept well","factors":["sleep"],"date":"2026-08-27"}`, nil)
	wantStatus(t, w, http.StatusCreated)

	var entry domain.MoodEntry
	decodeJSON(t, w, &entry)
	if entry.Mood != "calm" || entry.Score != 4 {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.ID == "" {
		t.Fatal("entry has no id")
	}
}

func TestRecordMood_Validation(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	w := doJSON(t, r, http.MethodPost, "/api/moods", `{"score":3}`, nil)
	wantStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"calm","date":"27/08/2026"}`, nil)
	wantStatus(t, w, http.StatusBadRequest)
	var er ErrorResponse
	decodeJSON(t, w, &er)
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestRecordMood_IdempotentReplay(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "retry-42"}

	first := doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"tense","score":2}`, hdr)
	wantStatus(t, first, http.StatusCreated)
	var created domain.MoodEntry
	decodeJSON(t, first, &created)

	// the retry answers 200 with the original entry, no second row
	second := doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"tense","score":2}`, hdr)
	wantStatus(t, second, http.StatusOK)
	var replayed domain.MoodEntry
	decodeJSON(t, second, &replayed)
	if replayed.ID != created.ID {
		t.Fatalf("replay returned %q, want original %q", replayed.ID, created.ID)
	}

	n, err := repo.CountMoodEntries(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
}

func TestListMoods_ETag(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	w := doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"calm","score":4}`, nil)
	wantStatus(t, w, http.StatusCreated)

	list := doJSON(t, r, http.MethodGet, "/api/moods", "", nil)
	wantStatus(t, list, http.StatusOK)
	etag := list.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on list response")
	}

	cached := doJSON(t, r, http.MethodGet, "/api/moods", "", map[string]string{"If-None-Match": etag})
	wantStatus(t, cached, http.StatusNotModified)

	// a new entry invalidates the tag
	w = doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"tired","score":2}`, nil)
	wantStatus(t, w, http.StatusCreated)
	fresh := doJSON(t, r, http.MethodGet, "/api/moods", "", map[string]string{"If-None-Match": etag})
	wantStatus(t, fresh, http.StatusOK)
}

func TestListMoods_Pagination(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	for i := 0; i < 5; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"calm","score":3}`, nil)
		wantStatus(t, w, http.StatusCreated)
	}

	w := doJSON(t, r, http.MethodGet, "/api/moods?page=2&page_size=2", "", nil)
	wantStatus(t, w, http.StatusOK)
	var resp ListMoodsResponse
	decodeJSON(t, w, &resp)
	if resp.Pagination.Total != 5 || len(resp.Entries) != 2 {
		t.Fatalf("total=%d entries=%d", resp.Pagination.Total, len(resp.Entries))
	}
	if !resp.Pagination.HasNext || resp.Pagination.TotalPages != 3 {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}
}

func TestWeeklyAverageEndpoint(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	for _, body := range []string{`{"mood":"calm","score":4}`, `{"mood":"okay","score":3}`} {
		w := doJSON(t, r, http.MethodPost, "/api/moods", body, nil)
		wantStatus(t, w, http.StatusCreated)
	}

	w := doJSON(t, r, http.MethodGet, "/api/moods/weekly-average", "", nil)
	wantStatus(t, w, http.StatusOK)
	var resp WeeklyAverageResponse
	decodeJSON(t, w, &resp)
	if resp.Average != 3.5 {
		t.Fatalf("average = %v, want 3.5", resp.Average)
	}
}

func TestDeleteMood(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	r := moodRouter(t, db, u.ID)

	w := doJSON(t, r, http.MethodPost, "/api/moods", `{"mood":"calm","score":3}`, nil)
	wantStatus(t, w, http.StatusCreated)
	var entry domain.MoodEntry
	decodeJSON(t, w, &entry)

	wantStatus(t, doJSON(t, r, http.MethodDelete, "/api/moods/"+entry.ID, "", nil), http.StatusNoContent)
	wantStatus(t, doJSON(t, r, http.MethodDelete, "/api/moods/"+entry.ID, "", nil), http.StatusNotFound)
	wantStatus(t, doJSON(t, r, http.MethodDelete, "/api/moods/not-a-uuid", "", nil), http.StatusBadRequest)
}
