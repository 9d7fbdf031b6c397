package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(t *testing.T, lookup IdempotencyLookup) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyUserID, "u1") })
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/api/moods", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{
			"key":    key,
			"replay": IsReplay(c),
			"bypass": IsRateBypass(c),
			"scope":  IdempotencyScope(c),
		})
	})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/moods", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeaderPassesThrough(t *testing.T) {
	r := idemRouter(t, nil)
	w := postWithKey(r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"key":""`) {
		t.Fatalf("body = %s, want no key recorded", w.Body.String())
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	r := idemRouter(t, nil)
	for _, key := range []string{"has spaces", "emojié", strings.Repeat("a", 201)} {
		w := postWithKey(r, key)
		if w.Code != http.StatusBadRequest {
			t.Errorf("key %q: status = %d, want 400", key, w.Code)
		}
		if !jsonHasField(w.Body.String(), "code", "bad_idempotency_key") {
			t.Errorf("key %q: body = %s", key, w.Body.String())
		}
	}
}

func TestIdempotencyValidator_AcceptsTokenKeys(t *testing.T) {
	r := idemRouter(t, nil)
	for _, key := range []string{"abc123", "a.b-c_d~e:f", strings.Repeat("k", 200)} {
		if w := postWithKey(r, key); w.Code != http.StatusOK {
			t.Errorf("key %q: status = %d, want 200", key, w.Code)
		}
	}
}

func TestIdempotencyValidator_MarksReplay(t *testing.T) {
	var gotUser, gotScope, gotKey string
	lookup := func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		gotUser, gotScope, gotKey = userID, scope, key
		return true, nil
	}
	r := idemRouter(t, lookup)

	w := postWithKey(r, "retry-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"replay":true`) || !strings.Contains(body, `"bypass":true`) {
		t.Fatalf("body = %s, want replay and rate bypass set", body)
	}
	if gotUser != "u1" || gotKey != "retry-1" {
		t.Fatalf("lookup saw user=%q key=%q", gotUser, gotKey)
	}
	if gotScope != "POST /api/moods" {
		t.Fatalf("scope = %q, want method plus registered route", gotScope)
	}
}

func TestIdempotencyValidator_FreshKeyNotReplay(t *testing.T) {
	lookup := func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		return false, nil
	}
	r := idemRouter(t, lookup)

	w := postWithKey(r, "first-time")
	body := w.Body.String()
	if !strings.Contains(body, `"replay":false`) || !strings.Contains(body, `"bypass":false`) {
		t.Fatalf("body = %s, fresh key must not be a replay", body)
	}
}
