package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/auth"
	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

const testCookie = "mw_session"

type countingResolver struct {
	user  *domain.User
	err   error
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, sessionID string) (*domain.User, error) {
	r.calls++
	return r.user, r.err
}

func gateRouter(t *testing.T, resolver SessionResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionGate(resolver, DefaultGateOptions(testCookie)))
	for _, p := range []string{"/", "/dashboard", "/auth/login", "/auth/signout", "/static/app.css"} {
		r.GET(p, func(c *gin.Context) {
			c.String(http.StatusOK, userIDFromCtx(c))
		})
	}
	return r
}

func doGet(r *gin.Engine, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionGate_ProtectedRedirectsToLogin(t *testing.T) {
	resolver := &countingResolver{}
	r := gateRouter(t, resolver)

	w := doGet(r, "/dashboard", "")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login?redirectTo=%2Fdashboard" {
		t.Fatalf("location = %q", loc)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver calls = %d, missing cookie must skip the lookup", resolver.calls)
	}
}

func TestSessionGate_AuthPageBouncesSignedInUser(t *testing.T) {
	resolver := &countingResolver{user: &domain.User{ID: "u1"}}
	r := gateRouter(t, resolver)

	w := doGet(r, "/auth/login", "sess-1")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("location = %q", loc)
	}
}

func TestSessionGate_SignoutExempt(t *testing.T) {
	resolver := &countingResolver{user: &domain.User{ID: "u1"}}
	r := gateRouter(t, resolver)

	// signed in, but the signout path must never bounce to the dashboard
	w := doGet(r, "/auth/signout", "sess-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestSessionGate_RecoverableMeansSignedOut(t *testing.T) {
	resolver := &countingResolver{err: auth.RecoverableErr(errors.New("expired"))}
	r := gateRouter(t, resolver)

	w := doGet(r, "/dashboard", "stale-cookie")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect to login", w.Code)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls)
	}
}

func TestSessionGate_FatalFailsOpen(t *testing.T) {
	resolver := &countingResolver{err: auth.FatalErr(errors.New("db down"))}
	r := gateRouter(t, resolver)

	// a database outage must not lock every user out of protected pages
	w := doGet(r, "/dashboard", "sess-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want fail-open 200", w.Code)
	}
	if w.Body.String() != "" {
		t.Fatalf("fail-open request carried identity %q", w.Body.String())
	}
}

func TestSessionGate_SingleLookupPerRequest(t *testing.T) {
	resolver := &countingResolver{user: &domain.User{ID: "u1"}}
	r := gateRouter(t, resolver)

	w := doGet(r, "/dashboard", "sess-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "u1" {
		t.Fatalf("handler saw user %q, want u1", w.Body.String())
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want exactly 1", resolver.calls)
	}
}

func TestSessionGate_StaticAssetsSkipped(t *testing.T) {
	resolver := &countingResolver{user: &domain.User{ID: "u1"}}
	r := gateRouter(t, resolver)

	w := doGet(r, "/static/app.css", "sess-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver calls = %d, assets must skip the lookup", resolver.calls)
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", RequireUser())
	api.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := w.Body.String(); body == "" || !jsonHasField(body, "code", "unauthorized") {
		t.Fatalf("body = %s, want standard envelope", body)
	}

	// with identity attached upstream the guard passes
	r2 := gin.New()
	r2.Use(func(c *gin.Context) { c.Set(ctxKeyUserID, "u1") })
	r2.GET("/api/me", RequireUser(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w2.Code)
	}
}

func TestIsStaticAsset(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/static/app.js", true},
		{"/assets/logo.svg", true},
		{"/favicon.ico", true},
		{"/dashboard", false},
		{"/api/moods", false},
	}
	for _, c := range cases {
		if got := isStaticAsset(c.path); got != c.want {
			t.Errorf("isStaticAsset(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
