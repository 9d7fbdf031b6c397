package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/auth"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

type fakeIdentity struct {
	exchangeErr error
}

func (fakeIdentity) LoginURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}
func (fakeIdentity) LogoutURL(string) string { return "https://idp.test/logout" }
func (f fakeIdentity) Exchange(context.Context, string) (*auth.Profile, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &auth.Profile{Subject: "auth0|handler", Email: "handler@example.com", Name: "Handler Test"}, nil
}

func authFixture(t *testing.T, provider auth.IdentityProvider) (*gin.Engine, *services.AuthService) {
	t.Helper()
	db := newTestDB(t)

	svc := services.NewAuthService(db, provider, time.Hour)
	h := NewAuthHandlers(svc, "mw_session", false, time.Hour)
	r := newTestRouter()
	r.GET("/auth/login", h.Login)
	r.GET("/auth/callback", h.Callback)
	r.POST("/auth/signout", h.Signout)
	return r, svc
}

func cookieValue(w *httptest.ResponseRecorder, name string) (string, bool) {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

func TestAuthLogin(t *testing.T) {
	r, _ := authFixture(t, fakeIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirectTo=/moods", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	state, ok := cookieValue(w, "mw_oauth_state")
	if !ok || state == "" {
		t.Fatal("state cookie not set")
	}
	// gin query-escapes cookie values on write
	if dest, ok := cookieValue(w, "mw_redirect_to"); !ok || dest != url.QueryEscape("/moods") {
		t.Fatalf("redirect cookie = %q, %v", dest, ok)
	}
	if loc := w.Header().Get("Location"); loc != "https://idp.test/authorize?state="+state {
		t.Fatalf("location = %q", loc)
	}
}

func TestAuthLogin_RejectsExternalRedirect(t *testing.T) {
	r, _ := authFixture(t, fakeIdentity{})

	for _, dest := range []string{"https://evil.test/", "//evil.test/x", "relative"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/login?redirectTo="+dest, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if _, ok := cookieValue(w, "mw_redirect_to"); ok {
			t.Errorf("redirect cookie set for %q", dest)
		}
	}
}

func TestAuthCallback(t *testing.T) {
	r, svc := authFixture(t, fakeIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "mw_oauth_state", Value: "xyz"})
	req.AddCookie(&http.Cookie{Name: "mw_redirect_to", Value: "/moods"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/moods" {
		t.Fatalf("location = %q", loc)
	}
	sessionID, ok := cookieValue(w, "mw_session")
	if !ok || sessionID == "" {
		t.Fatal("session cookie not set")
	}
	user, err := svc.Resolve(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("resolve issued session: %v", err)
	}
	if user.Email != "handler@example.com" {
		t.Fatalf("user = %+v", user)
	}
}

func TestAuthCallback_StateMismatch(t *testing.T) {
	r, _ := authFixture(t, fakeIdentity{})

	cases := []struct {
		name   string
		query  string
		cookie string
	}{
		{"missing code", "state=xyz", "xyz"},
		{"missing state", "code=abc", "xyz"},
		{"no state cookie", "code=abc&state=xyz", ""},
		{"mismatch", "code=abc&state=xyz", "other"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+c.query, nil)
			if c.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "mw_oauth_state", Value: c.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if loc := w.Header().Get("Location"); loc != "/auth/error" {
				t.Fatalf("location = %q", loc)
			}
			if _, ok := cookieValue(w, "mw_session"); ok {
				t.Fatal("session cookie issued on invalid state")
			}
		})
	}
}

func TestAuthCallback_ExchangeFails(t *testing.T) {
	r, _ := authFixture(t, fakeIdentity{exchangeErr: errors.New("idp down")})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "mw_oauth_state", Value: "xyz"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if loc := w.Header().Get("Location"); loc != "/auth/error" {
		t.Fatalf("location = %q", loc)
	}
}

func TestAuthSignout(t *testing.T) {
	r, svc := authFixture(t, fakeIdentity{})

	_, sessionID, err := svc.HandleCallback(context.Background(), "code")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "mw_session", Value: sessionID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if _, err := svc.Resolve(context.Background(), sessionID); err == nil {
		t.Fatal("session survived signout")
	}

	// signing out without a cookie still redirects home
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/signout", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSanitizeRedirect(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{" /moods ", "/moods"},
		{"", ""},
		{"relative", ""},
		{"//evil.test/x", ""},
		{"https://evil.test/", ""},
	}
	for _, c := range cases {
		if got := sanitizeRedirect(c.in); got != c.want {
			t.Errorf("sanitizeRedirect(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
