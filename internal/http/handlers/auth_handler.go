// Auth HTTP handlers.
//
// This file exposes the browser-facing OAuth flow:
//   - GET  /auth/login         (redirect to the identity provider)
//   - GET  /auth/callback      (code exchange, session issue)
//   - GET  /api/auth/callback  (same flow, API-prefixed callback URL)
//   - POST /auth/signout       (session teardown)
//
// Handlers are transport-thin: they manage cookies and redirects, and
// delegate the exchange/upsert/session work to services.AuthService.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

const (
	stateCookie    = "mw_oauth_state"
	redirectCookie = "mw_redirect_to"
	// stateTTL bounds how long a login attempt may take.
	stateTTL = 10 * time.Minute
)

// AuthHandlers groups the sign-in/sign-out endpoints.
type AuthHandlers struct {
	Auth         *services.AuthService
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
}

// NewAuthHandlers constructs AuthHandlers.
func NewAuthHandlers(auth *services.AuthService, cookieName string, cookieSecure bool, sessionTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		Auth:         auth,
		CookieName:   cookieName,
		CookieSecure: cookieSecure,
		SessionTTL:   sessionTTL,
	}
}

// Login godoc
// @ID          authLogin
// @Summary     Start the sign-in flow
// @Description Stores CSRF state and the post-login destination, then redirects to the identity provider.
// @Tags        Auth
// @Param       redirectTo  query  string  false  "Path to return to after sign-in"
// @Success     302 {string} string "Found"
// @Router      /auth/login [get]
func (h *AuthHandlers) Login(c *gin.Context) {
	state, err := services.NewState()
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not start sign-in")
		return
	}

	c.SetCookie(stateCookie, state, int(stateTTL.Seconds()), "/", "", h.CookieSecure, true)
	if dest := sanitizeRedirect(c.Query("redirectTo")); dest != "" {
		c.SetCookie(redirectCookie, dest, int(stateTTL.Seconds()), "/", "", h.CookieSecure, true)
	}

	c.Redirect(http.StatusFound, h.Auth.LoginURL(state))
}

// Callback godoc
// @ID          authCallback
// @Summary     Complete the sign-in flow
// @Description Validates state, exchanges the authorization code, issues the session cookie, and redirects to the stored destination.
// @Tags        Auth
// @Param       code   query  string  true  "Authorization code"
// @Param       state  query  string  true  "CSRF state"
// @Success     302 {string} string "Found"
// @Router      /auth/callback [get]
func (h *AuthHandlers) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	storedState, _ := c.Cookie(stateCookie)
	h.clearCookie(c, stateCookie)

	if code == "" || state == "" || storedState == "" || state != storedState {
		middleware.LoggerFrom(c).Warn().Msg("oauth callback with invalid state")
		c.Redirect(http.StatusFound, "/auth/error")
		return
	}

	_, sessionID, err := h.Auth.HandleCallback(c.Request.Context(), code)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("oauth callback failed")
		c.Redirect(http.StatusFound, "/auth/error")
		return
	}

	c.SetCookie(h.CookieName, sessionID, int(h.SessionTTL.Seconds()), "/", "", h.CookieSecure, true)

	dest := "/dashboard"
	if v, err := c.Cookie(redirectCookie); err == nil {
		if s := sanitizeRedirect(v); s != "" {
			dest = s
		}
	}
	h.clearCookie(c, redirectCookie)

	c.Redirect(http.StatusFound, dest)
}

// Signout godoc
// @ID          authSignout
// @Summary     Sign out
// @Description Deletes the server-side session, clears the cookie, and redirects home.
// @Tags        Auth
// @Success     302 {string} string "Found"
// @Router      /auth/signout [post]
func (h *AuthHandlers) Signout(c *gin.Context) {
	if sessionID, err := c.Cookie(h.CookieName); err == nil && sessionID != "" {
		if err := h.Auth.Signout(c.Request.Context(), sessionID); err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("session delete failed")
		}
	}
	h.clearCookie(c, h.CookieName)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandlers) clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", h.CookieSecure, true)
}

// sanitizeRedirect allows only same-site absolute paths, rejecting external
// URLs and protocol-relative tricks.
func sanitizeRedirect(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" || !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") {
		return ""
	}
	return dest
}
