// Package middleware: session gate.
//
// Resolves the session cookie once per request, attaches the user identity to
// the Gin context, and enforces the page-level redirect rules: protected
// prefixes require a session, auth pages bounce signed-in users back to the
// dashboard. Recoverable resolution failures mean "not signed in" and are
// swallowed; anything else is logged and the gate fails open so a database
// hiccup never locks every user out.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/auth"
	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyUser   = "user"
)

// SessionResolver resolves a session cookie value to its user. Implemented by
// services.AuthService; faked in tests.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*domain.User, error)
}

// ResolverFunc adapts a plain function to SessionResolver.
type ResolverFunc func(ctx context.Context, sessionID string) (*domain.User, error)

// Resolve implements SessionResolver.
func (f ResolverFunc) Resolve(ctx context.Context, sessionID string) (*domain.User, error) {
	return f(ctx, sessionID)
}

// GateOptions configures the session gate.
type GateOptions struct {
	// CookieName is the session cookie to read.
	CookieName string
	// ProtectedPrefixes redirect unauthenticated requests to the login page.
	ProtectedPrefixes []string
	// AuthPrefixes redirect authenticated requests to the dashboard.
	AuthPrefixes []string
	// ExemptPaths are never redirected (e.g. the signout route).
	ExemptPaths []string
}

// DefaultGateOptions returns the product's routing policy.
func DefaultGateOptions(cookieName string) GateOptions {
	return GateOptions{
		CookieName: cookieName,
		ProtectedPrefixes: []string{
			"/dashboard", "/chat", "/mood", "/exercises",
			"/history", "/profile", "/settings",
		},
		AuthPrefixes: []string{"/auth/login", "/auth/signup"},
		ExemptPaths:  []string{"/auth/signout"},
	}
}

// SessionGate returns the gate middleware. Exactly one session lookup happens
// per request; a missing cookie skips the lookup entirely.
func SessionGate(resolver SessionResolver, opts GateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isStaticAsset(path) {
			c.Next()
			return
		}

		user, fatal := resolveOnce(c, resolver, opts.CookieName)
		if user != nil {
			c.Set(ctxKeyUserID, user.ID)
			c.Set(ctxKeyUser, user)
		}

		if isExempt(path, opts.ExemptPaths) {
			c.Next()
			return
		}

		switch {
		case user == nil && !fatal && hasPrefix(path, opts.ProtectedPrefixes):
			target := "/auth/login?redirectTo=" + url.QueryEscape(path)
			c.Redirect(http.StatusFound, target)
			c.Abort()
		case user != nil && hasPrefix(path, opts.AuthPrefixes):
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
		default:
			// fail open on fatal errors: the request proceeds unauthenticated
			c.Next()
		}
	}
}

// resolveOnce reads the cookie and performs at most one session lookup.
// It returns the resolved user (nil when unauthenticated) and whether the
// failure was fatal rather than a plain "not signed in".
func resolveOnce(c *gin.Context, resolver SessionResolver, cookieName string) (*domain.User, bool) {
	sessionID, err := c.Cookie(cookieName)
	if err != nil || sessionID == "" {
		return nil, false
	}

	user, err := resolver.Resolve(c.Request.Context(), sessionID)
	if err == nil {
		return user, false
	}
	if auth.IsRecoverable(err) {
		return nil, false
	}
	LoggerFrom(c).Error().Err(err).Msg("session resolution failed")
	return nil, true
}

// RequireUser guards API routes: requests without a resolved user get a 401
// with the standard error envelope instead of a redirect.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxKeyUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID from the Gin context.
func UserID(c *gin.Context) string {
	return userIDFromCtx(c)
}

// UserFrom returns the authenticated user from the Gin context, or nil.
func UserFrom(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxKeyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

var staticExtensions = []string{
	".css", ".js", ".map", ".ico", ".png", ".jpg", ".jpeg", ".gif",
	".svg", ".webp", ".woff", ".woff2", ".ttf", ".txt",
}

// isStaticAsset matches asset paths the gate skips entirely.
func isStaticAsset(path string) bool {
	if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/assets/") {
		return true
	}
	for _, ext := range staticExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func isExempt(path string, exempt []string) bool {
	for _, e := range exempt {
		if path == e {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
