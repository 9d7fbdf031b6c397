// Package services: AuthService.
//
// This file implements the server side of the sign-in flow and session
// resolution. A session is a single row in SQLite referenced by an opaque
// cookie value; its expiry is written once at sign-in or refresh, never
// slid forward per request. Resolution failures are classified with
// auth.SessionError so the session gate can distinguish "not signed in"
// from "something is broken".
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/auth"
	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

// sessionIDBytes is the entropy of a session identifier (hex-encoded to 64).
const sessionIDBytes = 32

// AuthService owns sign-in, sign-out, and per-request session resolution.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider is the external OAuth identity provider.
	Provider auth.IdentityProvider

	// SessionTTL is the lifetime written at sign-in and refresh.
	SessionTTL time.Duration
	// RefreshWindow is how close to expiry a resolved session must be
	// before a single refresh attempt is made.
	RefreshWindow time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewAuthService constructs an AuthService with a 30-day session lifetime
// and a refresh attempt inside the final quarter of that lifetime.
func NewAuthService(db *gorm.DB, provider auth.IdentityProvider, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &AuthService{
		DB:            db,
		Provider:      provider,
		SessionTTL:    ttl,
		RefreshWindow: ttl / 4,
		Now:           time.Now,
	}
}

// LoginURL returns the provider authorization URL carrying state.
func (s *AuthService) LoginURL(state string) string {
	return s.Provider.LoginURL(state)
}

// LogoutURL returns the provider logout URL returning to returnTo.
func (s *AuthService) LogoutURL(returnTo string) string {
	return s.Provider.LogoutURL(returnTo)
}

// HandleCallback completes the OAuth flow: exchanges the authorization code,
// upserts the user, and creates a session row. The returned session ID is the
// value the handler writes into the cookie.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (*domain.User, string, error) {
	profile, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oauth exchange: %w", err)
	}

	user, err := repo.UpsertUser(ctx, s.DB, profile.Subject, profile.Email, profile.Name)
	if err != nil {
		return nil, "", fmt.Errorf("upsert user: %w", err)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, "", err
	}
	expires := s.Now().UTC().Add(s.SessionTTL)
	if _, err := repo.CreateSession(ctx, s.DB, id, user.ID, expires); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	return user, id, nil
}

// Resolve looks up the session row for a cookie value and returns its user.
//
// Error classification:
//   - empty or malformed cookie value: Recoverable (not signed in)
//   - session row missing or expired:  Recoverable
//   - database failure:                Fatal
//
// A session inside the refresh window gets exactly one expiry refresh; a
// failed refresh is ignored and the request stays authenticated.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (*domain.User, error) {
	if len(sessionID) != hex.EncodedLen(sessionIDBytes) {
		return nil, auth.RecoverableErr(errors.New("malformed session cookie"))
	}
	if _, err := hex.DecodeString(sessionID); err != nil {
		return nil, auth.RecoverableErr(errors.New("malformed session cookie"))
	}

	now := s.Now().UTC()
	sess, err := repo.GetSession(ctx, s.DB, sessionID, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, auth.RecoverableErr(errors.New("session missing or expired"))
		}
		return nil, auth.FatalErr(fmt.Errorf("session lookup: %w", err))
	}

	if sess.ExpiresAt.Sub(now) < s.RefreshWindow {
		// single attempt, best effort
		_ = repo.TouchSession(ctx, s.DB, sessionID, now.Add(s.SessionTTL))
	}

	user, err := repo.GetUser(ctx, s.DB, sess.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, auth.RecoverableErr(errors.New("session user missing"))
		}
		return nil, auth.FatalErr(fmt.Errorf("user lookup: %w", err))
	}
	return user, nil
}

// Signout deletes the session row. A stale or unknown session ID is not an
// error; sign-out must always succeed from the user's point of view.
func (s *AuthService) Signout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return repo.DeleteSession(ctx, s.DB, sessionID)
}

// PurgeExpired removes expired session rows, returning how many were deleted.
// Called periodically from main.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredSessions(ctx, s.DB, s.Now().UTC())
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	return newSessionID()
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
