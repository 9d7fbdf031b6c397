// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User and
// Session models. Sessions carry a fixed expiry set at sign-in/refresh; an
// expired row is treated exactly like a missing one.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertUser finds a user by provider subject, creating the row on first
// sign-in. Email and display name are refreshed from the provider profile on
// every call.
func UpsertUser(ctx context.Context, db *gorm.DB, subject, email, displayName string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("subject = ?", subject).First(&u).Error
	switch {
	case err == nil:
		updates := map[string]any{"email": email}
		if u.DisplayName == "" && displayName != "" {
			updates["display_name"] = displayName
		}
		if err := db.WithContext(ctx).Model(&u).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = domain.User{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: displayName,
			Subject:     subject,
			CreatedAt:   time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	default:
		return nil, err
	}
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateDisplayName updates a user's display name. Returns ErrNotFound when
// no row is affected.
func UpdateDisplayName(ctx context.Context, db *gorm.DB, id, displayName string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("display_name", displayName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateSession inserts a session row for userID expiring at expiresAt.
// The session ID is the opaque value later carried by the cookie.
func CreateSession(ctx context.Context, db *gorm.DB, id, userID string, expiresAt time.Time) (*domain.Session, error) {
	s := &domain.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns a session that has not expired as of now, or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession replaces a session's expiry (refresh). The new deadline is set
// once; there is no per-request sliding renewal.
func TouchSession(ctx context.Context, db *gorm.DB, id string, expiresAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSession removes a session row. Deleting a missing session is not an
// error: sign-out must succeed even when the cookie is stale.
func DeleteSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Delete(&domain.Session{}, "id = ?", id).Error
}

// DeleteExpiredSessions removes all sessions whose expiry has passed.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Delete(&domain.Session{}, "expires_at <= ?", now)
	return res.RowsAffected, res.Error
}
