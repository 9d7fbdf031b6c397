// Package services: ProfileService.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

// ProfileService exposes the one profile mutation the product supports:
// updating the display name.
type ProfileService struct {
	DB *gorm.DB

	// NameMaxLen caps display names by rune length.
	NameMaxLen int
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db, NameMaxLen: 80}
}

// Get fetches the profile for userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// UpdateDisplayName trims, validates, and persists a new display name,
// returning the updated profile.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, userID, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyDisplayName
	}
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		name = string([]rune(name)[:s.NameMaxLen])
	}
	if err := repo.UpdateDisplayName(ctx, s.DB, userID, name); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}
