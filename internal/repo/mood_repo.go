// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the MoodEntry
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Score clamping and weekly aggregation
// live in services.MoodService.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

// CreateMoodEntry inserts a new mood entry row for userID.
func CreateMoodEntry(ctx context.Context, db *gorm.DB, userID, mood string, score int, note string, factors []string, date time.Time) (*domain.MoodEntry, error) {
	m := &domain.MoodEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mood:      mood,
		Score:     score,
		Note:      note,
		Factors:   factors,
		Date:      date.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMoodEntries returns all mood entries for userID ordered by date
// descending (most recent first).
func ListMoodEntries(ctx context.Context, db *gorm.DB, userID string) ([]domain.MoodEntry, error) {
	var out []domain.MoodEntry
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		Find(&out).Error
	return out, err
}

// ListMoodEntriesSince returns entries with date >= since, ordered ascending.
// Used for the weekly-average window.
func ListMoodEntriesSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) ([]domain.MoodEntry, error) {
	var out []domain.MoodEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date asc").
		Find(&out).Error
	return out, err
}

// CountMoodEntries returns the total number of entries owned by userID.
func CountMoodEntries(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.MoodEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListMoodEntriesPage returns a paginated slice ordered by date descending.
func ListMoodEntriesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.MoodEntry, error) {
	var out []domain.MoodEntry
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMoodEntry fetches a single entry by ID and owner, or ErrNotFound.
func GetMoodEntry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.MoodEntry, error) {
	var m domain.MoodEntry
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMoodEntry soft-deletes an entry, enforcing user ownership. Returns
// ErrNotFound when the entry does not exist or is not owned by userID.
func DeleteMoodEntry(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.MoodEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
