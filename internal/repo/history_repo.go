// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MindfulnessSession history model and the AudioSettings preference row,
// plus the aggregate queries behind the dashboard summary.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

// CreateMindfulnessSession logs a practice session (chat, exercise, breathing).
func CreateMindfulnessSession(ctx context.Context, db *gorm.DB, userID, kind string, durationMin int, notes string) (*domain.MindfulnessSession, error) {
	s := &domain.MindfulnessSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        kind,
		DurationMin: durationMin,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListMindfulnessSessions returns the full history for userID, newest first.
func ListMindfulnessSessions(ctx context.Context, db *gorm.DB, userID string) ([]domain.MindfulnessSession, error) {
	var out []domain.MindfulnessSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountMindfulnessSessions returns the total history rows for userID.
func CountMindfulnessSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.MindfulnessSession{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListMindfulnessSessionsPage returns a paginated history slice, newest first.
func ListMindfulnessSessionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.MindfulnessSession, error) {
	var out []domain.MindfulnessSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SumPracticeMinutes totals DurationMin across all history rows for userID.
func SumPracticeMinutes(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COALESCE(SUM(duration_min), 0) FROM mindfulness_sessions WHERE user_id = ? AND deleted_at IS NULL", userID).
		Scan(&total).Error
	return total, err
}

// GetAudioSettings returns the preference row for userID, or defaults when
// the user has never saved one.
func GetAudioSettings(ctx context.Context, db *gorm.DB, userID string) (*domain.AudioSettings, error) {
	var s domain.AudioSettings
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return &domain.AudioSettings{UserID: userID, CuesEnabled: true, Volume: 70, Voice: "calm"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveAudioSettings upserts the preference row for userID.
func SaveAudioSettings(ctx context.Context, db *gorm.DB, s *domain.AudioSettings) error {
	s.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.AudioSettings{}).
		Where("user_id = ?", s.UserID).
		Updates(map[string]any{
			"cues_enabled": s.CuesEnabled,
			"volume":       s.Volume,
			"voice":        s.Voice,
			"updated_at":   s.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Select all columns so a false CuesEnabled is not dropped in favor
		// of the column default.
		return db.WithContext(ctx).
			Select("UserID", "CuesEnabled", "Volume", "Voice", "UpdatedAt").
			Create(s).Error
	}
	return nil
}
