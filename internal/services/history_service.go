// Package services: HistoryService.
//
// This file implements the practice-history feed, the dashboard summary
// aggregate, and the per-user audio preference row.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

// recentSessionLimit caps the dashboard activity feed.
const recentSessionLimit = 5

// audioVoices is the accepted voice set for audio cues.
var audioVoices = map[string]struct{}{
	"calm": {}, "warm": {}, "neutral": {},
}

// HistoryService reads the practice history and computes the dashboard
// summary. Moods contribute to the summary through MoodService.
type HistoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Moods supplies the weekly mood average.
	Moods *MoodService
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(db *gorm.DB, moods *MoodService) *HistoryService {
	return &HistoryService{DB: db, Moods: moods}
}

// Log records a practice session (chat, breathing, meditation).
func (s *HistoryService) Log(ctx context.Context, userID, kind string, durationMin int, notes string) (*domain.MindfulnessSession, error) {
	return repo.CreateMindfulnessSession(ctx, s.DB, userID, kind, durationMin, notes)
}

// List returns the full history for userID, newest first.
func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.MindfulnessSession, error) {
	return repo.ListMindfulnessSessions(ctx, s.DB, userID)
}

// ListPage returns a page of history rows with the total count.
func (s *HistoryService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.MindfulnessSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMindfulnessSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.MindfulnessSession{}, 0, nil
	}
	items, err := repo.ListMindfulnessSessionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Summary is the dashboard aggregate.
type Summary struct {
	TotalSessions      int64                        `json:"total_sessions"`
	MinutesPracticed   int64                        `json:"minutes_practiced"`
	CompletedExercises int64                        `json:"completed_exercises"`
	MoodEntries        int64                        `json:"mood_entries"`
	WeeklyMoodAverage  float64                      `json:"weekly_mood_average"`
	RecentSessions     []domain.MindfulnessSession  `json:"recent_sessions"`
}

// Summarize computes the dashboard summary for userID.
func (s *HistoryService) Summarize(ctx context.Context, userID string) (*Summary, error) {
	total, err := repo.CountMindfulnessSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	minutes, err := repo.SumPracticeMinutes(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	completed, err := repo.CountCompletions(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	moodCount, err := repo.CountMoodEntries(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	weekly, err := s.Moods.WeeklyAverage(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := repo.ListMindfulnessSessionsPage(ctx, s.DB, userID, 0, recentSessionLimit)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalSessions:      total,
		MinutesPracticed:   minutes,
		CompletedExercises: completed,
		MoodEntries:        moodCount,
		WeeklyMoodAverage:  weekly,
		RecentSessions:     recent,
	}, nil
}

// AudioSettings returns the audio preference row for userID, falling back
// to defaults when the user has never saved one.
func (s *HistoryService) AudioSettings(ctx context.Context, userID string) (*domain.AudioSettings, error) {
	return repo.GetAudioSettings(ctx, s.DB, userID)
}

// SaveAudioSettings validates and upserts the preference row.
func (s *HistoryService) SaveAudioSettings(ctx context.Context, userID string, cuesEnabled bool, volume int, voice string) (*domain.AudioSettings, error) {
	if volume < 0 || volume > 100 {
		return nil, ErrInvalidVolume
	}
	voice = strings.ToLower(strings.TrimSpace(voice))
	if _, ok := audioVoices[voice]; !ok {
		voice = "calm"
	}

	settings := &domain.AudioSettings{
		UserID:      userID,
		CuesEnabled: cuesEnabled,
		Volume:      volume,
		Voice:       voice,
	}
	if err := repo.SaveAudioSettings(ctx, s.DB, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
