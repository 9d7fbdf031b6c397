// Package services: MoodService.
//
// This file implements mood recording and the weekly-average aggregate.
// Scores are clamped into [1,5] before persistence; recording writes the
// entry and an activity-log row in one transaction so the dashboard feed
// and the mood list never disagree.
package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

// weeklyWindow is the lookback used by the weekly average.
const weeklyWindow = 7 * 24 * time.Hour

// MoodService provides mood-entry operations and aggregates.
type MoodService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewMoodService constructs a MoodService.
func NewMoodService(db *gorm.DB) *MoodService {
	return &MoodService{DB: db, Now: time.Now}
}

// MoodInput is the payload accepted by Record.
type MoodInput struct {
	Mood    string
	Score   int
	Note    string
	Factors []string
	Date    time.Time
}

// ClampScore forces a score into the valid [1,5] range.
func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}

// Record inserts a mood entry for userID. The score is clamped to [1,5] and
// a zero date defaults to now. The entry and its activity-log row commit in
// one transaction.
func (s *MoodService) Record(ctx context.Context, userID string, in MoodInput) (*domain.MoodEntry, error) {
	mood := strings.TrimSpace(in.Mood)
	if mood == "" {
		return nil, ErrInvalidMood
	}
	score := ClampScore(in.Score)
	date := in.Date
	if date.IsZero() {
		date = s.Now()
	}

	var entry *domain.MoodEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := repo.CreateMoodEntry(ctx, tx, userID, mood, score, strings.TrimSpace(in.Note), in.Factors, date)
		if err != nil {
			return err
		}
		entry = e
		_, err = repo.CreateMindfulnessSession(ctx, tx, userID, "mood", 0, "Mood check-in: "+mood)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all mood entries for userID, newest first.
func (s *MoodService) List(ctx context.Context, userID string) ([]domain.MoodEntry, error) {
	return repo.ListMoodEntries(ctx, s.DB, userID)
}

// ListPage returns a page of mood entries with the total count. Invalid
// page/pageSize values fall back to defaults.
func (s *MoodService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.MoodEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMoodEntries(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.MoodEntry{}, 0, nil
	}
	items, err := repo.ListMoodEntriesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Delete removes a mood entry owned by userID.
func (s *MoodService) Delete(ctx context.Context, userID, id string) error {
	err := repo.DeleteMoodEntry(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMoodEntryNotFound
	}
	return err
}

// WeeklyAverage returns the arithmetic mean of scores over the trailing
// seven days, rounded to one decimal. No entries yields 0.
func (s *MoodService) WeeklyAverage(ctx context.Context, userID string) (float64, error) {
	since := s.Now().UTC().Add(-weeklyWindow)
	entries, err := repo.ListMoodEntriesSince(ctx, s.DB, userID, since)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	sum := 0
	for _, e := range entries {
		sum += e.Score
	}
	avg := float64(sum) / float64(len(entries))
	return math.Round(avg*10) / 10, nil
}
