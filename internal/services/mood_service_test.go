package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

func TestClampScore(t *testing.T) {
	cases := []struct{ in, want int }{
		{-3, 1}, {0, 1}, {1, 1}, {3, 3}, {5, 5}, {6, 5}, {100, 5},
	}
	for _, c := range cases {
		if got := ClampScore(c.in); got != c.want {
			t.Errorf("ClampScore(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMoodService_Record_EmptyMood(t *testing.T) {
	s := NewMoodService(newTestDB(t))
	if _, err := s.Record(context.Background(), "u1", MoodInput{Mood: "   "}); !errors.Is(err, ErrInvalidMood) {
		t.Fatalf("got %v, want ErrInvalidMood", err)
	}
}

func TestMoodService_Record_ClampsAndLogsActivity(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	s := NewMoodService(db)

	entry, err := s.Record(context.Background(), u.ID, MoodInput{
		Mood:    "  anxious ",
		Score:   9,
		Note:    "long day",
		Factors: []string{"work", "sleep"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.Mood != "anxious" {
		t.Fatalf("mood = %q, want trimmed", entry.Mood)
	}
	if entry.Score != 5 {
		t.Fatalf("score = %d, want clamped to 5", entry.Score)
	}
	if entry.Date.IsZero() {
		t.Fatal("zero date was not defaulted")
	}

	// recording also writes a zero-duration activity row
	sessions, err := repo.ListMindfulnessSessions(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("history rows = %d, want 1", len(sessions))
	}
	if sessions[0].Type != "mood" || sessions[0].DurationMin != 0 {
		t.Fatalf("history row = %+v", sessions[0])
	}
	if sessions[0].Notes != "Mood check-in: anxious" {
		t.Fatalf("history notes = %q", sessions[0].Notes)
	}
}

func TestMoodService_WeeklyAverage(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s := &MoodService{DB: db, Now: func() time.Time { return now }}

	record := func(score int, daysAgo int) {
		t.Helper()
		_, err := s.Record(context.Background(), u.ID, MoodInput{
			Mood:  "calm",
			Score: score,
			Date:  now.AddDate(0, 0, -daysAgo),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	// inside the window: 4, 3, 3 -> 3.333... -> 3.3
	record(4, 0)
	record(3, 2)
	record(3, 6)
	// outside the window, must not count
	record(1, 10)

	avg, err := s.WeeklyAverage(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("weekly average: %v", err)
	}
	if avg != 3.3 {
		t.Fatalf("average = %v, want 3.3", avg)
	}
}

func TestMoodService_WeeklyAverage_NoEntries(t *testing.T) {
	db := newTestDB(t)
	s := NewMoodService(db)
	avg, err := s.WeeklyAverage(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("weekly average: %v", err)
	}
	if avg != 0 {
		t.Fatalf("average = %v, want 0", avg)
	}
}

func TestMoodService_Delete_NotFound(t *testing.T) {
	s := NewMoodService(newTestDB(t))
	err := s.Delete(context.Background(), "u1", "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrMoodEntryNotFound) {
		t.Fatalf("got %v, want ErrMoodEntryNotFound", err)
	}
}
