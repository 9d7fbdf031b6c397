// Package domain defines the persistence models for users, sessions, mood
// entries, mindfulness exercises, chat transcripts, and activity history.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// User represents an authenticated account. Accounts are created on the first
// OAuth sign-in; the only mutation this codebase performs afterwards is a
// display-name update.
type User struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Email       string         `json:"email"        gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string         `json:"display_name" gorm:"type:varchar(255);not null"`
	Subject     string         `json:"-"            gorm:"type:varchar(255);not null;uniqueIndex"` // provider subject (sub claim)
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Session is a server-side session row referenced by the session cookie.
// Expiry is set once at sign-in/refresh (no sliding renewal); the row is the
// single source of truth for authentication state.
type Session struct {
	ID        string    `json:"id"         gorm:"type:char(64);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// MoodEntry records a single mood submission. Score is clamped to [1,5]
// before persistence; Factors carries free-form tags.
type MoodEntry struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"  gorm:"type:char(36);not null;index:idx_user_moods"`
	Mood      string         `json:"mood"     gorm:"type:varchar(32);not null"`
	Score     int            `json:"score"    gorm:"not null;check:score BETWEEN 1 AND 5"`
	Note      string         `json:"note"     gorm:"type:text"`
	Factors   StringList     `json:"factors"  gorm:"type:text"`
	Date      time.Time      `json:"date"     gorm:"not null;index:idx_user_moods,priority:2"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for MoodEntry.
func (MoodEntry) TableName() string { return "mood_entries" }

// ExerciseStep is one step of a mindfulness exercise with its allotted time.
type ExerciseStep struct {
	Text    string `json:"text"`
	Seconds int    `json:"seconds"`
}

// StepList serializes exercise steps as a JSON text column.
type StepList []ExerciseStep

// Value implements driver.Valuer.
func (s StepList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// Scan implements sql.Scanner.
func (s *StepList) Scan(src any) error {
	return scanJSON(src, s)
}

// StringList serializes a slice of strings as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(src any) error {
	return scanJSON(src, s)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported column type for JSON scan")
	}
}

// Exercise is a generated mindfulness exercise. Steps carry per-step timings
// whose sum must equal DurationMin*60 seconds once derived.
type Exercise struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:char(36);not null;index"`
	Title       string         `json:"title"       gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	DurationMin int            `json:"duration"    gorm:"not null"`
	Category    string         `json:"category"    gorm:"type:varchar(32);not null;index"`
	Difficulty  string         `json:"difficulty"  gorm:"type:varchar(16);not null;default:'beginner'"`
	Steps       StepList       `json:"steps"       gorm:"type:text"`
	Benefits    StringList     `json:"benefits"    gorm:"type:text"`
	Tips        StringList     `json:"tips"        gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Exercise.
func (Exercise) TableName() string { return "exercises" }

// TotalStepSeconds sums the per-step timings.
func (e Exercise) TotalStepSeconds() int {
	total := 0
	for _, s := range e.Steps {
		total += s.Seconds
	}
	return total
}

// ExerciseCompletion marks an exercise as completed by a user. The unique
// index makes completion idempotent: re-marking is a no-op.
type ExerciseCompletion struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);not null;uniqueIndex:ux_completion_user_exercise"`
	ExerciseID string    `json:"exercise_id" gorm:"type:char(36);not null;uniqueIndex:ux_completion_user_exercise"`
	CreatedAt  time.Time `json:"created_at"`

	Exercise Exercise `json:"-" gorm:"foreignKey:ExerciseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ExerciseCompletion.
func (ExerciseCompletion) TableName() string { return "exercise_completions" }

// ChatSession represents a guided-mindfulness conversation owned by a user.
type ChatSession struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_chat_sessions"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is a single utterance within a chat session, authored by
// "user", "assistant", or "system".
type ChatMessage struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string         `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Role      string         `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system')"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_session_msgs,priority:2"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// MindfulnessSession is a history row logged after a chat or exercise
// completes: what kind of practice, for how long, with optional notes.
type MindfulnessSession struct {
	ID          string         `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"  gorm:"type:char(36);not null;index:idx_user_history"`
	Type        string         `json:"type"     gorm:"type:varchar(32);not null"` // chat|exercise|breathing|meditation
	DurationMin int            `json:"duration" gorm:"not null"`
	Notes       string         `json:"notes"    gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_user_history,priority:2"`
	DeletedAt   gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for MindfulnessSession.
func (MindfulnessSession) TableName() string { return "mindfulness_sessions" }

// AudioSettings stores per-user playback preferences for the exercise timer.
type AudioSettings struct {
	UserID      string    `json:"user_id" gorm:"type:char(36);primaryKey"`
	CuesEnabled bool      `json:"cues_enabled" gorm:"not null;default:true"`
	Volume      int       `json:"volume"  gorm:"not null;default:70;check:volume BETWEEN 0 AND 100"`
	Voice       string    `json:"voice"   gorm:"type:varchar(32);not null;default:'calm'"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for AudioSettings.
func (AudioSettings) TableName() string { return "audio_settings" }
