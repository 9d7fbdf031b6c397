// Package services defines the business logic for auth sessions, mood
// tracking, exercises, guided chat, and practice history. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrChatSessionNotFound indicates that the requested chat session does
	// not exist or is not accessible to the current user.
	ErrChatSessionNotFound = errors.New("chat session not found")

	// ErrEmptyMessage is returned when a chat message has no content after
	// trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds the
	// configured rune limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrExerciseNotFound indicates that the requested exercise does not
	// exist or is not accessible to the current user.
	ErrExerciseNotFound = errors.New("exercise not found")

	// ErrMoodEntryNotFound indicates that the requested mood entry does not
	// exist or is not accessible to the current user.
	ErrMoodEntryNotFound = errors.New("mood entry not found")

	// ErrInvalidMood is returned when a mood submission has no mood label.
	ErrInvalidMood = errors.New("mood label is required")

	// ErrInvalidDuration is returned when an exercise duration is outside
	// the accepted range.
	ErrInvalidDuration = errors.New("duration must be between 1 and 60 minutes")

	// ErrInvalidVolume is returned when an audio volume is outside [0,100].
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrUserNotFound indicates the profile row is missing.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyDisplayName is returned when a profile update carries a blank
	// display name.
	ErrEmptyDisplayName = errors.New("display name must not be empty")
)
