// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Exercise
// and ExerciseCompletion models.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

// ErrDuplicate indicates that a row violating a unique constraint already
// exists (idempotency records, exercise completions).
var ErrDuplicate = errors.New("duplicate")

// CreateExercise inserts a new exercise row. The caller is responsible for
// having normalized steps so that timings sum to DurationMin*60.
func CreateExercise(ctx context.Context, db *gorm.DB, ex *domain.Exercise) (*domain.Exercise, error) {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(ex).Error; err != nil {
		return nil, err
	}
	return ex, nil
}

// ListExercises returns all exercises for userID ordered by title ascending.
func ListExercises(ctx context.Context, db *gorm.DB, userID string) ([]domain.Exercise, error) {
	var out []domain.Exercise
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("title asc").
		Find(&out).Error
	return out, err
}

// CountExercises returns the total number of exercises owned by userID.
func CountExercises(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Exercise{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListExercisesPage returns a paginated slice ordered by title ascending.
func ListExercisesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Exercise, error) {
	var out []domain.Exercise
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("title asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetExercise fetches a single exercise by ID and owner, or ErrNotFound.
func GetExercise(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Exercise, error) {
	var ex domain.Exercise
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&ex).Error
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// DeleteExercise soft-deletes an exercise, enforcing user ownership.
func DeleteExercise(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Exercise{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateCompletion marks an exercise complete for userID. A second call for
// the same (user, exercise) pair returns ErrDuplicate; callers treat that as
// a no-op to keep completion idempotent.
func CreateCompletion(ctx context.Context, db *gorm.DB, userID, exerciseID string) (*domain.ExerciseCompletion, error) {
	c := &domain.ExerciseCompletion{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExerciseID: exerciseID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// ListCompletedIDs returns the set of exercise IDs userID has completed.
func ListCompletedIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.ExerciseCompletion{}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Pluck("exercise_id", &ids).Error
	return ids, err
}

// CountCompletions returns how many exercises userID has completed.
func CountCompletions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ExerciseCompletion{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
