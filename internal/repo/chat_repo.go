// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatSession
// and ChatMessage models.
//
// Error semantics:
//   - When a session or message is not found, functions return
//     gorm.ErrRecordNotFound (also exported as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.ChatService) which enforces business rules such as the
// message window sent upstream and send retries.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
)

// CreateChatSession inserts a new chat session owned by userID.
func CreateChatSession(ctx context.Context, db *gorm.DB, userID, title string) (*domain.ChatSession, error) {
	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListChatSessions returns all sessions belonging to userID, most recent first.
func ListChatSessions(ctx context.Context, db *gorm.DB, userID string) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetChatSession fetches a session by ID/owner, or ErrNotFound.
func GetChatSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateChatSessionTitle renames a session, enforcing ownership.
func UpdateChatSessionTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateChatMessage inserts a message row into a session.
func CreateChatMessage(db *gorm.DB, sessionID, role, content string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListChatMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListChatMessages(db *gorm.DB, sessionID string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	q := db.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListRecentChatMessages returns the most recent limit messages in
// chronological order. Used to build the upstream context window.
func ListRecentChatMessages(db *gorm.DB, sessionID string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// reverse into send order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountChatMessages uses a raw COUNT so a missing table surfaces as an error.
func CountChatMessages(db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM chat_messages WHERE session_id = ?", sessionID).Scan(&total).Error
	return total, err
}

// ListChatMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListChatMessagesPage(db *gorm.DB, sessionID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
