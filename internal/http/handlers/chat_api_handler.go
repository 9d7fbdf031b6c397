// Chat session HTTP handlers.
//
// This file exposes the persisted-conversation endpoints:
//   - POST /api/chat/sessions                 (start a conversation)
//   - GET  /api/chat/sessions                 (list conversations)
//   - PUT  /api/chat/sessions/{id}            (rename)
//   - GET  /api/chat/sessions/{id}/messages   (transcript, paginated)
//   - POST /api/chat/sessions/{id}/messages   (send a message)
//
// Unlike the raw proxy in ai_handler.go, these endpoints persist both sides
// of each exchange and use the standard application envelope on error.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/services"
)

// Conversationalist defines the chat operations consumed by HTTP handlers.
type Conversationalist interface {
	CreateSession(ctx context.Context, userID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	RenameSession(ctx context.Context, userID, sessionID, title string) error
	MessagesPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatMessage, error)
}

// ChatAPIHandlers groups the persisted-conversation endpoints.
type ChatAPIHandlers struct {
	Svc Conversationalist
}

// NewChatAPIHandlers constructs ChatAPIHandlers.
func NewChatAPIHandlers(svc Conversationalist) *ChatAPIHandlers {
	return &ChatAPIHandlers{Svc: svc}
}

// RenameSessionRequest is the JSON payload for renaming a conversation.
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required" example:"Evening wind-down"`
}

// SendMessageRequest is the JSON payload for sending a chat message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"I had a stressful day at work"`
}

// MessagesResponse wraps a page of a conversation transcript.
type MessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// CreateSession godoc
// @ID          createChatSession
// @Summary     Start a conversation
// @Tags        Chat
// @Produce     json
// @Success     201 {object} domain.ChatSession
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/chat/sessions [post]
func (h *ChatAPIHandlers) CreateSession(c *gin.Context) {
	session, err := h.Svc.CreateSession(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, session)
}

// ListSessions godoc
// @ID          listChatSessions
// @Summary     List conversations
// @Tags        Chat
// @Produce     json
// @Success     200 {array} domain.ChatSession
// @Failure     500 {object} handlers.ErrorResponse
// @Router      /api/chat/sessions [get]
func (h *ChatAPIHandlers) ListSessions(c *gin.Context) {
	sessions, err := h.Svc.ListSessions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sessions)
}

// RenameSession godoc
// @ID          renameChatSession
// @Summary     Rename a conversation
// @Tags        Chat
// @Accept      json
// @Param       id    path  string                          true  "Session ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameSessionRequest   true  "New title"
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/chat/sessions/{id} [put]
func (h *ChatAPIHandlers) RenameSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title is required")
		return
	}

	if err := h.Svc.RenameSession(c.Request.Context(), middleware.UserID(c), id, req.Title); err != nil {
		if errors.Is(err, services.ErrChatSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// ListMessages godoc
// @ID          listChatMessages
// @Summary     Read a conversation transcript (paginated)
// @Tags        Chat
// @Produce     json
// @Param       id         path   string  true   "Session ID (UUID)"  format(uuid)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200 {object} handlers.MessagesResponse
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /api/chat/sessions/{id}/messages [get]
func (h *ChatAPIHandlers) ListMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.Svc.MessagesPage(c.Request.Context(), middleware.UserID(c), id, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrChatSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, MessagesResponse{
		Messages:   items,
		Pagination: paginationMeta(page, pageSize, total),
	})
}

// SendMessage godoc
// @ID          sendChatMessage
// @Summary     Send a message
// @Description Persists the user turn, obtains the assistant reply (with bounded retries against the upstream), and returns the assistant message.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       id    path  string                        true  "Session ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SendMessageRequest   true  "Message content"
// @Success     201 {object} domain.ChatMessage
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     502 {object} handlers.ErrorResponse
// @Router      /api/chat/sessions/{id}/messages [post]
func (h *ChatAPIHandlers) SendMessage(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	msg, err := h.Svc.SendMessage(c.Request.Context(), middleware.UserID(c), id, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrMessageTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrChatSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
		default:
			fail(c, http.StatusBadGateway, ErrCodeSendFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, msg)
}
