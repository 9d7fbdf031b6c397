// Package services: ChatService.
//
// This file implements the guided-mindfulness chat. SendMessage validates
// the prompt, builds the upstream context window (one system prompt, up to
// ten prior turns, the new user turn), retries the upstream call with a
// linear backoff, and persists the user/assistant pair atomically. The
// first user message of a session also generates the session title.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"

	// contextTurns caps how many prior messages are sent upstream.
	contextTurns = 10

	// sendAttempts is the total number of upstream tries per message.
	sendAttempts = 3

	// placeholder titles eligible for auto-generation
	defaultTitleNew = "New conversation"
)

// chatSystemPrompt frames the assistant for every conversation.
const chatSystemPrompt = `You are a calm, supportive mindfulness companion. Offer brief, practical guidance on meditation, breathing, stress, and emotional wellbeing. You are not a medical professional; suggest professional help for anything beyond everyday stress.`

// Completer is the upstream chat-completion contract, satisfied by
// llm.Client and by fakes in tests.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, model string) (*llm.Completion, error)
}

// ChatService coordinates chat sessions, message persistence, and the
// upstream completion calls.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// LLM produces assistant replies.
	LLM Completer
	// Model overrides the client's default model when non-empty.
	Model string

	// MaxPromptRunes caps user messages by rune length. Zero disables.
	MaxPromptRunes int
	// TitleMaxLen caps generated session titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing locale for titles.
	TitleLocale language.Tag

	// Sleep is injectable for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, completer Completer) *ChatService {
	return &ChatService{
		DB:             db,
		LLM:            completer,
		MaxPromptRunes: 4000,
		TitleMaxLen:    60,
		TitleLocale:    language.English,
		Sleep:          time.Sleep,
	}
}

// CreateSession starts a new conversation for userID.
func (s *ChatService) CreateSession(ctx context.Context, userID string) (*domain.ChatSession, error) {
	return repo.CreateChatSession(ctx, s.DB, userID, defaultTitleNew)
}

// ListSessions returns all conversations for userID, most recent first.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	return repo.ListChatSessions(ctx, s.DB, userID)
}

// RenameSession updates a conversation title, enforcing ownership.
func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	err := repo.UpdateChatSessionTitle(ctx, s.DB, sessionID, userID, s.clipTitle(title))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrChatSessionNotFound
	}
	return err
}

// Messages returns the ordered transcript for a session owned by userID.
func (s *ChatService) Messages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	if _, err := repo.GetChatSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatSessionNotFound
		}
		return nil, err
	}
	return repo.ListChatMessages(s.DB.WithContext(ctx), sessionID, 0)
}

// MessagesPage returns a paginated transcript slice plus the total count.
func (s *ChatService) MessagesPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetChatSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrChatSessionNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountChatMessages(s.DB.WithContext(ctx), sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListChatMessagesPage(s.DB.WithContext(ctx), sessionID, offset, pageSize)
	return items, total, err
}

// SendMessage validates the prompt, calls the upstream with retries, and
// persists both sides of the exchange in one transaction. The assistant
// message is returned.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SendMessage",
		trace.WithAttributes(
			attribute.String("chat.session_id", sessionID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(content) > s.MaxPromptRunes {
		return nil, ErrMessageTooLong
	}

	session, err := repo.GetChatSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatSessionNotFound
		}
		return nil, err
	}

	window, err := s.buildWindow(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	reply, err := s.completeWithRetry(ctx, window)
	if err != nil {
		return nil, err
	}

	var assistantMsg *domain.ChatMessage
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateChatMessage(tx, sessionID, roleUser, content); err != nil {
			return err
		}
		m, err := repo.CreateChatMessage(tx, sessionID, roleAssistant, reply)
		if err != nil {
			return err
		}
		assistantMsg = m

		if s.shouldAutoTitle(session.Title) {
			if gen := s.generateTitle(content); gen != "" {
				if uerr := tx.Model(&domain.ChatSession{}).Where("id = ?", sessionID).Update("title", gen).Error; uerr == nil {
					session.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// buildWindow assembles the upstream message window: the system prompt, up
// to the last ten persisted turns in chronological order, and the new user
// turn.
func (s *ChatService) buildWindow(ctx context.Context, sessionID, content string) ([]llm.Message, error) {
	prior, err := repo.ListRecentChatMessages(s.DB.WithContext(ctx), sessionID, contextTurns)
	if err != nil {
		return nil, err
	}

	window := make([]llm.Message, 0, len(prior)+2)
	window = append(window, llm.Message{Role: roleSystem, Content: chatSystemPrompt})
	for _, m := range prior {
		window = append(window, llm.Message{Role: m.Role, Content: m.Content})
	}
	window = append(window, llm.Message{Role: roleUser, Content: content})
	return window, nil
}

// completeWithRetry calls the upstream up to sendAttempts times. The delay
// before retry n is n seconds. Configuration errors and upstream 4xx
// responses are not retried.
func (s *ChatService) completeWithRetry(ctx context.Context, window []llm.Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		completion, err := s.LLM.ChatCompletion(ctx, window, s.Model)
		if err == nil {
			return completion.FirstContent(), nil
		}
		lastErr = err

		if !retryable(err) || attempt == sendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		s.Sleep(time.Duration(attempt) * time.Second)
	}
	return "", lastErr
}

// retryable reports whether an upstream failure is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, llm.ErrNoAPIKey) {
		return false
	}
	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= 500 || ue.Status == 429
	}
	return true // network-level failures
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *ChatService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == "untitled"
}

// generateTitle derives a concise session title from the first prompt.
func (s *ChatService) generateTitle(prompt string) string {
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	locale := s.TitleLocale
	if locale == language.Und {
		locale = language.English
	}
	caser := cases.Title(locale)

	out := make([]string, 0, 6)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 6 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return s.clipTitle(strings.Join(out, " "))
}

// clipTitle truncates a title to the configured maximum rune length.
func (s *ChatService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// titleWordRE extracts Unicode letter runs with optional trailing digits.
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// titleStopWords is a minimal English stop-word set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "i": {}, "my": {},
	"me": {}, "am": {}, "was": {}, "were": {}, "can": {}, "you": {}, "help": {},
}
