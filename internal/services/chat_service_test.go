package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

func newChatFixture(t *testing.T, fake *fakeCompleter) (*ChatService, string, string) {
	t.Helper()
	db := newTestDB(t)
	u := seedUser(t, db)
	s := NewChatService(db, fake)
	s.Sleep = func(time.Duration) {}

	sess, err := s.CreateSession(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s, u.ID, sess.ID
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	s, uid, sid := newChatFixture(t, &fakeCompleter{})

	if _, err := s.SendMessage(context.Background(), uid, sid, "  \n "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank: got %v, want ErrEmptyMessage", err)
	}

	s.MaxPromptRunes = 5
	if _, err := s.SendMessage(context.Background(), uid, sid, "too long for five"); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("long: got %v, want ErrMessageTooLong", err)
	}
}

func TestChatService_SendMessage_SessionNotFound(t *testing.T) {
	s, uid, _ := newChatFixture(t, &fakeCompleter{})
	_, err := s.SendMessage(context.Background(), uid, "00000000-0000-0000-0000-000000000000", "hi")
	if !errors.Is(err, ErrChatSessionNotFound) {
		t.Fatalf("got %v, want ErrChatSessionNotFound", err)
	}
}

func TestChatService_SendMessage_WindowComposition(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"reply"}}
	s, uid, sid := newChatFixture(t, fake)

	// 12 prior exchanges so the window must truncate to the last 10 turns
	for i := 0; i < 12; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if _, err := repo.CreateChatMessage(s.DB, sid, role, "turn"); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	if _, err := s.SendMessage(context.Background(), uid, sid, "newest question"); err != nil {
		t.Fatalf("send: %v", err)
	}

	window := fake.windows[0]
	if len(window) != 12 { // 1 system + 10 prior + 1 new user
		t.Fatalf("window size = %d, want 12", len(window))
	}
	if window[0].Role != "system" {
		t.Fatalf("window[0].Role = %q, want system", window[0].Role)
	}
	last := window[len(window)-1]
	if last.Role != "user" || last.Content != "newest question" {
		t.Fatalf("last turn = %+v", last)
	}
	for _, m := range window[1 : len(window)-1] {
		if m.Role == "system" {
			t.Fatal("duplicate system prompt in window")
		}
	}
}

func TestChatService_SendMessage_PersistsBothSides(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"take a slow breath"}}
	s, uid, sid := newChatFixture(t, fake)

	msg, err := s.SendMessage(context.Background(), uid, sid, "I feel tense")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Role != "assistant" || msg.Content != "take a slow breath" {
		t.Fatalf("assistant message = %+v", msg)
	}

	all, err := s.Messages(context.Background(), uid, sid)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(all))
	}
	if all[0].Role != "user" || all[1].Role != "assistant" {
		t.Fatalf("roles = %q, %q", all[0].Role, all[1].Role)
	}
}

func TestChatService_SendMessage_RetriesTransientFailures(t *testing.T) {
	upstream := &llm.UpstreamError{Status: 503, Body: "overloaded"}
	fake := &fakeCompleter{
		errs:    []error{upstream, upstream, nil},
		replies: []string{"", "", "third time lucky"},
	}
	var delays []time.Duration
	s, uid, sid := newChatFixture(t, fake)
	s.Sleep = func(d time.Duration) { delays = append(delays, d) }

	msg, err := s.SendMessage(context.Background(), uid, sid, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Content != "third time lucky" {
		t.Fatalf("content = %q", msg.Content)
	}
	if fake.calls != 3 {
		t.Fatalf("upstream calls = %d, want 3", fake.calls)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", delays)
	}
}

func TestChatService_SendMessage_GivesUpAfterThreeAttempts(t *testing.T) {
	upstream := &llm.UpstreamError{Status: 500, Body: "boom"}
	fake := &fakeCompleter{errs: []error{upstream, upstream, upstream}}
	s, uid, sid := newChatFixture(t, fake)

	_, err := s.SendMessage(context.Background(), uid, sid, "hello")
	var ue *llm.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want upstream error", err)
	}
	if fake.calls != 3 {
		t.Fatalf("upstream calls = %d, want 3", fake.calls)
	}

	// nothing persisted when the upstream never answered
	total, err := repo.CountChatMessages(s.DB, sid)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 0 {
		t.Fatalf("persisted messages = %d, want 0", total)
	}
}

func TestChatService_SendMessage_NoRetryOnConfigError(t *testing.T) {
	fake := &fakeCompleter{errs: []error{llm.ErrNoAPIKey}}
	s, uid, sid := newChatFixture(t, fake)

	if _, err := s.SendMessage(context.Background(), uid, sid, "hi"); !errors.Is(err, llm.ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
	if fake.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", fake.calls)
	}
}

func TestChatService_SendMessage_NoRetryOnClientError(t *testing.T) {
	fake := &fakeCompleter{errs: []error{&llm.UpstreamError{Status: 400, Body: "bad request"}}}
	s, uid, sid := newChatFixture(t, fake)

	if _, err := s.SendMessage(context.Background(), uid, sid, "hi"); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", fake.calls)
	}
}

func TestChatService_RetryOn429(t *testing.T) {
	fake := &fakeCompleter{
		errs:    []error{&llm.UpstreamError{Status: 429, Body: "slow down"}, nil},
		replies: []string{"", "here you go"},
	}
	s, uid, sid := newChatFixture(t, fake)

	msg, err := s.SendMessage(context.Background(), uid, sid, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Content != "here you go" {
		t.Fatalf("content = %q", msg.Content)
	}
	if fake.calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", fake.calls)
	}
}

func TestChatService_AutoTitleFromFirstMessage(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"sure"}}
	s, uid, sid := newChatFixture(t, fake)

	if _, err := s.SendMessage(context.Background(), uid, sid, "help with my morning meditation routine"); err != nil {
		t.Fatalf("send: %v", err)
	}

	sessions, err := s.ListSessions(context.Background(), uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	title := sessions[0].Title
	if title == defaultTitleNew || title == "" {
		t.Fatalf("title was not generated: %q", title)
	}
	if strings.Contains(strings.ToLower(title), "help") {
		t.Fatalf("stop word survived in title %q", title)
	}
	if !strings.Contains(title, "Meditation") {
		t.Fatalf("title %q not title-cased from prompt", title)
	}
}

func TestChatService_CustomTitleNotOverwritten(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"ok"}}
	s, uid, sid := newChatFixture(t, fake)

	if err := s.RenameSession(context.Background(), uid, sid, "My own name"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := s.SendMessage(context.Background(), uid, sid, "completely different topic"); err != nil {
		t.Fatalf("send: %v", err)
	}

	sessions, _ := s.ListSessions(context.Background(), uid)
	if sessions[0].Title != "My own name" {
		t.Fatalf("title = %q, want preserved custom title", sessions[0].Title)
	}
}

func TestChatService_RenameSession_NotFound(t *testing.T) {
	s, uid, _ := newChatFixture(t, &fakeCompleter{})
	err := s.RenameSession(context.Background(), uid, "00000000-0000-0000-0000-000000000000", "x")
	if !errors.Is(err, ErrChatSessionNotFound) {
		t.Fatalf("got %v, want ErrChatSessionNotFound", err)
	}
}

func TestChatService_MessagesPage(t *testing.T) {
	s, uid, sid := newChatFixture(t, &fakeCompleter{})
	for i := 0; i < 5; i++ {
		if _, err := repo.CreateChatMessage(s.DB, sid, "user", "m"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	items, total, err := s.MessagesPage(context.Background(), uid, sid, 2, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
}
