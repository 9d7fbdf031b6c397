package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChatCompletion_Success(t *testing.T) {
	var gotAuth, gotReferer, gotPath string
	var gotReq struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gen-1","model":"openai/gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"breathe in"}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "openai/gpt-4o-mini", 5*time.Second, WithReferer("https://app.example.com"))
	out, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer != "https://app.example.com" {
		t.Errorf("HTTP-Referer = %q", gotReferer)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "openai/gpt-4o-mini" {
		t.Errorf("request model = %q, want default filled in", gotReq.Model)
	}
	if out.FirstContent() != "breathe in" {
		t.Errorf("content = %q", out.FirstContent())
	}
	// Raw preserves fields the normalized struct drops, e.g. usage
	if !strings.Contains(string(out.Raw), `"total_tokens":12`) {
		t.Errorf("raw body lost upstream fields: %s", out.Raw)
	}
}

func TestChatCompletion_NoAPIKey(t *testing.T) {
	c := NewClient("", "http://unused", "m", time.Second)
	if c.Configured() {
		t.Fatal("client without key reports configured")
	}
	if _, err := c.ChatCompletion(context.Background(), nil, ""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
	if _, err := c.ListModels(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("models: got %v, want ErrNoAPIKey", err)
	}
}

func TestChatCompletion_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "m", time.Second)
	_, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want *UpstreamError", err)
	}
	if ue.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", ue.Status)
	}
	if !strings.Contains(ue.Body, "rate limited") {
		t.Errorf("body = %q, upstream detail lost", ue.Body)
	}
}

func TestChatCompletion_ExplicitModelWins(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "default-model", time.Second)
	if _, err := c.ChatCompletion(context.Background(), nil, "anthropic/claude-3-haiku"); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if gotModel != "anthropic/claude-3-haiku" {
		t.Errorf("model = %q, want caller override", gotModel)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"id":"a"},{"id":"b"},{"id":"c"}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL, "m", time.Second)
	n, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestFirstContent_Empty(t *testing.T) {
	var c *Completion
	if c.FirstContent() != "" {
		t.Fatal("nil completion should yield empty content")
	}
	if (&Completion{}).FirstContent() != "" {
		t.Fatal("no choices should yield empty content")
	}
}
