// Package transcribe provides a client for the AssemblyAI transcription API:
// upload an audio file, create a transcript job with word-boost hints and
// speaker/language detection enabled, then poll until the job settles.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when the client is constructed without a key.
var ErrNoAPIKey = errors.New("AssemblyAI API key is not configured")

// Word is a single recognized word with timing and confidence.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Utterance is a contiguous speaker turn.
type Utterance struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Transcription is the normalized transcript payload returned to callers.
// Raw carries the unmodified upstream body.
type Transcription struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Language   string          `json:"language"`
	Words      []Word          `json:"words"`
	Speakers   []string        `json:"speakers"`
	Utterances []Utterance     `json:"utterances"`
	Raw        json.RawMessage `json:"raw"`
}

// UpstreamError carries a non-2xx upstream response.
type UpstreamError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assemblyai: upstream returned %d: %s", e.Status, e.Body)
}

// Client calls the AssemblyAI HTTP API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// WordBoost biases recognition toward domain vocabulary.
	WordBoost []string
	// PollInterval is the delay between transcript status checks.
	PollInterval time.Duration
}

// NewClient constructs a Client. An empty API key is allowed; calls will
// fail with ErrNoAPIKey so handlers can map it to a 500.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		WordBoost: []string{
			"mindfulness", "meditation", "breathing", "gratitude",
			"anxiety", "relaxation", "grounding",
		},
		PollInterval: time.Second,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// TranscribeFile uploads the audio at path and blocks until the transcript
// settles. The caller owns the file's lifecycle; this function never deletes
// it.
func (c *Client) TranscribeFile(ctx context.Context, path string) (*Transcription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: open audio: %w", err)
	}
	defer f.Close()

	uploadURL, err := c.upload(ctx, f)
	if err != nil {
		return nil, err
	}
	id, err := c.createTranscript(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	return c.waitForTranscript(ctx, id)
}

// upload streams audio bytes to the upload endpoint and returns the
// ephemeral upload URL.
func (c *Client) upload(ctx context.Context, r io.Reader) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", r)
	if err != nil {
		return "", fmt.Errorf("assemblyai: create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai: upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("assemblyai: read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("assemblyai: decode upload response: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("assemblyai: empty upload_url in response")
	}
	return out.UploadURL, nil
}

// createTranscript submits a transcript job with speaker labels and language
// detection enabled plus the configured word boost, returning the job id.
func (c *Client) createTranscript(ctx context.Context, audioURL string) (string, error) {
	payload := map[string]any{
		"audio_url":          audioURL,
		"speaker_labels":     true,
		"language_detection": true,
	}
	if len(c.WordBoost) > 0 {
		payload["word_boost"] = c.WordBoost
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("assemblyai: marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assemblyai: create transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai: transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("assemblyai: read transcript response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("assemblyai: decode transcript response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("assemblyai: empty transcript id in response")
	}
	return out.ID, nil
}

// waitForTranscript polls the job until it reports completed or error.
func (c *Client) waitForTranscript(ctx context.Context, id string) (*Transcription, error) {
	for {
		tr, status, err := c.getTranscript(ctx, id)
		if err != nil {
			return nil, err
		}
		switch status {
		case "completed":
			return tr, nil
		case "error":
			return nil, fmt.Errorf("assemblyai: transcription failed for job %s", id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *Client) getTranscript(ctx context.Context, id string) (*Transcription, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return nil, "", fmt.Errorf("assemblyai: create status request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("assemblyai: status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("assemblyai: read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		Status       string      `json:"status"`
		Text         string      `json:"text"`
		Confidence   float64     `json:"confidence"`
		LanguageCode string      `json:"language_code"`
		Words        []Word      `json:"words"`
		Utterances   []Utterance `json:"utterances"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "", fmt.Errorf("assemblyai: decode status response: %w", err)
	}

	tr := &Transcription{
		Text:       out.Text,
		Confidence: out.Confidence,
		Language:   out.LanguageCode,
		Words:      out.Words,
		Utterances: out.Utterances,
		Speakers:   distinctSpeakers(out.Utterances),
		Raw:        raw,
	}
	return tr, out.Status, nil
}

// distinctSpeakers collects speaker labels in first-seen order.
func distinctSpeakers(utts []Utterance) []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, u := range utts {
		if u.Speaker == "" {
			continue
		}
		if _, ok := seen[u.Speaker]; ok {
			continue
		}
		seen[u.Speaker] = struct{}{}
		out = append(out, u.Speaker)
	}
	return out
}
