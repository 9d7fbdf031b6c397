// AI pass-through HTTP handlers.
//
// This file exposes the endpoints that forward to upstream AI providers:
//   - POST /api/chat             (OpenRouter chat completions, raw payload)
//   - POST /api/openrouter       (alias of /api/chat)
//   - GET  /api/openrouter/test  (connectivity check)
//   - POST /api/test-transcribe  (AssemblyAI transcription round-trip)
//
// These endpoints keep the {error, details} error shape and preserve the
// upstream status code instead of using the application envelope. The proxy
// performs no retries; a failed upstream call is reported once.
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/transcribe"
)

// maxUploadBytes caps transcription uploads (25 MiB).
const maxUploadBytes = 25 << 20

// AIHandlers groups the AI pass-through endpoints.
type AIHandlers struct {
	LLM        *llm.Client
	Transcribe *transcribe.Client
	// TempDir overrides os.TempDir() for uploads; tests point it at t.TempDir().
	TempDir string
}

// NewAIHandlers constructs AIHandlers.
func NewAIHandlers(llmClient *llm.Client, transcribeClient *transcribe.Client) *AIHandlers {
	return &AIHandlers{LLM: llmClient, Transcribe: transcribeClient}
}

// ChatCompletionRequest is the JSON payload for the chat proxy endpoints.
type ChatCompletionRequest struct {
	Messages []llm.Message `json:"messages"`
	Model    string        `json:"model,omitempty" example:"openai/gpt-4o-mini"`
}

// ChatProxy godoc
// @ID          chatProxy
// @Summary     Forward a chat completion request
// @Description Forwards messages to the OpenRouter chat-completions API and returns the upstream payload unchanged.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ChatCompletionRequest  true  "Messages and optional model"
// @Success     200 {object} map[string]any "Upstream completion payload"
// @Failure     400 {object} handlers.ProxyError
// @Failure     500 {object} handlers.ProxyError
// @Router      /api/chat [post]
func (h *AIHandlers) ChatProxy(c *gin.Context) {
	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		proxyFail(c, http.StatusBadRequest, "Messages array is required", "")
		return
	}
	if !h.LLM.Configured() {
		proxyFail(c, http.StatusInternalServerError, llm.ErrNoAPIKey.Error(), "")
		return
	}

	completion, err := h.LLM.ChatCompletion(c.Request.Context(), req.Messages, req.Model)
	if err != nil {
		status, details := upstreamStatus(err)
		proxyFail(c, status, "Failed to get response from OpenRouter", details)
		return
	}
	c.Data(http.StatusOK, "application/json", completion.Raw)
}

// OpenRouterTestResponse is the connectivity-check payload.
type OpenRouterTestResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ModelsAvailable int    `json:"models_available,omitempty"`
}

// OpenRouterTest godoc
// @ID          openRouterTest
// @Summary     Check OpenRouter connectivity
// @Description Verifies the configured API key by listing available models.
// @Tags        AI
// @Produce     json
// @Success     200 {object} handlers.OpenRouterTestResponse
// @Router      /api/openrouter/test [get]
func (h *AIHandlers) OpenRouterTest(c *gin.Context) {
	if !h.LLM.Configured() {
		ok(c, http.StatusOK, OpenRouterTestResponse{
			Success: false,
			Message: llm.ErrNoAPIKey.Error(),
		})
		return
	}

	count, err := h.LLM.ListModels(c.Request.Context())
	if err != nil {
		ok(c, http.StatusOK, OpenRouterTestResponse{
			Success: false,
			Message: "OpenRouter connection failed: " + err.Error(),
		})
		return
	}
	ok(c, http.StatusOK, OpenRouterTestResponse{
		Success:         true,
		Message:         "OpenRouter connection successful",
		ModelsAvailable: count,
	})
}

// TranscribeResponse wraps a successful transcription.
type TranscribeResponse struct {
	Success       bool                      `json:"success"`
	Transcription *transcribe.Transcription `json:"transcription"`
}

// TranscribeAudio godoc
// @ID          transcribeAudio
// @Summary     Transcribe an uploaded audio file
// @Description Uploads the audio to AssemblyAI, waits for the transcript, and returns text with words, speakers, and utterances.
// @Tags        AI
// @Accept      multipart/form-data
// @Produce     json
// @Param       file  formData  file  true  "Audio file"
// @Success     200 {object} handlers.TranscribeResponse
// @Failure     400 {object} handlers.ProxyError
// @Failure     500 {object} handlers.ProxyError
// @Router      /api/test-transcribe [post]
func (h *AIHandlers) TranscribeAudio(c *gin.Context) {
	if !h.Transcribe.Configured() {
		proxyFail(c, http.StatusInternalServerError, "AssemblyAI API key is not configured", "")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		proxyFail(c, http.StatusBadRequest, "Audio file is required", "")
		return
	}
	if file.Size > maxUploadBytes {
		proxyFail(c, http.StatusBadRequest, "Audio file too large", "")
		return
	}

	dir := h.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	tmpPath := filepath.Join(dir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		proxyFail(c, http.StatusInternalServerError, "Failed to store upload", err.Error())
		return
	}
	// the temp file must not survive this request, whatever happens below
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			middleware.LoggerFrom(c).Warn().Err(rmErr).Str("path", tmpPath).Msg("temp file cleanup failed")
		}
	}()

	result, err := h.Transcribe.TranscribeFile(c.Request.Context(), tmpPath)
	if err != nil {
		status, details := upstreamStatus(err)
		proxyFail(c, status, "Transcription failed", details)
		return
	}
	ok(c, http.StatusOK, TranscribeResponse{Success: true, Transcription: result})
}

// upstreamStatus maps an upstream client error to the HTTP status and detail
// string the proxy should forward. Non-HTTP failures become 500s.
func upstreamStatus(err error) (int, string) {
	var le *llm.UpstreamError
	if errors.As(err, &le) {
		return le.Status, le.Body
	}
	var te *transcribe.UpstreamError
	if errors.As(err, &te) {
		return te.Status, te.Body
	}
	return http.StatusInternalServerError, err.Error()
}
