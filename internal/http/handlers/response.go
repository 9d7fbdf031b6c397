// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by all endpoints. Two error
// shapes coexist on purpose:
//
//   - ErrorResponse {request_id, code, message}: the standard envelope for
//     application endpoints (moods, exercises, chat sessions, history).
//   - ProxyError {error, details}: the shape of the AI pass-through endpoints
//     (/api/chat, /api/openrouter, /api/exercises/generate,
//     /api/test-transcribe), which preserve the upstream status code and
//     mirror the contract browser clients already depend on.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindwell/go-mindwell-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by application
// endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// ProxyError is the error shape of the AI pass-through endpoints.
type ProxyError struct {
	Error   string `json:"error" example:"Failed to get response from OpenRouter"`
	Details string `json:"details,omitempty"`
}

// fail aborts the request with the standard envelope and logs 5xx responses
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// proxyFail aborts an AI pass-through request with the {error, details}
// shape, preserving whatever status the upstream produced.
func proxyFail(c *gin.Context, status int, errMsg, details string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("error", errMsg).
			Str("details", details).
			Msg("proxy error")
	}
	c.AbortWithStatusJSON(status, ProxyError{Error: errMsg, Details: details})
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
