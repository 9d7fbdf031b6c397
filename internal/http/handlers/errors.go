// Package handlers defines the HTTP-layer error codes used across all
// application endpoints. Codes are lowercase snake_case; generic codes mirror
// HTTP status semantics, domain-specific codes cover business failures that a
// status alone cannot convey. The AI pass-through endpoints do not use these
// codes (see ProxyError in response.go).
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeCreateFailed   = "create_failed"
	ErrCodeListFailed     = "list_failed"
	ErrCodeSendFailed     = "send_failed"
	ErrCodeGenerateFailed = "generate_failed"
	ErrCodeTimerConflict  = "timer_conflict"
)
