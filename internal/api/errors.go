package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/inteldesk/inteldesk/internal/delivery"
	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/store"
)

// respondSafeError logs the full internal error and sends a sanitized JSON
// error response. Internal details (SQL errors, file paths, upstream
// hostnames) must never reach API consumers.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		logger.Error("request failed", "status", code, "public", publicMsg, "error", internalErr)
	}
	respondError(w, code, publicMsg)
}

// respondDomainError maps known error types to their HTTP status. Anything
// unrecognized is treated as internal and sanitized.
func respondDomainError(w http.ResponseWriter, err error) {
	var missing domain.MissingFieldError
	var invalid domain.InvalidFieldError

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, delivery.ErrAlreadySent):
		respondError(w, http.StatusConflict, "email already sent")
	case errors.Is(err, delivery.ErrCancelled):
		respondError(w, http.StatusConflict, "email is cancelled")
	case errors.As(err, &missing), errors.As(err, &invalid):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondSafeError(w, http.StatusInternalServerError, err, safeErrorMessage(err))
	}
}

// safeErrorMessage maps common internal error patterns to public-safe
// messages for 5xx responses.
func safeErrorMessage(internalErr error) string {
	if internalErr == nil {
		return "an internal error occurred"
	}
	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "request timed out"

	case strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "transaction") ||
		strings.Contains(errStr, "database"):
		return "a database error occurred"

	case strings.Contains(errStr, "send email") ||
		strings.Contains(errStr, "smtp") ||
		strings.Contains(errStr, "ses"):
		return "email delivery failed"

	default:
		return "an internal error occurred"
	}
}
