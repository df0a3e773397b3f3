// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/meetly/meetly/internal/handler/dto"
	"github.com/meetly/meetly/internal/middleware"
	"github.com/meetly/meetly/internal/service"
	"github.com/meetly/meetly/internal/storage"
)

// NotFound handles 404 responses for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads a JSON body into dst. It answers the request itself and
// returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "", "Request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is required")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	}
	return false
}

// handleServiceError maps service and storage errors to HTTP responses.
// Unexpected errors are logged with the request id and reported as 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		validation *service.ValidationError
		maxErr     *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", validation.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed")
	case errors.Is(err, service.ErrMeetingInPast):
		writeError(w, http.StatusBadRequest, "MEETING_IN_PAST", "Meeting must end in the future")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	case errors.Is(err, service.ErrMeetingNotFound):
		writeError(w, http.StatusNotFound, "MEETING_NOT_FOUND", "Meeting not found")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered")
	case errors.Is(err, storage.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Path is outside the upload area")
	case errors.Is(err, storage.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "File is empty")
	case errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Unsupported file type")
	case errors.Is(err, storage.ErrTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "", "File too large")
	default:
		logger.ErrorContext(r.Context(), "internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
