package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ApiError is the error body returned by every endpoint.
type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ApiErrorResponse struct {
	Error ApiError `json:"error"`
}

// newErrorResponse creates an ApiErrorResponse with the given code and message
func newErrorResponse(code, message string) ApiErrorResponse {
	return ApiErrorResponse{
		Error: ApiError{
			Code:    code,
			Message: message,
		},
	}
}

// Common error codes
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeBodyTooLarge    = "BODY_TOO_LARGE"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, newErrorResponse(code, message))
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func badRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, code, message)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("unhandled handler error",
		"error", err.Error(),
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
}
