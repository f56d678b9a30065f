package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/exzly/exzly/internal/models"
)

// ErrorResponse is the JSON error envelope shared by every API error.
type ErrorResponse struct {
	Error   string              `json:"error"`             // Machine-readable error code
	Message string              `json:"message"`           // Human-readable message
	Details []models.FieldError `json:"details,omitempty"` // Field-level validation detail
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a 400 carrying every violated field.
func WriteValidationError(w http.ResponseWriter, ve *models.ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := ErrorResponse{
		Error:   "validation_error",
		Message: "Validation failed",
		Details: ve.Fields,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteDomainError is the single boundary that maps the shared error
// taxonomy to an API response. Validation errors keep their field list;
// store failures are replaced with a generic message outside development
// so schema and driver detail never leaks.
func WriteDomainError(w http.ResponseWriter, err error, env string) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		WriteValidationError(w, ve)
		return
	}

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrForbidden):
		WriteForbidden(w, "Permission denied")
	case errors.Is(err, models.ErrNotFound):
		WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		WriteBadRequest(w, "Bad request")
	default:
		if env == "development" {
			WriteInternalError(w, err.Error())
			return
		}
		WriteInternalError(w, "Internal server error")
	}
}
