package api

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is the machine-readable code of an API error.
type ErrorCode string

const (
	ErrCodeInvalidRequest   ErrorCode = "invalid_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeInternalError    ErrorCode = "internal_error"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
)

var errorStatus = map[ErrorCode]int{
	ErrCodeInvalidRequest:   http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeInternalError:    http.StatusInternalServerError,
	ErrCodeValidationFailed: http.StatusBadRequest,
}

// APIError is the body of every error response, wrapped as {"error": ...}.
type APIError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse wraps an APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WriteError writes err with the HTTP status that belongs to its code.
func WriteError(w http.ResponseWriter, err APIError) {
	status, ok := errorStatus[err.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

func WriteInvalidRequest(w http.ResponseWriter, message string) {
	WriteError(w, APIError{Code: ErrCodeInvalidRequest, Message: message})
}

func WriteNotFound(w http.ResponseWriter, resource string) {
	WriteError(w, APIError{Code: ErrCodeNotFound, Message: resource + " not found"})
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, APIError{Code: ErrCodeForbidden, Message: message})
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, APIError{Code: ErrCodeInternalError, Message: message})
}

// WriteValidationError writes a 400 with per-field messages keyed by field name.
func WriteValidationError(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, APIError{Code: ErrCodeValidationFailed, Message: message, Details: details})
}
