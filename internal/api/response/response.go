package response

import (
	"encoding/json"
	"net/http"
)

// Error kinds carried end-to-end so the calling UI can map each failure to a
// distinct message.
const (
	KindInvalidArgument     = "invalid_argument"
	KindAuthorizationDenied = "authorization_denied"
	KindFailedPrecondition  = "failed_precondition"
	KindResourceExhausted   = "resource_exhausted"
	KindPermissionDenied    = "permission_denied"
	KindInternal            = "internal"
)

// APIResponse is the standard API response wrapper
type APIResponse struct {
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
}

// Meta contains request metadata
type Meta struct {
	RequestID    string `json:"request_id"`
	ResponseTime int64  `json:"response_time_ms"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Nothing sensible left to write at this point.
			return
		}
	}
}

// Success writes a success response with data
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, APIResponse{
		Data: data,
	})
}

// Created writes a 201 created response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, APIResponse{
		Data: data,
	})
}

// Error writes an error response with a machine-readable kind
func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, APIResponse{
		Error:     message,
		ErrorKind: kind,
	})
}

// BadRequest writes a 400 invalid-argument response
func BadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	Error(w, http.StatusBadRequest, KindInvalidArgument, message)
}

// Unauthorized writes a 401 permission-denied response (unknown credential)
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unknown credential"
	}
	Error(w, http.StatusUnauthorized, KindPermissionDenied, message)
}

// Forbidden writes a 403 authorization-denied response
func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authorization denied"
	}
	Error(w, http.StatusForbidden, KindAuthorizationDenied, message)
}

// Conflict writes a 409 failed-precondition response
func Conflict(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Precondition failed"
	}
	Error(w, http.StatusConflict, KindFailedPrecondition, message)
}

// TooManyRequests writes a 429 resource-exhausted response
func TooManyRequests(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Quota exceeded"
	}
	Error(w, http.StatusTooManyRequests, KindResourceExhausted, message)
}

// InternalError writes a 500 internal server error response
func InternalError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal server error"
	}
	Error(w, http.StatusInternalServerError, KindInternal, message)
}

// NoContent writes a 204 no content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// NewMeta creates a new meta struct
func NewMeta(requestID string, responseTimeMs int64) *Meta {
	return &Meta{
		RequestID:    requestID,
		ResponseTime: responseTimeMs,
	}
}
