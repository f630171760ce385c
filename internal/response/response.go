// Package response provides shared response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorInfo is the body of every failed archive response.
type ErrorInfo struct {
	Error string `json:"error" example:"ContentFetchFailed"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data as the whole body.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Text writes a plain-text body.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Failure writes a 400 response carrying the error kind.
func Failure(w http.ResponseWriter, kind string) {
	JSON(w, http.StatusBadRequest, ErrorInfo{Error: kind})
}

// BadRequest writes a 400 response with no body. Guard failures and malformed
// requests share it so callers cannot tell them apart.
func BadRequest(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	JSON(w, http.StatusNotFound, ErrorInfo{Error: message})
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	JSON(w, http.StatusInternalServerError, ErrorInfo{Error: "internal server error"})
}
