// Package httpx holds the JSON response helpers shared by the API handlers.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorPayload is the body of every error response:
// {"error": {"code":"...","message":"..."}}
type ErrorPayload struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int    `json:"retryAfterSec,omitempty"`
}

// WriteJSON writes v with status 200.
func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

// WriteJSONStatus writes v with an explicit status code.
func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an error envelope whose code is the status text.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSONStatus(w, status, map[string]any{"error": ErrorPayload{Code: http.StatusText(status), Message: message}})
}

// WriteTypedError writes an error envelope with a stable machine-readable
// code and an optional Retry-After hint.
func WriteTypedError(w http.ResponseWriter, status int, code, message string, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteJSONStatus(w, status, map[string]any{"error": ErrorPayload{Code: code, Message: message, RetryAfterSec: retryAfter}})
}
