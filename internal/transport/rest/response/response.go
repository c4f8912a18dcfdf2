// Package response writes the wire envelope every turnero HTTP handler
// responds with: {"success", "data", "error"}.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the single shape every endpoint responds with, success or
// failure, matching the service's external HTTP contract.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// JSON writes raw JSON with Content-Type.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"success": true, "data": payload, "error": null}.
func OK(w http.ResponseWriter, status int, payload any) {
	JSON(w, status, Envelope{Success: true, Data: payload, Error: nil})
}

// Fail writes {"success": false, "data": null, "error": message}. payload,
// when non-nil, is merged in place of a bare null data field so callers
// like the DUPLICATE_PLATE 409 can still carry a body (e.g. numeroTurno).
func Fail(w http.ResponseWriter, status int, message string, payload any) {
	JSON(w, status, Envelope{Success: false, Data: payload, Error: &message})
}
