// Package shared centralizes JSON envelopes so every handler speaks the same
// error dialect.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "kidgate/pkg/errors"
)

// WriteJSON serializes a payload with a status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError translates a coded domain error into its HTTP envelope. Only the
// code crosses the wire; messages stay in logs.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{"error": string(code)})
}
