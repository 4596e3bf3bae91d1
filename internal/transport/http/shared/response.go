// Package shared holds the JSON response helpers every handler uses, so the
// error envelope stays identical across the API surface.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "luckdraw/pkg/domain-errors"
)

// ErrorResponse is the wire form of a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Non-domain errors map to internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := "internal error"
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Reason:  string(dErrors.ReasonOf(err)),
		Message: message,
	})
}
