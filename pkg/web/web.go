package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Envelope is the wire shape every endpoint responds with. Clients key off
// Error.Code, never the message text.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *ErrBody  `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrBody carries a stable machine-readable code plus a human message.
type ErrBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decode reads a JSON request body into dest, rejecting unknown fields.
func Decode(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// Respond writes a success envelope with the given payload.
func Respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// RespondError writes a failure envelope with a stable error code.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = "unknown error"
	}
	writeJSON(w, status, Envelope{
		Success:   false,
		Error:     &ErrBody{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
