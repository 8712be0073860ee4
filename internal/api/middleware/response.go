package middleware

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every API response.
type Envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteSuccess writes data inside a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, message, details string) {
	WriteJSON(w, status, Envelope{Error: &ErrorPayload{Message: message, Details: details}})
}
