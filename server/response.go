package server

import (
	"encoding/json"
	"net/http"

	"github.com/malonaz/popchat/internal/debug"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code and payload.
func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written.
		debug.GetLogger().Error("encoding json response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, &ErrorResponse{Error: message})
}
