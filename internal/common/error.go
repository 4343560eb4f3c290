package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteError replies with a {"error": ...} JSON body and the given status.
func WriteError(w http.ResponseWriter, text string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := errorResponse{Error: text}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write error JSON response", "error", err)
	}
}
