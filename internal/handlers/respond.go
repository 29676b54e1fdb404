package handlers

import (
	"encoding/json"
	"net/http"

	"portfolio-assistant/internal/models"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(errText, message string) models.ErrorResponse {
	return models.ErrorResponse{Error: errText, Message: message}
}
