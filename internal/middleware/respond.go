package middleware

import (
	"encoding/json"
	"net/http"

	"portfolio-assistant/internal/models"
)

func writeError(w http.ResponseWriter, status int, errText, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: errText, Message: message})
}
