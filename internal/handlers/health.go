package handlers

import (
	"net/http"
	"time"

	"portfolio-assistant/internal/models"
)

type HealthHandler struct {
	env string
}

func NewHealthHandler(env string) *HealthHandler {
	return &HealthHandler{env: env}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:      "Server is running",
		Timestamp:   models.Timestamp(time.Now()),
		Environment: h.env,
	})
}

// NotFound answers every unmatched route and method.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResp(errNotFound, ""))
}
