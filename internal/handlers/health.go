package handlers

import (
	"net/http"

	"github.com/fleetwatch/fleetwatch/internal/api"
)

// HealthHandler returns a simple liveness response naming the service.
type HealthHandler struct {
	service string
}

// NewHealthHandler creates a health handler for the named service.
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// SetupRoutes configures the health route.
func (h *HealthHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.service,
	})
}
