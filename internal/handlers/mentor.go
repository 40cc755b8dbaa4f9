package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/canonical"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/forward"
	"github.com/fleetwatch/fleetwatch/internal/notify"
	"github.com/fleetwatch/fleetwatch/internal/services"
	"github.com/fleetwatch/fleetwatch/internal/ws"
)

// MentorHandler exposes the mentor service's API: the alert ingestion
// endpoint fed by the devices service, and the read surface consumed by
// the dashboard. Ingestion re-validates canonical fields independently —
// the endpoint is reachable directly, so it does not trust upstream
// validation.
type MentorHandler struct {
	dashboardService *services.DashboardService
	hub              *ws.Hub
	notifier         *notify.SlackNotifier
}

// NewMentorHandler creates a new mentor API handler. The hub and notifier
// may be nil; ingestion then skips the corresponding side effects.
func NewMentorHandler(dashboardService *services.DashboardService, hub *ws.Hub, notifier *notify.SlackNotifier) *MentorHandler {
	return &MentorHandler{
		dashboardService: dashboardService,
		hub:              hub,
		notifier:         notifier,
	}
}

// SetupRoutes configures all mentor-service routes.
func (h *MentorHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc(forward.IngestPath, h.handleIngest)
	mux.HandleFunc("/api/alerts", h.handleListAlerts)
	mux.HandleFunc("/api/alerts/summary", h.handleSummary)
}

// handleIngest accepts a forwarded (or directly posted) alert and
// persists it for dashboard consumption.
func (h *MentorHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AlertRequest
	if err := decodeValidated(r, canonical.EntityAlert, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !database.ValidAlertLevel(req.Level) {
		api.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("level must be one of: %s", strings.Join(database.AlertLevels(), ", ")))
		return
	}
	if req.AlertType == "" {
		api.RespondError(w, http.StatusBadRequest, "alert_type is required")
		return
	}

	// Forwarded alerts arrive already normalized, but direct submissions
	// may not be; normalization is deterministic so re-running it on an
	// already-canonical id is a no-op.
	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alert := &database.MentorAlert{
		DeviceID:  id.DeviceID,
		Level:     req.Level,
		AlertType: req.AlertType,
		Message:   req.Message,
		Value:     req.Value,
		Threshold: req.Threshold,
	}
	if err := h.dashboardService.Ingest(alert); err != nil {
		log.Printf("Failed to store alert for device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store alert")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastAlert(alert)
	}
	if h.notifier != nil && alert.Level == string(database.AlertLevelCritical) {
		go h.notifier.NotifyAlert(alert)
	}

	api.RespondJSON(w, http.StatusCreated, alert)
}

func (h *MentorHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	p := api.ParsePagination(r)
	deviceID := r.URL.Query().Get("deviceid")
	level := r.URL.Query().Get("level")

	alerts, total, err := h.dashboardService.List(deviceID, level, p)
	if err != nil {
		log.Printf("Failed to list alerts: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":      alerts,
		"total":       total,
		"page":        p.Page,
		"per_page":    p.PerPage,
		"total_pages": p.TotalPages(total),
	})
}

func (h *MentorHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := h.dashboardService.Summary()
	if err != nil {
		log.Printf("Failed to summarize alerts: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "failed to summarize alerts")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"levels": summary})
}
