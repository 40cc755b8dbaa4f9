package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/canonical"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/identity"
	"github.com/fleetwatch/fleetwatch/internal/services"
)

// DevicesHandler exposes the devices-service ingestion API: registration,
// telemetry, and alert submission. Every payload goes through the
// canonical field validator before anything touches the database.
type DevicesHandler struct {
	deviceService *services.DeviceService
	alertService  *services.AlertService
}

// NewDevicesHandler creates a new devices ingestion handler.
func NewDevicesHandler(deviceService *services.DeviceService, alertService *services.AlertService) *DevicesHandler {
	return &DevicesHandler{
		deviceService: deviceService,
		alertService:  alertService,
	}
}

// SetupRoutes configures all devices-service routes.
func (h *DevicesHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/metrics", h.handleMetrics)
	mux.HandleFunc("/api/activities", h.handleActivities)
	mux.HandleFunc("/api/processes", h.handleProcesses)
	mux.HandleFunc("/api/alerts", h.handleAlerts)
}

// decodeValidated reads a JSON body, rejects legacy field names for the
// entity context, and binds the payload to dst. Validation runs before
// any database access so a malformed request cannot leave partial writes.
func decodeValidated(r *http.Request, entity canonical.Entity, dst interface{}) error {
	body, err := api.ReadBody(r)
	if err != nil {
		return err
	}
	obj, err := api.ParseObject(body)
	if err != nil {
		return err
	}
	if err := canonical.ValidateFields(entity, obj); err != nil {
		return err
	}
	return api.Unmarshal(body, dst)
}

// normalizeDeviceID maps the raw identifier to its canonical UUID,
// translating an empty id into the client-facing error.
func normalizeDeviceID(raw string) (identity.Result, error) {
	id, err := identity.Normalize(raw)
	if errors.Is(err, identity.ErrEmptyDeviceID) {
		return identity.Result{}, errors.New("deviceid is required")
	}
	return id, err
}

// RegisterRequest is the device registration payload.
type RegisterRequest struct {
	DeviceID       string `json:"deviceid"`
	DeviceName     string `json:"device_name"`
	DeviceLocation string `json:"device_location"`
}

func (h *DevicesHandler) handleDevices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleRegister(w, r)
	case http.MethodGet:
		h.handleListDevices(w, r)
	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *DevicesHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeValidated(r, canonical.EntityDevice, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := h.deviceService.Register(id, req.DeviceName, req.DeviceLocation)
	if err != nil {
		log.Printf("Failed to register device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store device")
		return
	}

	api.RespondJSON(w, http.StatusCreated, device)
}

func (h *DevicesHandler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deviceService.List()
	if err != nil {
		log.Printf("Failed to list devices: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   len(devices),
	})
}

// MetricRequest is the metric submission payload.
type MetricRequest struct {
	DeviceID    string   `json:"deviceid"`
	MetricName  string   `json:"metric_name"`
	MetricValue *float64 `json:"metric_value"`
	Unit        string   `json:"unit"`
}

func (h *DevicesHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req MetricRequest
	if err := decodeValidated(r, canonical.EntityDevice, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MetricName == "" {
		api.RespondError(w, http.StatusBadRequest, "metric_name is required")
		return
	}
	if req.MetricValue == nil {
		api.RespondError(w, http.StatusBadRequest, "metric_value is required")
		return
	}

	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	metric := &database.DeviceMetric{
		DeviceID:    id.DeviceID,
		MetricName:  req.MetricName,
		MetricValue: *req.MetricValue,
		Unit:        req.Unit,
	}
	if err := h.deviceService.AddMetric(metric); err != nil {
		log.Printf("Failed to store metric for device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store metric")
		return
	}

	api.RespondJSON(w, http.StatusCreated, metric)
}

// ActivityRequest is the activity submission payload.
type ActivityRequest struct {
	DeviceID     string `json:"deviceid"`
	ActivityType string `json:"activity_type"`
	Details      string `json:"details"`
}

func (h *DevicesHandler) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ActivityRequest
	if err := decodeValidated(r, canonical.EntityActivity, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ActivityType == "" {
		api.RespondError(w, http.StatusBadRequest, "activity_type is required")
		return
	}

	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	activity := &database.DeviceActivity{
		DeviceID:     id.DeviceID,
		ActivityType: req.ActivityType,
		Details:      req.Details,
	}
	if err := h.deviceService.AddActivity(activity); err != nil {
		log.Printf("Failed to store activity for device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store activity")
		return
	}

	api.RespondJSON(w, http.StatusCreated, activity)
}

// ProcessRequest is the process report payload.
type ProcessRequest struct {
	DeviceID      string   `json:"deviceid"`
	ProcessName   string   `json:"process_name"`
	CommandText   string   `json:"command_text"`
	PID           *int     `json:"pid"`
	CPUPercent    *float64 `json:"cpu_percent"`
	MemoryPercent *float64 `json:"memory_percent"`
}

func (h *DevicesHandler) handleProcesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ProcessRequest
	if err := decodeValidated(r, canonical.EntityProcess, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProcessName == "" {
		api.RespondError(w, http.StatusBadRequest, "process_name is required")
		return
	}

	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	process := &database.DeviceProcess{
		DeviceID:      id.DeviceID,
		ProcessName:   req.ProcessName,
		CommandText:   req.CommandText,
		PID:           req.PID,
		CPUPercent:    req.CPUPercent,
		MemoryPercent: req.MemoryPercent,
	}
	if err := h.deviceService.AddProcess(process); err != nil {
		log.Printf("Failed to store process for device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store process")
		return
	}

	api.RespondJSON(w, http.StatusCreated, process)
}

// AlertRequest is the alert submission payload.
type AlertRequest struct {
	DeviceID  string   `json:"deviceid"`
	Level     string   `json:"level"`
	AlertType string   `json:"alert_type"`
	Message   string   `json:"message"`
	Value     *float64 `json:"value"`
	Threshold *float64 `json:"threshold"`
}

func (h *DevicesHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmitAlert(w, r)
	case http.MethodGet:
		h.handleListAlerts(w, r)
	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSubmitAlert is the alert ingestion path: validate, normalize,
// persist locally, then attempt a best-effort forward. The response
// reflects only the local outcome; forward failures never surface here.
func (h *DevicesHandler) handleSubmitAlert(w http.ResponseWriter, r *http.Request) {
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

	id, err := normalizeDeviceID(req.DeviceID)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alert := &database.Alert{
		DeviceID:   id.DeviceID,
		OriginalID: id.OriginalID,
		Normalized: id.Normalized,
		Level:      req.Level,
		AlertType:  req.AlertType,
		Message:    req.Message,
		Value:      req.Value,
		Threshold:  req.Threshold,
	}

	stored, err := h.alertService.Submit(r.Context(), alert)
	if err != nil {
		log.Printf("Failed to store alert for device %s: %v", id.DeviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "failed to store alert")
		return
	}

	h.deviceService.Touch(id.DeviceID)
	api.RespondJSON(w, http.StatusCreated, stored)
}

func (h *DevicesHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	p := api.ParsePagination(r)
	deviceID := r.URL.Query().Get("deviceid")
	level := r.URL.Query().Get("level")

	alerts, total, err := h.alertService.List(deviceID, level, p)
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
