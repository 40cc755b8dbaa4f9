package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/forward"
	"github.com/fleetwatch/fleetwatch/internal/services"
	"github.com/fleetwatch/fleetwatch/internal/testhelpers"
)

func newDevicesHandler(t *testing.T, forwarder *forward.Forwarder) (*DevicesHandler, *gorm.DB) {
	t.Helper()
	db := testhelpers.OpenTestDB(t)
	deviceService := services.NewDeviceService(db)
	alertService := services.NewAlertService(db, forwarder)
	return NewDevicesHandler(deviceService, alertService), db
}

func TestRegisterDeviceLegacyFieldRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]interface{}
		wantMsg string
	}{
		{
			name:    "legacy id",
			body:    map[string]interface{}{"id": "device-short123", "device_name": "Sensor"},
			wantMsg: "unsupported legacy field: id; use deviceid",
		},
		{
			name:    "legacy name",
			body:    map[string]interface{}{"deviceid": "device-short123", "name": "Sensor"},
			wantMsg: "unsupported legacy field: name; use device_name",
		},
		{
			name:    "legacy location",
			body:    map[string]interface{}{"deviceid": "device-short123", "location": "Lab"},
			wantMsg: "unsupported legacy field: location; use device_location",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, db := newDevicesHandler(t, nil)

			var resp struct {
				Detail string `json:"detail"`
			}
			testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
				WithJSONBody(tt.body).
				ExecuteFunc(handler.handleDevices).
				AssertStatus(http.StatusBadRequest).
				DecodeJSON(&resp)
			testhelpers.AssertEqual(t, tt.wantMsg, resp.Detail, "error detail")

			var count int64
			db.Model(&database.Device{}).Count(&count)
			testhelpers.AssertEqual(t, int64(0), count, "no row persisted on rejection")
		})
	}
}

func TestRegisterDeviceNormalizesID(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	var resp database.Device
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":        "device-short123",
			"device_name":     "Short Sensor",
			"device_location": "Lab 2",
		}).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)

	if len(resp.DeviceID) != 36 {
		t.Errorf("expected canonical UUID device id, got %q", resp.DeviceID)
	}
	testhelpers.AssertEqual(t, "device-short123", resp.OriginalID, "original id echoed")
	testhelpers.AssertEqual(t, true, resp.Normalized, "normalized flag")
}

func TestRegisterDeviceCanonicalUUIDUnchanged(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)
	raw := "550e8400-e29b-41d4-a716-446655440000"

	var resp database.Device
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
		WithJSONBody(map[string]interface{}{"deviceid": raw, "device_name": "UUID Sensor"}).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)

	testhelpers.AssertEqual(t, raw, resp.DeviceID, "canonical UUID passes through")
	testhelpers.AssertEqual(t, false, resp.Normalized, "no normalization needed")
}

func TestRegisterDeviceMissingID(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
		WithJSONBody(map[string]interface{}{"device_name": "No ID"}).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("deviceid is required")
}

func TestRegisterDeviceMalformedJSON(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
		WithRawBody(`{"deviceid": `).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusBadRequest)
}

func TestListDevices(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/devices", nil).
		WithJSONBody(map[string]interface{}{"deviceid": "sensor-a", "device_name": "A"}).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusCreated)

	var resp struct {
		Devices []database.Device `json:"devices"`
		Total   int               `json:"total"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/devices", nil).
		ExecuteFunc(handler.handleDevices).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)
	testhelpers.AssertEqual(t, 1, resp.Total, "device total")
}

func TestSubmitAlertPersistsAndForwards(t *testing.T) {
	var forwarded int
	mentor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded++
		w.WriteHeader(http.StatusCreated)
	}))
	defer mentor.Close()

	handler, db := newDevicesHandler(t, forward.NewForwarder(mentor.URL, 0))

	var resp database.Alert
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":   "device-short123",
			"level":      "high",
			"alert_type": "cpu_usage",
			"message":    "CPU above threshold",
			"value":      97.5,
			"threshold":  90,
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)

	testhelpers.AssertEqual(t, 1, forwarded, "one forward attempt")
	testhelpers.AssertEqual(t, database.ForwardStatusForwarded, resp.ForwardStatus, "forward status")
	testhelpers.AssertEqual(t, "device-short123", resp.OriginalID, "original id")
	testhelpers.AssertEqual(t, true, resp.Normalized, "normalized flag")
	if len(resp.DeviceID) != 36 {
		t.Errorf("expected canonical UUID, got %q", resp.DeviceID)
	}

	var count int64
	db.Model(&database.Alert{}).Count(&count)
	testhelpers.AssertEqual(t, int64(1), count, "alert persisted locally")
}

func TestSubmitAlertForwardFailureStillCreated(t *testing.T) {
	mentor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	mentor.Close() // mentor service down

	handler, db := newDevicesHandler(t, forward.NewForwarder(mentor.URL, 0))

	var resp database.Alert
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":   "550e8400-e29b-41d4-a716-446655440000",
			"level":      "critical",
			"alert_type": "temperature",
			"message":    "overheating",
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)

	testhelpers.AssertEqual(t, database.ForwardStatusFailed, resp.ForwardStatus, "forward status")

	var row database.Alert
	testhelpers.AssertNoError(t, db.First(&row, resp.ID).Error, "alert persisted despite forward failure")
}

func TestSubmitAlertLegacyTypeRejected(t *testing.T) {
	handler, db := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid": "device-short123",
			"level":    "high",
			"type":     "cpu_usage",
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("unsupported legacy field: type; use alert_type")

	var count int64
	db.Model(&database.Alert{}).Count(&count)
	testhelpers.AssertEqual(t, int64(0), count, "no alert persisted on rejection")
}

func TestSubmitAlertLegacyIDRejected(t *testing.T) {
	handler, db := newDevicesHandler(t, nil)

	var resp struct {
		Detail string `json:"detail"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"id":         "device-1",
			"level":      "low",
			"alert_type": "x",
			"message":    "y",
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusBadRequest).
		DecodeJSON(&resp)
	testhelpers.AssertEqual(t, "unsupported legacy field: id; use deviceid", resp.Detail, "error detail")

	var count int64
	db.Model(&database.Alert{}).Count(&count)
	testhelpers.AssertEqual(t, int64(0), count, "no alert persisted on rejection")
}

func TestSubmitAlertInvalidLevel(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":   "device-short123",
			"level":      "severe",
			"alert_type": "cpu_usage",
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("level must be one of: low, medium, high, critical")
}

func TestSubmitAlertMissingType(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid": "device-short123",
			"level":    "high",
		}).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("alert_type is required")
}

func TestListAlertsPagination(t *testing.T) {
	handler, db := newDevicesHandler(t, nil)

	for i := 0; i < 3; i++ {
		alert := testhelpers.NewAlertBuilder().Build()
		testhelpers.AssertNoError(t, db.Create(&alert).Error, "seed alert")
	}

	var resp struct {
		Alerts     []database.Alert `json:"alerts"`
		Total      int64            `json:"total"`
		Page       int              `json:"page"`
		PerPage    int              `json:"per_page"`
		TotalPages int              `json:"total_pages"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?page=1&per_page=2", nil).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	testhelpers.AssertEqual(t, int64(3), resp.Total, "total")
	testhelpers.AssertEqual(t, 2, len(resp.Alerts), "page size")
	testhelpers.AssertEqual(t, 2, resp.TotalPages, "total pages")
}

func TestSubmitMetric(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	var resp database.DeviceMetric
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/metrics", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":     "sensor-a",
			"metric_name":  "temperature",
			"metric_value": 21.5,
			"unit":         "celsius",
		}).
		ExecuteFunc(handler.handleMetrics).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)
	testhelpers.AssertEqual(t, "temperature", resp.MetricName, "metric name")
}

func TestSubmitMetricMissingValue(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/metrics", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":    "sensor-a",
			"metric_name": "temperature",
		}).
		ExecuteFunc(handler.handleMetrics).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("metric_value is required")
}

func TestSubmitActivityLegacyTypeRejected(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/activities", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid": "sensor-a",
			"type":     "boot",
		}).
		ExecuteFunc(handler.handleActivities).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("unsupported legacy field: type; use activity_type")
}

func TestSubmitActivityLegacyIDRejected(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/activities", nil).
		WithJSONBody(map[string]interface{}{
			"id":            "sensor-a",
			"activity_type": "boot",
		}).
		ExecuteFunc(handler.handleActivities).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("unsupported legacy field: id; use deviceid")
}

func TestSubmitProcessLegacyFieldsRejected(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/processes", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid": "sensor-a",
			"command":  "/usr/bin/telemetryd",
		}).
		ExecuteFunc(handler.handleProcesses).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("unsupported legacy field: command; use command_text")
}

func TestSubmitProcessLegacyIDRejected(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/processes", nil).
		WithJSONBody(map[string]interface{}{
			"id":           "sensor-a",
			"process_name": "telemetryd",
		}).
		ExecuteFunc(handler.handleProcesses).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("unsupported legacy field: id; use deviceid")
}

func TestSubmitProcess(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	var resp database.DeviceProcess
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/processes", nil).
		WithJSONBody(map[string]interface{}{
			"deviceid":     "sensor-a",
			"process_name": "telemetryd",
			"command_text": "/usr/bin/telemetryd --daemon",
			"pid":          4242,
		}).
		ExecuteFunc(handler.handleProcesses).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)
	testhelpers.AssertEqual(t, "telemetryd", resp.ProcessName, "process name")
	if resp.PID == nil || *resp.PID != 4242 {
		t.Errorf("expected pid 4242, got %v", resp.PID)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newDevicesHandler(t, nil)

	testhelpers.NewHTTPTestContext(t, http.MethodDelete, "/api/alerts", nil).
		ExecuteFunc(handler.handleAlerts).
		AssertStatus(http.StatusMethodNotAllowed)
}
