package database

import (
	"time"
)

// AlertLevel is the fixed severity set accepted on alert submissions.
type AlertLevel string

const (
	AlertLevelLow      AlertLevel = "low"
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// ValidAlertLevel reports whether s is one of the accepted severities.
func ValidAlertLevel(s string) bool {
	switch AlertLevel(s) {
	case AlertLevelLow, AlertLevelMedium, AlertLevelHigh, AlertLevelCritical:
		return true
	}
	return false
}

// AlertLevels lists the accepted severities, for error messages.
func AlertLevels() []string {
	return []string{
		string(AlertLevelLow),
		string(AlertLevelMedium),
		string(AlertLevelHigh),
		string(AlertLevelCritical),
	}
}

// ForwardStatus tracks propagation of a locally stored alert to the
// mentor service. Local durability is the primary guarantee; forwarding
// is best-effort and the status records where each alert got to.
type ForwardStatus string

const (
	ForwardStatusPending   ForwardStatus = "pending"
	ForwardStatusForwarded ForwardStatus = "forwarded"
	ForwardStatusFailed    ForwardStatus = "failed"
)

// Device is a registered device in the devices store. DeviceID is the
// canonical UUID produced by the identity normalizer; OriginalID keeps
// the raw identifier the client first registered with.
type Device struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	DeviceID       string     `gorm:"uniqueIndex;size:36;not null" json:"deviceid"`
	OriginalID     string     `gorm:"size:255" json:"original_id"`
	Normalized     bool       `gorm:"default:false" json:"normalized"`
	DeviceName     string     `gorm:"size:255" json:"device_name"`
	DeviceLocation string     `gorm:"size:255" json:"device_location"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}

// Alert is a locally persisted alert in the devices store. Forwarding
// metadata lives alongside the record so the reconciliation sweep can
// retry rows that never reached the mentor service.
type Alert struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	DeviceID        string        `gorm:"size:36;not null;index" json:"deviceid"`
	OriginalID      string        `gorm:"size:255" json:"original_id"`
	Normalized      bool          `gorm:"default:false" json:"normalized"`
	Level           string        `gorm:"size:16;not null" json:"level"`
	AlertType       string        `gorm:"size:128;not null" json:"alert_type"`
	Message         string        `gorm:"type:text" json:"message"`
	Value           *float64      `json:"value,omitempty"`
	Threshold       *float64      `json:"threshold,omitempty"`
	ForwardStatus   ForwardStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"forward_status"`
	ForwardAttempts int           `gorm:"default:0" json:"forward_attempts"`
	ForwardedAt     *time.Time    `json:"forwarded_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// MentorAlert is the mentor store's copy of a forwarded (or directly
// posted) alert. It correlates with the devices-store Alert only by
// deviceid and content; primary keys are independent per store.
type MentorAlert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  string    `gorm:"size:36;not null;index" json:"deviceid"`
	Level     string    `gorm:"size:16;not null;index" json:"level"`
	AlertType string    `gorm:"size:128;not null" json:"alert_type"`
	Message   string    `gorm:"type:text" json:"message"`
	Value     *float64  `json:"value,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (MentorAlert) TableName() string {
	return "mentor_alerts"
}

// DeviceMetric is a single metric sample reported by a device.
type DeviceMetric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DeviceID    string    `gorm:"size:36;not null;index" json:"deviceid"`
	MetricName  string    `gorm:"size:128;not null" json:"metric_name"`
	MetricValue float64   `json:"metric_value"`
	Unit        string    `gorm:"size:32" json:"unit,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DeviceMetric) TableName() string {
	return "device_metrics"
}

// DeviceActivity is an activity event reported by a device.
type DeviceActivity struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DeviceID     string    `gorm:"size:36;not null;index" json:"deviceid"`
	ActivityType string    `gorm:"size:128;not null" json:"activity_type"`
	Details      string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (DeviceActivity) TableName() string {
	return "device_activities"
}

// DeviceProcess is a process report from a device.
type DeviceProcess struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DeviceID      string    `gorm:"size:36;not null;index" json:"deviceid"`
	ProcessName   string    `gorm:"size:255;not null" json:"process_name"`
	CommandText   string    `gorm:"type:text" json:"command_text"`
	PID           *int      `json:"pid,omitempty"`
	CPUPercent    *float64  `json:"cpu_percent,omitempty"`
	MemoryPercent *float64  `json:"memory_percent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (DeviceProcess) TableName() string {
	return "device_processes"
}
