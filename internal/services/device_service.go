package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/identity"
)

// DeviceService owns the devices store's registration and telemetry
// records (metrics, activities, process reports).
type DeviceService struct {
	db *gorm.DB
}

// NewDeviceService creates a new device service.
func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

// Register creates or updates a device record for the normalized
// identity. Re-registration with the same raw id resolves to the same
// row because normalization is deterministic.
func (s *DeviceService) Register(id identity.Result, name, location string) (*database.Device, error) {
	now := time.Now()

	var device database.Device
	err := s.db.Where("device_id = ?", id.DeviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		device = database.Device{
			DeviceID:       id.DeviceID,
			OriginalID:     id.OriginalID,
			Normalized:     id.Normalized,
			DeviceName:     name,
			DeviceLocation: location,
			LastSeen:       &now,
		}
		if err := s.db.Create(&device).Error; err != nil {
			return nil, fmt.Errorf("failed to store device: %w", err)
		}
		return &device, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	updates := map[string]interface{}{"last_seen": now}
	if name != "" {
		updates["device_name"] = name
	}
	if location != "" {
		updates["device_location"] = location
	}
	if err := s.db.Model(&device).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}
	return &device, nil
}

// List returns all registered devices, most recently updated first.
func (s *DeviceService) List() ([]database.Device, error) {
	var devices []database.Device
	if err := s.db.Order("updated_at desc").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Touch updates a device's last-seen timestamp if the device is
// registered. Unregistered devices are tolerated; telemetry does not
// require prior registration.
func (s *DeviceService) Touch(deviceID string) {
	now := time.Now()
	s.db.Model(&database.Device{}).Where("device_id = ?", deviceID).Update("last_seen", now)
}

// AddMetric stores a metric sample.
func (s *DeviceService) AddMetric(m *database.DeviceMetric) error {
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("failed to store metric: %w", err)
	}
	s.Touch(m.DeviceID)
	return nil
}

// AddActivity stores an activity event.
func (s *DeviceService) AddActivity(a *database.DeviceActivity) error {
	if err := s.db.Create(a).Error; err != nil {
		return fmt.Errorf("failed to store activity: %w", err)
	}
	s.Touch(a.DeviceID)
	return nil
}

// AddProcess stores a process report.
func (s *DeviceService) AddProcess(p *database.DeviceProcess) error {
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to store process: %w", err)
	}
	s.Touch(p.DeviceID)
	return nil
}
