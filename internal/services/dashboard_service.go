package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/database"
)

// DashboardService owns the mentor store's alert records: the forwarded
// copies consumed by the dashboard.
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Ingest persists an alert received from the devices service (or posted
// directly). The stored record carries the mentor store's own id and
// timestamp.
func (s *DashboardService) Ingest(alert *database.MentorAlert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// List returns alerts newest first, optionally filtered by device and
// level.
func (s *DashboardService) List(deviceID, level string, p api.PaginationParams) ([]database.MentorAlert, int64, error) {
	query := s.db.Model(&database.MentorAlert{})
	if deviceID != "" {
		query = query.Where("device_id = ?", deviceID)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	var alerts []database.MentorAlert
	err := query.
		Order("created_at desc").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&alerts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

// Summary returns the alert count per severity level.
func (s *DashboardService) Summary() (map[string]int64, error) {
	type row struct {
		Level string
		Count int64
	}
	var rows []row
	err := s.db.Model(&database.MentorAlert{}).
		Select("level, count(*) as count").
		Group("level").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize alerts: %w", err)
	}

	summary := make(map[string]int64, len(database.AlertLevels()))
	for _, level := range database.AlertLevels() {
		summary[level] = 0
	}
	for _, r := range rows {
		summary[r.Level] = r.Count
	}
	return summary, nil
}
