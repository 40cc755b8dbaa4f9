package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/forward"
)

// AlertService owns the devices store's alert records and their
// propagation to the mentor service. The ordering is a hard requirement:
// the local write must succeed before any forward attempt is made.
type AlertService struct {
	db        *gorm.DB
	forwarder *forward.Forwarder
}

// NewAlertService creates a new alert service. A nil forwarder disables
// forwarding; alerts then stay in the pending state until a forwarder is
// configured (the reconciliation sweep picks them up on restart).
func NewAlertService(db *gorm.DB, forwarder *forward.Forwarder) *AlertService {
	return &AlertService{db: db, forwarder: forwarder}
}

// Submit persists an alert locally, then attempts a single best-effort
// forward to the mentor service. A persistence failure is returned to the
// caller (and no forward is attempted); a forward failure is logged and
// absorbed — the caller still gets the stored alert back.
func (s *AlertService) Submit(ctx context.Context, alert *database.Alert) (*database.Alert, error) {
	alert.ForwardStatus = database.ForwardStatusPending

	if err := s.db.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("failed to store alert: %w", err)
	}

	// The forward outlives the client connection: a disconnect must not
	// cancel an in-flight delivery. The forwarder's own timeout bounds it.
	if err := s.Forward(context.WithoutCancel(ctx), alert); err != nil {
		log.Printf("Warning: failed to forward alert %d (device %s, type %s): %v",
			alert.ID, alert.DeviceID, alert.AlertType, err)
	}

	return alert, nil
}

// Forward attempts to deliver one locally stored alert to the mentor
// service and records the outcome on the row. It returns the classified
// forward error so callers can decide how loudly to log; the error never
// represents a local failure.
func (s *AlertService) Forward(ctx context.Context, alert *database.Alert) error {
	if s.forwarder == nil {
		return nil
	}

	payload := &forward.Payload{
		DeviceID:  alert.DeviceID,
		Level:     alert.Level,
		AlertType: alert.AlertType,
		Message:   alert.Message,
		Value:     alert.Value,
		Threshold: alert.Threshold,
	}

	err := s.forwarder.Forward(ctx, payload)
	alert.ForwardAttempts++

	if err != nil {
		alert.ForwardStatus = database.ForwardStatusFailed
		if dbErr := s.db.Model(&database.Alert{}).Where("id = ?", alert.ID).Updates(map[string]interface{}{
			"forward_status":   database.ForwardStatusFailed,
			"forward_attempts": alert.ForwardAttempts,
		}).Error; dbErr != nil {
			log.Printf("Warning: failed to record forward outcome for alert %d: %v", alert.ID, dbErr)
		}
		return err
	}

	now := time.Now()
	alert.ForwardStatus = database.ForwardStatusForwarded
	alert.ForwardedAt = &now
	// An unrecorded success leaves the row pending and the sweep would
	// deliver a duplicate, so this write failing is worth a log line.
	if dbErr := s.db.Model(&database.Alert{}).Where("id = ?", alert.ID).Updates(map[string]interface{}{
		"forward_status":   database.ForwardStatusForwarded,
		"forward_attempts": alert.ForwardAttempts,
		"forwarded_at":     now,
	}).Error; dbErr != nil {
		log.Printf("Warning: failed to record forward outcome for alert %d: %v", alert.ID, dbErr)
	}
	return nil
}

// Unforwarded returns alerts that never reached the mentor service
// (pending or failed) with fewer than maxAttempts delivery attempts,
// oldest first, capped at limit. Used by the reconciliation sweep.
func (s *AlertService) Unforwarded(maxAttempts, limit int) ([]database.Alert, error) {
	var alerts []database.Alert
	err := s.db.
		Where("forward_status IN ?", []database.ForwardStatus{
			database.ForwardStatusPending,
			database.ForwardStatusFailed,
		}).
		Where("forward_attempts < ?", maxAttempts).
		Order("created_at asc").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unforwarded alerts: %w", err)
	}
	return alerts, nil
}

// List returns locally stored alerts, newest first, optionally filtered
// by device and level.
func (s *AlertService) List(deviceID, level string, p api.PaginationParams) ([]database.Alert, int64, error) {
	query := s.db.Model(&database.Alert{})
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

	var alerts []database.Alert
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
