// Package jobs holds the devices-service background tasks. The
// reconciliation sweep runs off the request path: it retries alerts whose
// forward to the mentor service never succeeded, preserving the
// request-path guarantee that a submission only pays for one attempt.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/services"
)

const defaultBatchSize = 100

// ReconciliationJob periodically re-forwards pending and failed alerts.
type ReconciliationJob struct {
	alertService *services.AlertService
	interval     time.Duration
	maxAttempts  int
	batchSize    int
}

// NewReconciliationJob creates a reconciliation job. maxAttempts bounds
// total delivery attempts per alert, including the one made on the
// request path.
func NewReconciliationJob(alertService *services.AlertService, interval time.Duration, maxAttempts int) *ReconciliationJob {
	return &ReconciliationJob{
		alertService: alertService,
		interval:     interval,
		maxAttempts:  maxAttempts,
		batchSize:    defaultBatchSize,
	}
}

// Run executes one sweep iteration and returns the number of alerts
// successfully forwarded.
func (j *ReconciliationJob) Run(ctx context.Context) (int, error) {
	alerts, err := j.alertService.Unforwarded(j.maxAttempts, j.batchSize)
	if err != nil {
		return 0, err
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	log.Printf("Reconciliation sweep: retrying %d unforwarded alerts", len(alerts))

	forwarded := 0
	for i := range alerts {
		alert := &alerts[i]
		if err := j.alertService.Forward(ctx, alert); err != nil {
			log.Printf("Reconciliation sweep: alert %d (device %s, type %s) still unforwarded after %d attempts: %v",
				alert.ID, alert.DeviceID, alert.AlertType, alert.ForwardAttempts, err)
			continue
		}
		forwarded++
	}

	if forwarded > 0 {
		log.Printf("Reconciliation sweep: forwarded %d alerts", forwarded)
	}
	return forwarded, nil
}

// Start begins the periodic sweep and blocks until the stop channel
// closes. Run it in its own goroutine.
func (j *ReconciliationJob) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(context.Background()); err != nil {
				log.Printf("Reconciliation sweep error: %v", err)
			}
		case <-stop:
			log.Println("Reconciliation sweep stopped")
			return
		}
	}
}
