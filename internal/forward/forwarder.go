// Package forward implements the outbound half of the alert pipeline:
// packaging a normalized alert and POSTing it to the mentor service.
// Every failure is classified but the callers treat all classes the same
// way (log and continue) — local durability is the primary guarantee and
// propagation is best-effort.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// IngestPath is the mentor service's alert ingestion sub-path.
const IngestPath = "/ingest/alerts"

// DefaultTimeout bounds a single forward attempt. An unbounded hang here
// would stall the originating request and defeat the local-success-first
// guarantee.
const DefaultTimeout = 5 * time.Second

// Kind classifies a forward failure.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindRemoteRejected Kind = "remote_rejected"
)

// Error is a classified forward failure. StatusCode is set only for
// remote rejections.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemoteRejected:
		return fmt.Sprintf("mentor service rejected alert with status %d", e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("forward timed out: %v", e.Err)
	default:
		return fmt.Sprintf("forward failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Payload is the wire shape posted to the mentor ingest endpoint.
// Canonical field names only.
type Payload struct {
	DeviceID  string   `json:"deviceid"`
	Level     string   `json:"level"`
	AlertType string   `json:"alert_type"`
	Message   string   `json:"message"`
	Value     *float64 `json:"value,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Forwarder posts alerts to a mentor service base URL with a bounded
// timeout per attempt.
type Forwarder struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewForwarder creates a forwarder targeting the given mentor base URL.
// A non-positive timeout falls back to DefaultTimeout.
func NewForwarder(baseURL string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// BaseURL returns the configured mentor base URL.
func (f *Forwarder) BaseURL() string {
	return f.baseURL
}

// Forward issues a single POST of the alert to the mentor service.
// It returns nil on a 2xx response, or a classified *Error otherwise.
// The response body is discarded; only overall success matters.
func (f *Forwarder) Forward(ctx context.Context, p *Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to encode alert: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+IngestPath, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindRemoteRejected, StatusCode: resp.StatusCode}
	}
	return nil
}

func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
