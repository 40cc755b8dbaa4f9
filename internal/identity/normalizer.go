// Package identity normalizes client-supplied device identifiers into
// canonical UUIDs. Normalization is deterministic: the same raw identifier
// always yields the same UUID, across process restarts and across services.
package identity

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// namespace is the fixed UUIDv5 namespace for deriving device identifiers
// from non-UUID strings. Changing it would remap every derived device id.
var namespace = uuid.MustParse("8b9a4c1d-3e5f-4a7b-9c0d-2f1e6a8b4d3c")

// ErrEmptyDeviceID is returned when the raw identifier is empty or blank.
var ErrEmptyDeviceID = errors.New("deviceid is required")

// Result holds a normalized device identifier along with traceability
// fields echoed back to the caller.
type Result struct {
	DeviceID   string `json:"deviceid"`    // canonical lowercase UUID
	OriginalID string `json:"original_id"` // the raw identifier as submitted
	Normalized bool   `json:"normalized"`  // true if normalization altered the input
}

// Normalize converts a raw device identifier into its canonical UUID form.
// Identifiers that already parse as a UUID (36-char canonical or 32-char
// hex) are lowercased to canonical form. Anything else is derived via a
// namespace-based UUIDv5, so the mapping is a pure function of the input.
func Normalize(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}, ErrEmptyDeviceID
	}

	if id, ok := parseUUID(trimmed); ok {
		canonical := id.String()
		return Result{
			DeviceID:   canonical,
			OriginalID: raw,
			Normalized: canonical != raw,
		}, nil
	}

	derived := uuid.NewSHA1(namespace, []byte(trimmed))
	return Result{
		DeviceID:   derived.String(),
		OriginalID: raw,
		Normalized: true,
	}, nil
}

// parseUUID accepts only the 36-character canonical form and the
// 32-character no-hyphen form. uuid.Parse is more permissive (URN prefix,
// braces); those variants are treated as raw identifiers instead.
func parseUUID(s string) (uuid.UUID, bool) {
	if len(s) != 36 && len(s) != 32 {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
