// Package canonical enforces the canonical field naming contract shared by
// the devices and mentor services. Legacy JSON keys are rejected at every
// entry point before any other processing; the mapping table lives here so
// both services stay in sync.
package canonical

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entity identifies which payload shape is being validated.
type Entity string

const (
	EntityDevice   Entity = "device"
	EntityActivity Entity = "activity"
	EntityAlert    Entity = "alert"
	EntityProcess  Entity = "process"
)

// InvalidFieldError reports a legacy field name in a request payload.
// It is always a client error (HTTP 400).
type InvalidFieldError struct {
	LegacyField    string
	CanonicalField string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("unsupported legacy field: %s; use %s", e.LegacyField, e.CanonicalField)
}

// legacyFields maps entity -> legacy key -> canonical replacement.
var legacyFields = map[Entity]map[string]string{
	EntityDevice: {
		"id":       "deviceid",
		"name":     "device_name",
		"location": "device_location",
	},
	EntityActivity: {
		"id":   "deviceid",
		"type": "activity_type",
	},
	EntityAlert: {
		"id":   "deviceid",
		"type": "alert_type",
	},
	EntityProcess: {
		"id":      "deviceid",
		"command": "command_text",
		"name":    "process_name",
	},
}

// ValidateFields checks a parsed JSON object for legacy field names in the
// given entity context. It returns an *InvalidFieldError for the first
// offending key (in lexical order, so the error is deterministic) or nil.
// The payload is never mutated; this is a reject-only check.
func ValidateFields(entity Entity, payload map[string]json.RawMessage) error {
	table := legacyFields[entity]
	if len(table) == 0 {
		return nil
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, legacy := range keys {
		if _, present := payload[legacy]; present {
			return &InvalidFieldError{
				LegacyField:    legacy,
				CanonicalField: table[legacy],
			}
		}
	}
	return nil
}

// LegacyFields returns a copy of the legacy-to-canonical mapping for an
// entity. Used by API docs and tests; mutating the result has no effect.
func LegacyFields(entity Entity) map[string]string {
	table := legacyFields[entity]
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}
