package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMissingIdentity is returned by Normalize when no device identity can be
// resolved from any known key. The message is unrecoverable: without a device
// key there is nothing to attach the record to.
var ErrMissingIdentity = errors.New("no device identity found in message")

// ValidationError reports a canonical-contract violation found by Validate.
// It covers shape only (required fields, primitive types); domain ranges are
// the classifier's concern.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid envelope: %s: %s", e.Field, e.Detail)
}

// Payload is the canonical message body: a schema version plus the
// producer-defined metrics mapping.
type Payload struct {
	Version string         `json:"version"`
	Metrics map[string]any `json:"metrics"`
}

// Envelope is the canonical representation of one inbound telemetry message.
// It exists only for the duration of a single pipeline pass.
//
// Metric values are kept as decoded JSON (float64, nil, occasionally string);
// non-numeric values are deliberately not rejected here; the feature deriver
// applies the missing-value policy to them.
type Envelope struct {
	DeviceKey string
	EventTime *time.Time
	Topic     string

	// Gateway is optional vendor metadata carried through to the device
	// registry. It is not part of the required contract.
	Gateway string

	Payload Payload
}

// Number coerces a decoded JSON value to a float64.
// It accepts float64, integer types, json.Number, and numeric strings.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
