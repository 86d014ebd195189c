package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edgepulse/edgepulse/internal/envelope"
)

// Outcome is the result of an insert attempt.
type Outcome int

const (
	// Inserted means a new record was written.
	Inserted Outcome = iota

	// DuplicateIgnored means a record with the same dedupe tuple already
	// exists. This is the expected idempotent outcome under redelivery,
	// never surfaced as a failure to the producer.
	DuplicateIgnored
)

func (o Outcome) String() string {
	if o == DuplicateIgnored {
		return "duplicate-ignored"
	}
	return "inserted"
}

// Record is one persisted telemetry unit. Immutable once written.
type Record struct {
	ID         int64           `json:"id"`
	DeviceKey  string          `json:"device_key"`
	Topic      string          `json:"topic"`
	EventTime  *time.Time      `json:"event_time"`
	ReceivedAt time.Time       `json:"received_at"`
	Gateway    string          `json:"gateway,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Features   []float64       `json:"features"`
	Health     string          `json:"health_status"`
	Reason     string          `json:"reason"`

	// Fingerprint is the hex SHA-256 dedupe digest. Part of the uniqueness
	// tuple enforced at insert.
	Fingerprint string `json:"fingerprint"`
}

// EffectiveTime is the record's position on the device timeline: the
// producer's event time when it exists, else the ingest time.
func (r *Record) EffectiveTime() time.Time {
	if r.EventTime != nil {
		return *r.EventTime
	}
	return r.ReceivedAt
}

// Point is one timeseries sample. V is nil when the metric was absent or
// unparseable for that record.
type Point struct {
	T time.Time `json:"t"`
	V *float64  `json:"v"`
}

// Store is the persistence handle shared by the pipeline and the query
// paths. Reads never block writes.
type Store interface {
	// Insert writes rec if its dedupe tuple is unseen and reports which
	// way it went. On Inserted, rec.ID and rec.ReceivedAt are filled in.
	Insert(ctx context.Context, rec *Record) (Outcome, error)

	// LatestPerDevice returns one record per device, the one with the
	// highest effective time, ties broken by highest id, newest first.
	LatestPerDevice(ctx context.Context, limit int) ([]Record, error)

	// History returns a device's records, newest first.
	History(ctx context.Context, deviceKey string, limit int) ([]Record, error)

	// Count returns the number of records stored for a device.
	Count(ctx context.Context, deviceKey string) (int64, error)

	// Timeseries projects one metric out of a device's history, newest
	// first, with nil values where the metric is missing.
	Timeseries(ctx context.Context, deviceKey, metric string, limit int) ([]Point, error)

	Ping(ctx context.Context) error
	Close()
}

// metricValue extracts a named metric from a record's canonical payload.
// Returns nil when the metric is absent, null, or not a number.
func metricValue(payload json.RawMessage, metric string) *float64 {
	var body struct {
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil
	}
	if f, ok := envelope.Number(body.Metrics[metric]); ok {
		return &f
	}
	return nil
}
