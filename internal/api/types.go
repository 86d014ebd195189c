package api

import "encoding/json"

// IngestResponse is the payload for POST /api/v1/ingest.
type IngestResponse struct {
	// Status is "ingested" for a new record or "duplicate" for an
	// idempotent redelivery. Both are success outcomes.
	Status    string `json:"status"`
	DeviceKey string `json:"device_key"`
	Health    string `json:"health_status"`
	Reason    string `json:"reason"`
}

// DeviceSummary is one entry in GET /api/v1/devices and in the WebSocket
// device stream.
type DeviceSummary struct {
	DeviceKey string `json:"device_key"`
	Gateway   string `json:"gateway,omitempty"`
	Health    string `json:"health_status"`
	Reason    string `json:"reason"`
	LastSeen  string `json:"last_seen"` // RFC3339
}

// RecordResponse is the JSON projection of one stored telemetry record.
type RecordResponse struct {
	ID         int64     `json:"id"`
	DeviceKey  string    `json:"device_key"`
	Topic      string    `json:"topic"`
	EventTime  *string   `json:"event_time"` // RFC3339, null when absent
	ReceivedAt string    `json:"received_at"`
	Health     string    `json:"health_status"`
	Reason     string    `json:"reason"`
	Features   []float64 `json:"features"`
}

// DeviceResponse is the payload for GET /api/v1/devices/{key}.
type DeviceResponse struct {
	Latest       RecordResponse  `json:"latest"`
	RawPayload   json.RawMessage `json:"raw_payload"`
	HistoryCount int64           `json:"history_count"`
}

// PointResponse is one sample in GET /api/v1/devices/{key}/timeseries.
type PointResponse struct {
	T string   `json:"t"` // RFC3339
	V *float64 `json:"v"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
