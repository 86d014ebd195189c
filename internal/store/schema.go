package store

// schemaStatements is executed in order on startup. Every statement is
// idempotent so repeated boots against the same database are safe.
//
// The NULLS NOT DISTINCT constraint (PostgreSQL 15+) makes two records with
// a null event_time and equal remaining tuple collide, matching the dedupe
// semantics for messages that carry no producer timestamp.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_key TEXT PRIMARY KEY,
		gateway    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS telemetry_records (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		device_key    TEXT NOT NULL REFERENCES devices (device_key),
		topic         TEXT NOT NULL,
		event_time    TIMESTAMPTZ,
		received_at   TIMESTAMPTZ NOT NULL,
		payload       JSONB NOT NULL,
		features      DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
		health_status TEXT NOT NULL,
		reason        TEXT NOT NULL,
		fingerprint   TEXT NOT NULL,
		CONSTRAINT uq_record_dedupe UNIQUE NULLS NOT DISTINCT
			(device_key, topic, event_time, fingerprint)
	)`,

	// Serves history, latest-per-device and timeseries without a full scan.
	`CREATE INDEX IF NOT EXISTS idx_record_device_time
		ON telemetry_records (device_key, (COALESCE(event_time, received_at)) DESC, id DESC)`,
}
