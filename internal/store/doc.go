// Package store persists telemetry records and serves the per-device query
// paths. Records are append-only and immutable once written; idempotence is
// enforced by a uniqueness constraint over (device_key, topic, event_time,
// fingerprint) checked atomically with the insert, so it holds across
// multiple processes and concurrent writers.
//
// Two backends implement Store: Postgres (production, pgx connection pool)
// and Memory (tests and single-node development). Both report duplicate
// inserts as DuplicateIgnored, which is an expected outcome, not an error.
package store
