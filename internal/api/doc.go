// Package api serves the HTTP surface: telemetry ingest plus the read-only
// device query endpoints. Handlers project store results into JSON and hold
// no business logic of their own; ingestion semantics live in the pipeline
// and query semantics in the store.
package api
