// Package state publishes each device's most recent classification to
// Redis: a TTL'd hash for cheap "current state" lookups plus a pub/sub
// notification per device. It is a best-effort side channel for live
// consumers. The durable store remains the source of truth, and a Redis
// failure never fails an ingest.
package state
