// Package dedup computes the content fingerprint that makes ingestion
// idempotent. The fingerprint is a SHA-256 digest over the identity tuple
// (device_key, topic, event_time) plus a canonical serialization of the
// payload with recursively sorted keys and stable number formatting, so
// redelivered messages hash identically regardless of key order or float
// rendering. Enforcement lives in the store's uniqueness constraint, not
// in memory.
package dedup
