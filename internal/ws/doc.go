// Package ws streams device summaries to WebSocket clients. The hub reads
// the store's latest-per-device view on a fixed interval and pushes the
// same projection the REST device list serves; it performs no business
// logic. Slow clients are disconnected rather than allowed to stall the
// broadcast.
package ws
