// Package ingest consumes telemetry from the message bus. Each received
// message is decoded and handed to the pipeline; messages that fail
// normalization or validation are logged and dropped, since the bus path
// has no client to surface an error to and redelivery of a bad message
// would fail identically.
package ingest
