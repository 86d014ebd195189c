// Package pipeline composes one ingestion pass:
// normalize -> validate -> derive -> classify -> fingerprint -> insert.
//
// Every stage up to the insert is a pure transform; the store's
// constraint-checked insert is the only shared mutable resource, which is
// what makes concurrent redelivery safe. Errors are local to a single
// message and are never retried here; the transport owns redelivery, and
// the pipeline's idempotence is what makes blind retries harmless.
package pipeline
