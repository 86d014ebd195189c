// Package envelope defines the canonical telemetry envelope and the
// normalization boundary that produces it. Inbound messages arrive in
// inconsistent vendor shapes; Normalize resolves them into a single fixed
// Envelope struct, and Validate gates that struct against the canonical
// contract before it enters the rest of the pipeline. No untyped vendor map
// crosses this package's boundary.
package envelope
