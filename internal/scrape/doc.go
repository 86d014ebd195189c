// Package scrape polls gateway diagnostics endpoints that expose Prometheus
// text format and converts the configured metric families into telemetry
// messages fed through the same pipeline as bus and HTTP intake. A scrape
// failure affects only that target and cycle; the poller carries on.
package scrape
