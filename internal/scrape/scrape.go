package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/edgepulse/edgepulse/internal/config"
	"github.com/edgepulse/edgepulse/internal/pipeline"
)

const scrapeTimeout = 10 * time.Second

// Poller scrapes each configured target on a fixed interval and submits the
// converted readings to the pipeline.
type Poller struct {
	targets  []config.ScrapeTarget
	interval time.Duration
	client   *http.Client
	pipe     *pipeline.Pipeline
	now      func() time.Time // injectable for deterministic tests
}

// New builds a Poller over the configured targets.
func New(cfg config.ScrapeConfig, pipe *pipeline.Pipeline) *Poller {
	return &Poller{
		targets:  cfg.Targets,
		interval: cfg.Interval,
		client:   &http.Client{Timeout: scrapeTimeout},
		pipe:     pipe,
		now:      time.Now,
	}
}

// Run polls every target once per interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, target := range p.targets {
				p.scrapeOnce(ctx, target)
			}
		}
	}
}

// scrapeOnce fetches one target and ingests its readings. Failures are
// logged and skipped; the next cycle retries naturally.
func (p *Poller) scrapeOnce(ctx context.Context, target config.ScrapeTarget) {
	mfs, err := p.fetch(ctx, target.Endpoint)
	if err != nil {
		slog.Warn("scrape: fetch failed",
			"device", target.DeviceKey, "endpoint", target.Endpoint, "err", err)
		return
	}

	raw := Convert(target, mfs, p.now().UTC())
	if _, err := p.pipe.Ingest(ctx, raw); err != nil {
		slog.Warn("scrape: ingest failed", "device", target.DeviceKey, "err", err)
	}
}

// Convert builds a telemetry message from scraped metric families. Each
// configured family maps to one canonical metric name; families absent from
// the scrape are reported as null readings so the missing-value policy
// applies downstream. The scrape instant becomes the event time: the
// poller is the producer here, and a sample without a timestamp would
// otherwise collapse steady-state readings into duplicates.
func Convert(target config.ScrapeTarget, mfs map[string]*dto.MetricFamily, at time.Time) map[string]any {
	metrics := make(map[string]any, len(target.Metrics))
	for family, name := range target.Metrics {
		if v, ok := familyValue(mfs[family]); ok {
			metrics[name] = v
		} else {
			metrics[name] = nil
		}
	}
	return map[string]any{
		"device_key": target.DeviceKey,
		"event_time": at.Format(time.RFC3339),
		"topic":      "scrape/" + target.DeviceKey,
		"payload": map[string]any{
			"version": "1.0",
			"metrics": metrics,
		},
	}
}

// fetch performs an HTTP GET and returns parsed metric families.
func (p *Poller) fetch(ctx context.Context, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric
// families. A partial result with a non-fatal parse warning is still
// returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// familyValue adds up all counter, gauge, or untyped values in a family.
// Reports false if mf is nil (metric not present in the scrape).
func familyValue(mf *dto.MetricFamily) (float64, bool) {
	if mf == nil {
		return 0, false
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total, true
}
