package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgepulse/edgepulse/internal/classify"
	"github.com/edgepulse/edgepulse/internal/dedup"
	"github.com/edgepulse/edgepulse/internal/envelope"
	"github.com/edgepulse/edgepulse/internal/feature"
	"github.com/edgepulse/edgepulse/internal/state"
	"github.com/edgepulse/edgepulse/internal/store"
)

// Result is the outcome of one ingestion pass.
type Result struct {
	Record  *store.Record
	Outcome store.Outcome
}

// Pipeline runs the full ingestion pass for each inbound message. Safe for
// concurrent use from bus callbacks and HTTP handlers.
type Pipeline struct {
	featureKeys []string
	classifier  classify.Classifier
	store       store.Store
	live        *state.Publisher // optional
}

// New wires a pipeline over the given store and classifier. featureKeys is
// the derivation order and must match any loaded artifact's feature_order.
func New(st store.Store, cls classify.Classifier, featureKeys []string) *Pipeline {
	return &Pipeline{
		featureKeys: featureKeys,
		classifier:  cls,
		store:       st,
	}
}

// SetLiveState attaches an optional Redis publisher notified on every new
// record. Publish failures are logged, never propagated.
func (p *Pipeline) SetLiveState(pub *state.Publisher) {
	p.live = pub
}

// Ingest runs one message through the pipeline.
//
// envelope.ErrMissingIdentity and *envelope.ValidationError mean the
// message itself is bad; the caller decides whether to surface or drop.
// Any other error is a processing or storage failure.
func (p *Pipeline) Ingest(ctx context.Context, raw map[string]any) (*Result, error) {
	env, err := envelope.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := envelope.Validate(env); err != nil {
		return nil, err
	}

	// Derivation works on an enriched copy; the stored payload keeps the
	// producer's metrics untouched.
	enriched := feature.PreDerive(env.Payload.Metrics)
	features := feature.Derive(enriched, p.featureKeys)

	res, err := p.classifier.Classify(features)
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", env.DeviceKey, err)
	}

	fp, err := dedup.Fingerprint(env)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %q: %w", env.DeviceKey, err)
	}
	payload, err := dedup.CanonicalPayload(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("serialize payload %q: %w", env.DeviceKey, err)
	}

	rec := &store.Record{
		DeviceKey:   env.DeviceKey,
		Topic:       env.Topic,
		EventTime:   env.EventTime,
		Gateway:     env.Gateway,
		Payload:     payload,
		Features:    features,
		Health:      res.Label,
		Reason:      res.Reason,
		Fingerprint: fp,
	}

	outcome, err := p.store.Insert(ctx, rec)
	if err != nil {
		slog.Error("pipeline: insert failed",
			"device", env.DeviceKey, "fingerprint", fp, "err", err)
		return nil, fmt.Errorf("insert record: %w", err)
	}

	switch outcome {
	case store.DuplicateIgnored:
		slog.Debug("pipeline: duplicate ignored",
			"device", env.DeviceKey, "fingerprint", fp)
	case store.Inserted:
		if p.live != nil {
			if err := p.live.PublishState(ctx, rec); err != nil {
				slog.Warn("pipeline: live state publish failed",
					"device", env.DeviceKey, "err", err)
			}
		}
	}

	return &Result{Record: rec, Outcome: outcome}, nil
}
