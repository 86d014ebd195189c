package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store with the same semantics as Postgres,
// used by tests and single-node development. The dedupe tuple is checked
// under the same lock as the append, mirroring the constraint-checked
// insert of the durable backend.
type Memory struct {
	mu       sync.RWMutex
	records  []Record
	seen     map[string]struct{} // dedupe tuple -> present
	gateways map[string]string   // device_key -> gateway at first sight
	nextID   int64
	now      func() time.Time // injectable for deterministic tests
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seen:     make(map[string]struct{}),
		gateways: make(map[string]string),
		nextID:   1,
		now:      time.Now,
	}
}

func (s *Memory) Close()                         {}
func (s *Memory) Ping(ctx context.Context) error { return nil }

func dedupeKey(rec *Record) string {
	ts := ""
	if rec.EventTime != nil {
		ts = rec.EventTime.UTC().Format(time.RFC3339Nano)
	}
	return rec.DeviceKey + "\x00" + rec.Topic + "\x00" + ts + "\x00" + rec.Fingerprint
}

func (s *Memory) Insert(ctx context.Context, rec *Record) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupeKey(rec)
	if _, dup := s.seen[key]; dup {
		return DuplicateIgnored, nil
	}

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now().UTC()
	}
	if _, ok := s.gateways[rec.DeviceKey]; !ok {
		s.gateways[rec.DeviceKey] = rec.Gateway
	}

	rec.ID = s.nextID
	s.nextID++
	s.seen[key] = struct{}{}

	stored := *rec
	stored.Gateway = s.gateways[rec.DeviceKey]
	s.records = append(s.records, stored)
	return Inserted, nil
}

func (s *Memory) LatestPerDevice(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]Record)
	for _, r := range s.records {
		cur, ok := latest[r.DeviceKey]
		if !ok || newer(&r, &cur) {
			latest[r.DeviceKey] = r
		}
	}

	out := make([]Record, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return newer(&out[i], &out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) History(ctx context.Context, deviceKey string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, r := range s.records {
		if r.DeviceKey == deviceKey {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(&out[i], &out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) Count(ctx context.Context, deviceKey string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if r.DeviceKey == deviceKey {
			n++
		}
	}
	return n, nil
}

func (s *Memory) Timeseries(ctx context.Context, deviceKey, metric string, limit int) ([]Point, error) {
	history, err := s.History(ctx, deviceKey, limit)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(history))
	for _, r := range history {
		points = append(points, Point{T: r.EffectiveTime(), V: metricValue(r.Payload, metric)})
	}
	return points, nil
}

// newer orders records newest first: by effective time, then by id.
func newer(a, b *Record) bool {
	ta, tb := a.EffectiveTime(), b.EffectiveTime()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID > b.ID
}
