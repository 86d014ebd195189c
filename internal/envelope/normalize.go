package envelope

import (
	"fmt"
	"time"
)

// Alternate key lists tried in order when resolving each canonical field
// from a vendor-shaped message.
var (
	deviceKeys = []string{"device_key", "device", "device_id"}
	timeKeys   = []string{"event_time", "creationTime", "ts", "unixtime", "time"}
	topicKeys  = []string{"topic", "sourceTopic"}
)

// nonMetricKeys are vendor fields excluded when harvesting top-level values
// as metrics: identity, timing, routing and descriptive metadata.
var nonMetricKeys = map[string]struct{}{
	"device_key":   {},
	"device":       {},
	"device_id":    {},
	"event_time":   {},
	"creationTime": {},
	"ts":           {},
	"unixtime":     {},
	"time":         {},
	"topic":        {},
	"sourceTopic":  {},
	"version":      {},
	"gateway":      {},
	"siteid":       {},
	"payload":      {},
	"metrics":      {},
}

// Normalize maps an arbitrary decoded message into the canonical Envelope.
//
// A message carrying all four canonical keys (device_key, event_time, topic,
// payload) takes the fast path and is read as already-canonical. Anything
// else is treated as a vendor shape: each field is resolved by trying an
// ordered list of known alternate keys. An unresolvable device identity is a
// hard failure (ErrMissingIdentity). EventTime stays nil when absent or
// unparseable; a time is never invented here.
//
// When no metrics-like field is found, Payload.Metrics falls back to the
// message's top-level numeric fields and, failing that, to an empty map.
// The empty-map default is deliberate and permissive: a metricless message
// is still a valid liveness signal, not data loss.
func Normalize(raw map[string]any) (*Envelope, error) {
	if isCanonical(raw) {
		return fromCanonical(raw)
	}
	return fromVendor(raw)
}

func isCanonical(raw map[string]any) bool {
	for _, k := range []string{"device_key", "event_time", "topic", "payload"} {
		if _, ok := raw[k]; !ok {
			return false
		}
	}
	return true
}

// fromCanonical carries claimed-canonical values through verbatim. Unlike
// the vendor path it does not paper over defects; a wrong-typed topic or
// metrics field surfaces as a ValidationError downstream instead of being
// silently defaulted.
func fromCanonical(raw map[string]any) (*Envelope, error) {
	key, _ := raw["device_key"].(string)
	if key == "" {
		return nil, ErrMissingIdentity
	}

	topic, _ := raw["topic"].(string)
	env := &Envelope{
		DeviceKey: key,
		EventTime: parseEventTime(raw["event_time"]),
		Topic:     topic,
		Gateway:   stringOr(raw["gateway"], ""),
	}

	body, _ := raw["payload"].(map[string]any)
	env.Payload.Version = versionOf(body["version"])
	if m, present := body["metrics"]; present {
		env.Payload.Metrics, _ = m.(map[string]any)
	} else {
		env.Payload.Metrics = map[string]any{}
	}
	return env, nil
}

func fromVendor(raw map[string]any) (*Envelope, error) {
	key := firstString(raw, deviceKeys)
	if key == "" {
		// Some producers nest the identity one level down.
		if body, ok := raw["payload"].(map[string]any); ok {
			key = firstString(body, deviceKeys)
		}
	}
	if key == "" {
		return nil, ErrMissingIdentity
	}

	env := &Envelope{
		DeviceKey: key,
		EventTime: parseEventTime(firstValue(raw, timeKeys)),
		Topic:     "unknown",
		Gateway:   stringOr(raw["gateway"], ""),
	}
	if t := firstString(raw, topicKeys); t != "" {
		env.Topic = t
	}
	env.Payload.Version = versionOf(raw["version"])
	env.Payload.Metrics = resolveMetrics(raw)
	return env, nil
}

// resolveMetrics locates the metrics mapping: an explicit "metrics" field,
// a nested "payload.metrics", or a harvest of top-level numeric/null fields.
func resolveMetrics(raw map[string]any) map[string]any {
	if m, ok := raw["metrics"].(map[string]any); ok {
		return m
	}
	if body, ok := raw["payload"].(map[string]any); ok {
		if m, ok := body["metrics"].(map[string]any); ok {
			return m
		}
	}

	harvested := map[string]any{}
	for k, v := range raw {
		if _, reserved := nonMetricKeys[k]; reserved {
			continue
		}
		if v == nil {
			harvested[k] = nil
			continue
		}
		if f, ok := Number(v); ok {
			if _, isString := v.(string); isString {
				// Numeric-looking identity strings (serials, hex ids) are
				// not sensor readings; only bare JSON numbers are harvested.
				continue
			}
			harvested[k] = f
		}
	}
	return harvested
}

// parseEventTime interprets a producer timestamp value. Accepted forms are
// RFC-3339 strings and unix-epoch seconds; anything else yields nil.
func parseEventTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
		return nil
	case nil:
		return nil
	default:
		if f, ok := Number(v); ok {
			parsed := time.Unix(int64(f), 0).UTC()
			return &parsed
		}
		return nil
	}
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstValue(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// versionOf coerces a vendor version field to a string, defaulting to "1.0".
// Producers send both `"version": "2.1"` and `"version": 2`.
func versionOf(v any) string {
	switch ver := v.(type) {
	case string:
		if ver != "" {
			return ver
		}
	case float64:
		return fmt.Sprintf("%g", ver)
	case int:
		return fmt.Sprintf("%d", ver)
	}
	return "1.0"
}
