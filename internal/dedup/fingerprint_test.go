package dedup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/edgepulse/edgepulse/internal/envelope"
)

func metricsOf(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	return m
}

func env(key, topic string, ts *time.Time, metrics map[string]any) *envelope.Envelope {
	return &envelope.Envelope{
		DeviceKey: key,
		Topic:     topic,
		EventTime: ts,
		Payload:   envelope.Payload{Version: "1.0", Metrics: metrics},
	}
}

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	a := metricsOf(t, `{"temperature": 41.5, "cpuusage": 12, "nested": {"b": 1, "a": 2}}`)
	b := metricsOf(t, `{"nested": {"a": 2, "b": 1}, "cpuusage": 12, "temperature": 41.5}`)

	fpA, err := Fingerprint(env("X", "t", nil, a))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fpB, err := Fingerprint(env("X", "t", nil, b))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fpA != fpB {
		t.Errorf("fingerprints differ under key reordering:\n %s\n %s", fpA, fpB)
	}
}

func TestFingerprint_FloatFormattingStable(t *testing.T) {
	a := metricsOf(t, `{"used_memory": 1700}`)
	b := metricsOf(t, `{"used_memory": 1700.0}`)

	fpA, _ := Fingerprint(env("X", "t", nil, a))
	fpB, _ := Fingerprint(env("X", "t", nil, b))
	if fpA != fpB {
		t.Errorf("1700 and 1700.0 must fingerprint identically")
	}
}

func TestFingerprint_DistinguishesIdentity(t *testing.T) {
	m := metricsOf(t, `{"temperature": 20}`)
	t10 := time.Unix(10, 0).UTC()
	t20 := time.Unix(20, 0).UTC()

	base, _ := Fingerprint(env("X", "t", &t10, m))
	cases := map[string]*envelope.Envelope{
		"different device": env("Y", "t", &t10, m),
		"different topic":  env("X", "u", &t10, m),
		"different time":   env("X", "t", &t20, m),
		"nil time":         env("X", "t", nil, m),
	}
	for name, e := range cases {
		fp, err := Fingerprint(e)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if fp == base {
			t.Errorf("%s: fingerprint collided with base", name)
		}
	}
}

func TestFingerprint_MetricsChangeChangesDigest(t *testing.T) {
	a, _ := Fingerprint(env("X", "t", nil, metricsOf(t, `{"temperature": 20}`)))
	b, _ := Fingerprint(env("X", "t", nil, metricsOf(t, `{"temperature": 21}`)))
	if a == b {
		t.Errorf("payload change did not change fingerprint")
	}
}

func TestCanonicalPayload_Bytes(t *testing.T) {
	p := envelope.Payload{
		Version: "1.0",
		Metrics: metricsOf(t, `{"b": null, "a": 1.5}`),
	}
	got, err := CanonicalPayload(p)
	if err != nil {
		t.Fatalf("CanonicalPayload: %v", err)
	}
	want := `{"metrics":{"a":1.5,"b":null},"version":"1.0"}`
	if string(got) != want {
		t.Errorf("canonical bytes:\n got %s\n want %s", got, want)
	}
}
