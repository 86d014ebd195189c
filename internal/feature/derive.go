package feature

import "github.com/edgepulse/edgepulse/internal/envelope"

// DefaultValue substitutes for any feature that is absent, null, or not a
// number. The policy is fixed and explicit: extraction never raises on a
// malformed reading.
const DefaultValue = 0.0

// DefaultKeys is the standard feature order for edge gateway health. The
// order is part of the classifier artifact contract and must match the
// loaded artifact's feature_order exactly.
var DefaultKeys = []string{"used_memory", "used_storage", "cpuusage", "temperature"}

// consumptionInputs lists the derived consumption metrics and the raw
// total/remaining pair each is computed from.
var consumptionInputs = []struct {
	out       string
	total     string
	remaining string
}{
	{out: "used_memory", total: "totalmemory", remaining: "remainingmemory"},
	{out: "used_storage", total: "storagetotal", remaining: "remainingstorage"},
}

// PreDerive returns a copy of metrics with consumption metrics added where
// both the total and remaining inputs are numeric. If either half is
// missing or non-numeric the derived metric is left absent, so it falls
// under the missing-value policy instead of being partially computed. An
// already-present derived value is never overwritten.
func PreDerive(metrics map[string]any) map[string]any {
	out := make(map[string]any, len(metrics)+len(consumptionInputs))
	for k, v := range metrics {
		out[k] = v
	}
	for _, c := range consumptionInputs {
		if _, ok := out[c.out]; ok {
			continue
		}
		total, okT := envelope.Number(out[c.total])
		remaining, okR := envelope.Number(out[c.remaining])
		if okT && okR {
			out[c.out] = total - remaining
		}
	}
	return out
}

// Derive extracts one float per key, in the given order, applying the
// missing-value policy.
func Derive(metrics map[string]any, keys []string) []float64 {
	vec := make([]float64, len(keys))
	for i, k := range keys {
		if v, ok := envelope.Number(metrics[k]); ok {
			vec[i] = v
		} else {
			vec[i] = DefaultValue
		}
	}
	return vec
}
