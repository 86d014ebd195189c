package classify

import "testing"

// vec builds a feature vector in the default order:
// used_memory, used_storage, cpuusage, temperature.
func vec(mem, storage, cpu, temp float64) []float64 {
	return []float64{mem, storage, cpu, temp}
}

func classify(t *testing.T, features []float64) Result {
	t.Helper()
	res, err := NewRuleBased([]string{"used_memory", "used_storage", "cpuusage", "temperature"}).Classify(features)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return res
}

func TestRules_Healthy(t *testing.T) {
	res := classify(t, vec(1100, 3200, 35, 36))
	if res.Label != LabelHealthy {
		t.Errorf("label: got %q, want Healthy", res.Label)
	}
	if res.Reason != DefaultReason {
		t.Errorf("reason: got %q, want %q", res.Reason, DefaultReason)
	}
}

func TestRules_TemperatureBeforeCPU(t *testing.T) {
	// Both could be inspected; temperature is checked first and wins.
	res := classify(t, vec(1100, 3200, 35, 92))
	if res.Label != LabelCritical {
		t.Errorf("label: got %q, want Critical", res.Label)
	}
	if res.Reason != "High temperature detected" {
		t.Errorf("reason: got %q, want High temperature detected", res.Reason)
	}
}

func TestRules_ExtremelyLowTemperature(t *testing.T) {
	// -8 is inside the physical range, so the glitch rule does not fire;
	// the dedicated low-temperature critical rule does.
	res := classify(t, vec(950, 3200, 20, -8))
	if res.Label != LabelCritical {
		t.Errorf("label: got %q, want Critical", res.Label)
	}
	if res.Reason != "Extremely low temperature detected" {
		t.Errorf("reason: got %q, want Extremely low temperature detected", res.Reason)
	}
}

func TestRules_GlitchShortCircuits(t *testing.T) {
	res := classify(t, vec(1100, 3200, 35, 150))
	if res.Label != LabelCritical {
		t.Errorf("label: got %q, want Critical", res.Label)
	}
	if res.Reason != "Temperature reading outside physical range" {
		t.Errorf("reason: got %q, want glitch reason", res.Reason)
	}

	res = classify(t, vec(1100, 3200, 140, 36))
	if res.Reason != "CPU usage reading outside physical range" {
		t.Errorf("reason: got %q, want cpu glitch reason", res.Reason)
	}
}

func TestRules_MemoryBeforeStorageAndCPU(t *testing.T) {
	res := classify(t, vec(1700, 3600, 40, 50))
	if res.Label != LabelCritical {
		t.Errorf("label: got %q, want Critical", res.Label)
	}
	if res.Reason != "High memory consumption detected" {
		t.Errorf("reason: got %q, want High memory consumption detected", res.Reason)
	}
}

func TestRules_WarningBands(t *testing.T) {
	cases := []struct {
		name     string
		features []float64
		reason   string
	}{
		{"elevated temperature", vec(1100, 3200, 35, 70), "Elevated temperature detected"},
		{"low temperature", vec(1100, 3200, 35, 7), "Low temperature detected"},
		{"elevated memory", vec(1400, 3200, 35, 36), "Elevated memory consumption detected"},
		{"elevated storage", vec(1100, 3600, 35, 36), "Elevated storage consumption detected"},
		{"elevated cpu", vec(1100, 3200, 75, 36), "Elevated CPU usage detected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := classify(t, tc.features)
			if res.Label != LabelWarning {
				t.Errorf("label: got %q, want Warning", res.Label)
			}
			if res.Reason != tc.reason {
				t.Errorf("reason: got %q, want %q", res.Reason, tc.reason)
			}
		})
	}
}

func TestRules_Determinism(t *testing.T) {
	first := classify(t, vec(1700, 3950, 95, 85))
	for i := 0; i < 10; i++ {
		if res := classify(t, vec(1700, 3950, 95, 85)); res != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", res, first)
		}
	}
}

func TestRules_UnknownFeatureReadsZero(t *testing.T) {
	r := NewRuleBased([]string{"temperature"})
	res, err := r.Classify([]float64{36})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// used_memory etc. read 0; temperature 36 keeps everything quiet.
	if res.Label != LabelHealthy {
		t.Errorf("label: got %q, want Healthy", res.Label)
	}
}
