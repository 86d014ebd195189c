package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "artifact.json")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return p
}

const goodArtifact = `{
  "artifact_version": 1,
  "feature_order": ["used_memory", "used_storage", "cpuusage", "temperature"],
  "label_names": {"0": "Healthy", "1": "Warning", "2": "Critical"},
  "scaler": {
    "center": [1000.0, 3000.0, 40.0, 35.0],
    "scale":  [400.0, 500.0, 30.0, 25.0]
  },
  "model": {
    "weights": [
      [-1.0, -1.0, -1.0, -1.0],
      [0.2, 0.2, 0.2, 0.2],
      [1.0, 1.0, 1.0, 1.0]
    ],
    "intercepts": [0.5, 0.0, -0.5]
  }
}`

func TestLoadArtifact_OK(t *testing.T) {
	a, err := LoadArtifact(writeArtifact(t, goodArtifact))
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if len(a.FeatureOrder) != 4 {
		t.Errorf("feature_order: got %d entries, want 4", len(a.FeatureOrder))
	}
	if a.LabelNames["2"] != "Critical" {
		t.Errorf("label_names[2]: got %q, want Critical", a.LabelNames["2"])
	}
}

func TestLoadArtifact_Failures(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed json", `{"artifact_version": `, "parse"},
		{
			"version mismatch",
			strings.Replace(goodArtifact, `"artifact_version": 1`, `"artifact_version": 99`, 1),
			"version 99 not supported",
		},
		{
			"ragged weight row",
			strings.Replace(goodArtifact, `[0.2, 0.2, 0.2, 0.2]`, `[0.2, 0.2]`, 1),
			"weight row 1",
		},
		{
			"scaler dimension mismatch",
			strings.Replace(goodArtifact, `"scale":  [400.0, 500.0, 30.0, 25.0]`, `"scale":  [400.0]`, 1),
			"scaler dimensions",
		},
		{
			"missing label name",
			strings.Replace(goodArtifact, `"2": "Critical"`, `"9": "Critical"`, 1),
			"label_names missing class 2",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadArtifact(writeArtifact(t, tc.content))
			if err == nil {
				t.Fatalf("LoadArtifact: expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err: got %q, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadArtifact_FileMissing(t *testing.T) {
	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("LoadArtifact: expected error for missing file")
	}
}

func TestArtifact_CheckOrder(t *testing.T) {
	a, err := LoadArtifact(writeArtifact(t, goodArtifact))
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}

	if err := a.CheckOrder([]string{"used_memory", "used_storage", "cpuusage", "temperature"}); err != nil {
		t.Errorf("CheckOrder: %v", err)
	}
	if err := a.CheckOrder([]string{"temperature", "cpuusage", "used_storage", "used_memory"}); err == nil {
		t.Errorf("CheckOrder: reordered keys must fail")
	}
	if err := a.CheckOrder([]string{"temperature"}); err == nil {
		t.Errorf("CheckOrder: wrong arity must fail")
	}
}

func TestArtifact_RobustScale(t *testing.T) {
	a := &Artifact{
		FeatureOrder: []string{"a", "b"},
		Scaler:       ScalerParams{Center: []float64{10, 5}, Scale: []float64{2, 0}},
	}
	got := a.scale([]float64{14, 8})
	if got[0] != 2 {
		t.Errorf("scaled[0]: got %v, want 2", got[0])
	}
	// Zero IQR centers without dividing.
	if got[1] != 3 {
		t.Errorf("scaled[1]: got %v, want 3", got[1])
	}
}
