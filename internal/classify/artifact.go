package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// SupportedArtifactVersion is the artifact blob version this build accepts.
// A mismatched blob fails to load; it never silently disables classification.
const SupportedArtifactVersion = 1

// ScalerParams holds a fitted robust scaler: per-feature medians and
// interquartile ranges, in feature_order.
type ScalerParams struct {
	Center []float64 `json:"center"`
	Scale  []float64 `json:"scale"`
}

// ModelParams holds a fitted linear multi-class model: one weight row and
// one intercept per class, scored against the scaled feature vector.
type ModelParams struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// Artifact is a frozen, versioned classifier bundle. It is immutable after
// load; runtime replacement goes through Learned.Swap, never mutation.
type Artifact struct {
	Version      int               `json:"artifact_version"`
	FeatureOrder []string          `json:"feature_order"`
	LabelNames   map[string]string `json:"label_names"`
	Scaler       ScalerParams      `json:"scaler"`
	Model        ModelParams       `json:"model"`
}

// LoadArtifact reads and validates a classifier artifact from path.
// Any structural defect is a load failure with a descriptive error.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read %q: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("artifact: parse %q: %w", path, err)
	}
	if err := a.check(); err != nil {
		return nil, fmt.Errorf("artifact %q: %w", path, err)
	}
	return &a, nil
}

func (a *Artifact) check() error {
	if a.Version != SupportedArtifactVersion {
		return fmt.Errorf("version %d not supported (want %d)", a.Version, SupportedArtifactVersion)
	}
	n := len(a.FeatureOrder)
	if n == 0 {
		return fmt.Errorf("feature_order is empty")
	}
	if len(a.Scaler.Center) != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("scaler dimensions %d/%d do not match %d features",
			len(a.Scaler.Center), len(a.Scaler.Scale), n)
	}
	classes := len(a.Model.Weights)
	if classes == 0 {
		return fmt.Errorf("model has no classes")
	}
	if len(a.Model.Intercepts) != classes {
		return fmt.Errorf("model has %d weight rows but %d intercepts",
			classes, len(a.Model.Intercepts))
	}
	for i, row := range a.Model.Weights {
		if len(row) != n {
			return fmt.Errorf("weight row %d has %d entries, want %d", i, len(row), n)
		}
	}
	for i := 0; i < classes; i++ {
		if _, ok := a.LabelNames[strconv.Itoa(i)]; !ok {
			return fmt.Errorf("label_names missing class %d", i)
		}
	}
	return nil
}

// CheckOrder verifies the artifact was fitted for exactly this feature
// order. The order is part of the inference contract; a mismatch at wiring
// time is fatal.
func (a *Artifact) CheckOrder(keys []string) error {
	if len(keys) != len(a.FeatureOrder) {
		return fmt.Errorf("artifact expects %d features, pipeline derives %d",
			len(a.FeatureOrder), len(keys))
	}
	for i, k := range keys {
		if a.FeatureOrder[i] != k {
			return fmt.Errorf("artifact feature %d is %q, pipeline derives %q",
				i, a.FeatureOrder[i], k)
		}
	}
	return nil
}

// scale applies the robust scaler. A zero interquartile range centers
// without dividing.
func (a *Artifact) scale(features []float64) []float64 {
	scaled := make([]float64, len(features))
	for i, v := range features {
		scaled[i] = v - a.Scaler.Center[i]
		if a.Scaler.Scale[i] != 0 {
			scaled[i] /= a.Scaler.Scale[i]
		}
	}
	return scaled
}

// predict returns the argmax class id over the linear scores.
func (a *Artifact) predict(features []float64) int {
	scaled := a.scale(features)
	best, bestScore := 0, 0.0
	for class, row := range a.Model.Weights {
		score := a.Model.Intercepts[class]
		for i, w := range row {
			score += w * scaled[i]
		}
		if class == 0 || score > bestScore {
			best, bestScore = class, score
		}
	}
	return best
}
