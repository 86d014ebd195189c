package classify

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Learned classifies through the currently loaded artifact. The artifact
// pointer is swapped atomically: a reload publishes a fully constructed
// artifact, so in-flight classification never observes a partial update.
type Learned struct {
	artifact atomic.Pointer[Artifact]
}

// NewLearned creates a Learned classifier. a may be nil, in which case
// Classify returns ErrModelUnavailable until Swap publishes an artifact.
func NewLearned(a *Artifact) *Learned {
	l := &Learned{}
	if a != nil {
		l.artifact.Store(a)
	}
	return l
}

// Swap atomically replaces the active artifact.
func (l *Learned) Swap(a *Artifact) {
	l.artifact.Store(a)
}

// Loaded reports whether an artifact is currently active.
func (l *Learned) Loaded() bool {
	return l.artifact.Load() != nil
}

// Classify scales the vector with the artifact's fitted parameters, maps it
// through the model to a class id, and translates the id via label_names.
// The result carries no reason; explanation is the rule cascade's job
// (see the package comment).
func (l *Learned) Classify(features []float64) (Result, error) {
	a := l.artifact.Load()
	if a == nil {
		return Result{}, ErrModelUnavailable
	}
	if len(features) != len(a.FeatureOrder) {
		return Result{}, fmt.Errorf("feature vector has %d entries, artifact expects %d",
			len(features), len(a.FeatureOrder))
	}

	class := a.predict(features)
	label, ok := a.LabelNames[strconv.Itoa(class)]
	if !ok {
		return Result{}, fmt.Errorf("model produced unknown class %d", class)
	}
	return Result{Label: label}, nil
}
