package classify

import "errors"

// Severity labels. The set is closed: extending it requires retraining the
// artifact and updating the rule thresholds in lockstep, since both
// strategies must agree on the label vocabulary.
const (
	LabelHealthy  = "Healthy"
	LabelWarning  = "Warning"
	LabelCritical = "Critical"
)

// ErrModelUnavailable is returned by Learned when classification is
// requested but no artifact is loaded. Callers fall back to the rule
// cascade or report "Unknown".
var ErrModelUnavailable = errors.New("no classifier artifact loaded")

// Result is one classification outcome: a severity label and a
// human-readable explanation.
type Result struct {
	Label  string
	Reason string
}

// Classifier assigns a severity to a feature vector. Implementations are
// pure and safe for concurrent use.
type Classifier interface {
	Classify(features []float64) (Result, error)
}

// Chain asks the learned model first and falls back to the rule cascade
// when no artifact is loaded. Whichever strategy picks the label, the
// reason is re-derived from the cascade (see the package comment).
type Chain struct {
	learned *Learned
	rules   *RuleBased
}

// NewChain composes a learned classifier with its rule-based fallback.
func NewChain(learned *Learned, rules *RuleBased) *Chain {
	return &Chain{learned: learned, rules: rules}
}

func (c *Chain) Classify(features []float64) (Result, error) {
	res, err := c.learned.Classify(features)
	if errors.Is(err, ErrModelUnavailable) {
		res, err = c.rules.Classify(features)
	}
	if err != nil {
		return Result{}, err
	}
	res.Reason = c.rules.Explain(features)
	return res, nil
}
