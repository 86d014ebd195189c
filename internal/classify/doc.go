// Package classify assigns a health severity to a feature vector.
//
// Two strategies implement the Classifier interface: RuleBased, an ordered
// first-match-wins threshold cascade that is always available, and Learned,
// which scores the vector through a frozen artifact (robust scaler plus
// linear model) loaded from disk. Chain composes them: the learned model is
// asked first and the cascade is the fallback when no artifact is loaded.
//
// The reason string attached to a result is always produced by the rule
// cascade, even when the learned model chose the label. The two can
// disagree near the model's decision boundary; this is an intentional
// explainability approximation, part of the package contract.
package classify
