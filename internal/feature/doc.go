// Package feature turns a canonical metrics mapping into the fixed-order
// numeric vector the classifier consumes. Missing, null, or non-numeric
// values derive to an explicit default rather than raising; consumption
// metrics (used memory/storage) are pre-derived from their total/remaining
// pairs before extraction.
package feature
