// Package ml trains and applies the gradient-boosted direction classifier.
package ml

import "errors"

var (
	// ErrTooFewRows indicates the labeled set is below the configured minimum
	ErrTooFewRows = errors.New("labeled history below minimum row count")

	// ErrDimensionMismatch indicates feature vectors of differing lengths
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrNotFitted indicates prediction was requested before training
	ErrNotFitted = errors.New("model not fitted")

	// ErrDegenerateSplit indicates the chronological holdout left an empty segment
	ErrDegenerateSplit = errors.New("holdout split left an empty segment")
)
