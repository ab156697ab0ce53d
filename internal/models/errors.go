package models

import "errors"

// Run-fatal error taxonomy. Every stage error wraps one of these sentinels
// and aborts the run before the output artifact is touched.
var (
	// ErrSourceFetch indicates an external data source was unavailable or
	// returned malformed/empty data for a required series.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrInsufficientHistory indicates fewer rows than the rolling windows
	// require, or an incomplete feature vector on the prediction target.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrTraining indicates the labeled set was below the minimum size or
	// the classifier failed to fit.
	ErrTraining = errors.New("training failed")

	// ErrSerialization indicates the output schema could not be assembled,
	// e.g. a NaN in a required numeric field.
	ErrSerialization = errors.New("serialization failed")
)
