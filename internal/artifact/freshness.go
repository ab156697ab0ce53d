package artifact

import "time"

// Decision is the outcome of a cache-freshness check.
type Decision int

const (
	// Recompute means the artifact is missing, unparseable or stale.
	Recompute Decision = iota
	// Reuse means the artifact is recent enough to skip the run.
	Reuse
)

// Decide is a pure freshness check: reuse the artifact when it was generated
// within maxAge of now. A zero generatedAt (missing artifact) always
// recomputes, as does a generatedAt in the future, which indicates a bad
// clock somewhere.
func Decide(now, generatedAt time.Time, maxAge time.Duration) Decision {
	if generatedAt.IsZero() || generatedAt.After(now) {
		return Recompute
	}
	if now.Sub(generatedAt) <= maxAge {
		return Reuse
	}
	return Recompute
}

// DecideFromFile applies Decide to an existing artifact file.
func DecideFromFile(path string, now time.Time, maxAge time.Duration) Decision {
	stamp, ok := ReadGeneratedAt(path)
	if !ok {
		return Recompute
	}
	generatedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return Recompute
	}
	return Decide(now, generatedAt, maxAge)
}
