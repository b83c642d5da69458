package recommend

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrDimensionMismatch means the preference vector and the offer
	// feature vectors disagree on dimensionality. That is a configuration
	// problem and is surfaced to the caller, never papered over.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)
