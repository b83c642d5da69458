package recommend

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithK sets the default neighborhood size.
func WithK(k int) Option {
	return func(s *Scorer) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithPolicy sets what happens to offers outside the K nearest.
func WithPolicy(p Policy) Option {
	return func(s *Scorer) {
		if p == PolicyOmit || p == PolicyZero {
			s.policy = p
		}
	}
}

// WithSoftPenalty sets the score deduction per mismatched preference
// criterion in the soft-filtering pipeline.
func WithSoftPenalty(points float64) Option {
	return func(s *Scorer) {
		if points >= 0 {
			s.softPenalty = points
		}
	}
}

// WithMinScore sets the default minimum score for ranked results.
func WithMinScore(threshold float64) Option {
	return func(s *Scorer) {
		if threshold >= 0 && threshold <= maxScore {
			s.minScore = threshold
		}
	}
}

// WithLimit caps the number of ranked results. Zero means no cap.
func WithLimit(n int) Option {
	return func(s *Scorer) {
		if n >= 0 {
			s.limit = n
		}
	}
}
