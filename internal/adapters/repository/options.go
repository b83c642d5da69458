package repository

import "time"

type settings struct {
	slowThreshold time.Duration
	autoMigrate   bool
}

// Option applies a configuration option to Open.
type Option func(*settings)

// WithSlowThreshold sets the latency above which queries are logged as slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.slowThreshold = d
		}
	}
}

// WithAutoMigrate creates or updates the schema on startup. Meant for the
// demo harness and fresh databases, not for production rollouts.
func WithAutoMigrate() Option {
	return func(s *settings) {
		s.autoMigrate = true
	}
}
