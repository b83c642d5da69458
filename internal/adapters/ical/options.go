package ical

type settings struct {
	name   string
	prodID string
	now    Clock
}

// Option configures the feed builder.
type Option func(*settings)

// WithCalendarName sets the display name clients show for the subscription.
func WithCalendarName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithProductID overrides the PRODID the calendar is stamped with.
func WithProductID(id string) Option {
	return func(s *settings) {
		if id != "" {
			s.prodID = id
		}
	}
}

// WithClock injects a time source for deterministic output in tests.
func WithClock(now Clock) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
