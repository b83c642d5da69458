package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OfferCriteria holds the active offer predicates. Every field is optional;
// a zero value imposes no constraint. Criteria are validated at the API
// boundary, the filter engine assumes they are well formed.
type OfferCriteria struct {
	Search       string      // substring match on name or description, case-insensitive
	Intensities  []Intensity // offer intensity must be one of these
	Focus        []Focus     // offer must cover at least one of these
	Settings     []Setting   // offer must cover at least one of these
	UpcomingOnly bool        // require at least one upcoming, non-cancelled event
	WithFeatures bool        // require a usable feature vector (scoring pipeline)
}

// IsZero reports whether no constraint is set.
func (c OfferCriteria) IsZero() bool {
	return c.Search == "" && len(c.Intensities) == 0 && len(c.Focus) == 0 &&
		len(c.Settings) == 0 && !c.UpcomingOnly && !c.WithFeatures
}

// Validate rejects malformed criteria before they reach the filter engine.
func (c OfferCriteria) Validate() error {
	for _, i := range c.Intensities {
		if i != IntensityLow && i != IntensityMedium && i != IntensityHigh {
			return fmt.Errorf("%w: intensity %d", ErrBadCriteria, i)
		}
	}
	for _, f := range c.Focus {
		if _, ok := allFocus[f]; !ok {
			return fmt.Errorf("%w: focus %q", ErrBadCriteria, f)
		}
	}
	for _, s := range c.Settings {
		if _, ok := allSettings[s]; !ok {
			return fmt.Errorf("%w: setting %q", ErrBadCriteria, s)
		}
	}
	return nil
}

// TimeOfDay is minutes since midnight, in [0, 1440).
type TimeOfDay int

// minutesPerDay bounds TimeOfDay values.
const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return TimeOfDay(h*60 + m), nil
}

// TimeOfDayAt extracts the time of day from a point in time.
func TimeOfDayAt(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeWindow bounds an event's start time of day, inclusive on both ends.
type TimeWindow struct {
	From TimeOfDay
	To   TimeOfDay
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t TimeOfDay) bool {
	return t >= w.From && t <= w.To
}

// Validate checks window sanity.
func (w TimeWindow) Validate() error {
	if w.From < 0 || w.To >= minutesPerDay || w.From > w.To {
		return fmt.Errorf("%w: window %s-%s", ErrBadCriteria, w.From, w.To)
	}
	return nil
}

// EventCriteria holds the active event predicates. Every field is optional;
// a zero value imposes no constraint. The time window is a pointer so that
// "no window" and "window starting at midnight" stay distinguishable.
type EventCriteria struct {
	OfferID       int64     // events of one offer
	OfferName     string    // exact offer name, case-insensitive
	Weekdays      []Weekday // event weekday must be one of these
	DateFrom      time.Time // inclusive; zero means open-ended
	DateTo        time.Time // inclusive; zero means open-ended
	Window        *TimeWindow
	Location      string // exact location name, case-insensitive
	HideCancelled bool
}

// Validate rejects malformed criteria before they reach the filter engine.
func (c EventCriteria) Validate() error {
	for _, d := range c.Weekdays {
		if _, err := ParseWeekday(string(d)); err != nil {
			return fmt.Errorf("%w: weekday %q", ErrBadCriteria, d)
		}
	}
	if !c.DateFrom.IsZero() && !c.DateTo.IsZero() && c.DateTo.Before(c.DateFrom) {
		return fmt.Errorf("%w: date range ends before it starts", ErrBadCriteria)
	}
	if c.Window != nil {
		if err := c.Window.Validate(); err != nil {
			return err
		}
	}
	return nil
}
