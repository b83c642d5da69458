// Package filter applies user-selected predicates over catalog snapshots.
//
// Both entry points are pure functions of (records, criteria): they never
// mutate their inputs, keep the input ordering, and an empty result is a
// normal outcome, not an error. Criteria are validated at the API boundary
// before they get here.
package filter

import (
	"strings"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// Offers returns the offers satisfying every set criterion (hard filtering,
// logical AND). The output is always a subset of the input.
func Offers(offers []model.Offer, c model.OfferCriteria) []model.Offer {
	if c.IsZero() {
		out := make([]model.Offer, len(offers))
		copy(out, offers)
		return out
	}
	out := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if OfferMatches(o, c) {
			out = append(out, o)
		}
	}
	return out
}

// Events returns the events satisfying every set criterion (hard filtering,
// logical AND). The output is always a subset of the input.
func Events(events []model.Event, c model.EventCriteria) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if eventMatches(e, c) {
			out = append(out, e)
		}
	}
	return out
}

// OfferMatches reports whether the offer satisfies every set criterion.
func OfferMatches(o model.Offer, c model.OfferCriteria) bool {
	if c.WithFeatures && !o.HasFeatures() {
		return false
	}
	if c.UpcomingOnly && !o.HasUpcoming {
		return false
	}
	return OfferMismatches(o, c) == 0
}

// OfferMismatches counts the set preference criteria the offer fails: search
// text, intensity, focus and setting. The soft-filtering path turns each miss
// into a fixed score penalty instead of excluding the offer outright.
// Feature and upcoming requirements are not counted here; they stay
// exclusionary even in soft mode.
func OfferMismatches(o model.Offer, c model.OfferCriteria) int {
	misses := 0
	if c.Search != "" && !matchesSearch(o, c.Search) {
		misses++
	}
	if len(c.Intensities) > 0 && !containsIntensity(c.Intensities, o.Intensity) {
		misses++
	}
	if len(c.Focus) > 0 && !overlapsFocus(o.Focus, c.Focus) {
		misses++
	}
	if len(c.Settings) > 0 && !overlapsSettings(o.Settings, c.Settings) {
		misses++
	}
	return misses
}

func matchesSearch(o model.Offer, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.Name), q) ||
		strings.Contains(strings.ToLower(o.Description), q)
}

func containsIntensity(set []model.Intensity, v model.Intensity) bool {
	for _, i := range set {
		if i == v {
			return true
		}
	}
	return false
}

// overlapsFocus reports whether the offer covers at least one wanted focus.
func overlapsFocus(have, want []model.Focus) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// overlapsSettings reports whether the offer covers at least one wanted setting.
func overlapsSettings(have, want []model.Setting) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func eventMatches(e model.Event, c model.EventCriteria) bool {
	if c.OfferID != 0 && e.OfferID != c.OfferID {
		return false
	}
	if c.OfferName != "" && !strings.EqualFold(e.OfferName, c.OfferName) {
		return false
	}
	if len(c.Weekdays) > 0 && !containsWeekday(c.Weekdays, e.Weekday) {
		return false
	}
	// Date bounds are calendar days; To is inclusive through the end of day.
	if !c.DateFrom.IsZero() && e.Start.Before(c.DateFrom) {
		return false
	}
	if !c.DateTo.IsZero() && !e.Start.Before(c.DateTo.AddDate(0, 0, 1)) {
		return false
	}
	if c.Window != nil && !c.Window.Contains(model.TimeOfDayAt(e.Start)) {
		return false
	}
	if c.Location != "" && !strings.EqualFold(e.Location, c.Location) {
		return false
	}
	if c.HideCancelled && e.Cancelled {
		return false
	}
	return true
}

func containsWeekday(set []model.Weekday, v model.Weekday) bool {
	for _, d := range set {
		if d == v {
			return true
		}
	}
	return false
}
