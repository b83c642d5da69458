// Package model contains domain records passed between layers.
package model

import "time"

// Offer identifies a course type in the catalog. Offers are immutable once
// loaded for a request; events reference them by ID.
type Offer struct {
	ID          int64
	Name        string
	Description string
	URL         string // catalog detail page the offer was sourced from
	Intensity   Intensity
	Focus       []Focus
	Settings    []Setting
	Features    Features // nil when the source row carries no usable feature data
	AvgRating   float64  // neutral RatingNeutral when nobody rated yet
	RatingCount int
	HasUpcoming bool // at least one future, non-cancelled event
}

// RatingNeutral is the average rating reported for offers nobody rated yet.
const RatingNeutral = 3.0

// HasFeatures reports whether the offer carries a usable feature vector.
func (o Offer) HasFeatures() bool {
	return len(o.Features) > 0
}

// Event is one scheduled occurrence of an offer.
type Event struct {
	ID        int64
	OfferID   int64
	OfferName string // denormalized for display and feeds
	Start     time.Time
	End       time.Time
	Weekday   Weekday
	Location  string
	Cancelled bool
}

// Upcoming reports whether the event starts at or after now.
func (e Event) Upcoming(now time.Time) bool {
	return !e.Start.Before(now)
}

// Location is a venue events take place at.
type Location struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

// MatchResult pairs an offer with its computed match score and whether it
// satisfied every hard criterion. Recomputed on every request, never stored.
type MatchResult struct {
	Offer             Offer
	Score             float64 // always in [0, 100]
	PassedHardFilters bool
}
