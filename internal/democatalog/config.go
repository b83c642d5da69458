// Package democatalog seeds a small curated course catalog and smoke-checks
// a running kursfinder instance end to end over its public HTTP API.
package democatalog

import "time"

// Config holds configuration for the demo run
type Config struct {
	BaseURL  string        // Base URL of the service
	SkipSeed bool          // Check a catalog that is already in place
	Timeout  time.Duration // HTTP request timeout
	Wait     time.Duration // How long to wait for the seeded catalog to appear
	LogFile  string        // Log file for demo output
	Verbose  bool          // Enable verbose logging
}

// OfferEntry mirrors the catalog listing response
type OfferEntry struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Intensity   string             `json:"intensity"`
	Focus       []string           `json:"focus"`
	Settings    []string           `json:"settings"`
	AvgRating   float64            `json:"avg_rating"`
	HasUpcoming bool               `json:"has_upcoming"`
	Features    map[string]float64 `json:"features"`
}

// MatchEntry mirrors one recommendation result
type MatchEntry struct {
	Offer             OfferEntry `json:"offer"`
	Score             float64    `json:"score"`
	PassedHardFilters bool       `json:"passed_hard_filters"`
}

// Stats holds demo run statistics
type Stats struct {
	OffersSeeded    int
	SessionsSeeded  int
	LocationsSeeded int
	SamplesSeeded   int
	ChecksRun       int
	ChecksFailed    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
