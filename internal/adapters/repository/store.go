// Package repository persists the sports catalog and user state in Postgres.
package repository

import (
	"context"
	"time"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// Preferences is a user's saved preference vector in catalog dimension order.
type Preferences struct {
	UserID   int64
	Features model.Features
	SavedAt  time.Time
}

// ETLRun summarizes one importer run.
type ETLRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	PagesFetched int
	PagesFailed  int
	OffersSeen   int
	EventsSeen   int
	LastError    string
}

// ETL run status values.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Store provides read/write access to the catalog state.
type Store interface {
	// Offers returns every offer with rating aggregates and upcoming-event
	// flags joined in, ordered by average rating desc then name asc.
	Offers(ctx context.Context) ([]model.Offer, error)
	// OfferByID returns a single offer. Returns ErrNotFound if unknown.
	OfferByID(ctx context.Context, id int64) (model.Offer, error)
	// Events returns every scheduled session joined with its offer name,
	// ordered by start time asc.
	Events(ctx context.Context) ([]model.Event, error)
	// Locations returns all known venues ordered by name.
	Locations(ctx context.Context) ([]model.Location, error)

	// UpsertOffers writes scraped offers keyed by href and returns the
	// ids assigned to them, indexed by href.
	UpsertOffers(ctx context.Context, offers []ScrapedOffer) (map[string]int64, error)
	// UpsertEvents writes scraped sessions keyed by (kursnr, start time).
	UpsertEvents(ctx context.Context, events []ScrapedEvent) (int, error)
	// UpsertLocations writes venues keyed by name.
	UpsertLocations(ctx context.Context, locations []model.Location) (int, error)

	// EnsureUser upserts a user by OIDC subject and returns the row id.
	EnsureUser(ctx context.Context, sub, email, name string) (int64, error)
	// Favorites lists the offer ids a user has marked.
	Favorites(ctx context.Context, userID int64) ([]int64, error)
	// SetFavorite turns a favorite on or off. Returns true when the call
	// changed state.
	SetFavorite(ctx context.Context, userID, offerID int64, on bool) (bool, error)
	// SavePreferences stores a user's preference vector, replacing any
	// previous one.
	SavePreferences(ctx context.Context, userID int64, features model.Features) error
	// PreferencesFor loads a user's saved vector. Returns ErrNotFound when
	// the user never saved one.
	PreferencesFor(ctx context.Context, userID int64) (Preferences, error)
	// RateOffer upserts a 1..5 rating. Returns ErrInvalidRating outside
	// that range and ErrNotFound for unknown offers.
	RateOffer(ctx context.Context, userID, offerID int64, rating int) error

	// AddTrainingSample upserts a labeled feature vector keyed by sport name.
	AddTrainingSample(ctx context.Context, sport string, features model.Features) error
	// TrainingSamples returns the full training matrix ordered by sport name.
	TrainingSamples(ctx context.Context) (map[string]model.Features, error)

	// BeginRun opens an etl_runs row; FinishRun closes it.
	BeginRun(ctx context.Context, run ETLRun) error
	FinishRun(ctx context.Context, run ETLRun) error
	// LastRun returns the most recently started run. ErrNotFound when the
	// importer never ran.
	LastRun(ctx context.Context) (ETLRun, error)

	// Ping verifies the backing connection is alive.
	Ping(ctx context.Context) error
}

// ScrapedOffer is the importer's write shape for one offer. Features may be
// nil when the source page carried nothing usable.
type ScrapedOffer struct {
	Name        string
	Href        string
	Description string
	Intensity   string
	Focus       []string
	Settings    []string
	Features    model.Features
}

// ScrapedEvent is the importer's write shape for one session. OfferID comes
// from the id map UpsertOffers returned for the run.
type ScrapedEvent struct {
	OfferID      int64
	Kursnr       string
	Start        time.Time
	End          time.Time
	LocationName string
	Cancelled    bool
}
