// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unisport/kursfinder/internal/adapters/cache"
	"github.com/unisport/kursfinder/internal/adapters/ical"
	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/domain/filter"
	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/internal/domain/recommend"
	"github.com/unisport/kursfinder/pkg/logger"
	"github.com/unisport/kursfinder/pkg/metrics"
)

// Error constants.
var (
	ErrNoStore    = errors.New("service has no store")
	ErrNotStarted = errors.New("service not started")
)

// snapshotKey is the single cache key; the catalog loads as one unit so
// offers and events always come from the same read.
const snapshotKey = "catalog"

// defaultSnapshotTTL bounds catalog staleness when no TTL is configured.
const defaultSnapshotTTL = 5 * time.Minute

// snapshot is one consistent view of the catalog.
type snapshot struct {
	offers []model.Offer
	events []model.Event
	byID   map[int64]int // offer id -> index into offers
}

// Service implements the API dependencies for the course catalog.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	scorer   *recommend.Scorer
	feed     *ical.Builder
	snapshot *cache.Cache[snapshot]

	// Configuration
	cacheTTL time.Duration
	feedName string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing catalog store. The service does not start
// without one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer sets a configured recommendation scorer.
func WithScorer(scorer *recommend.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithCacheTTL sets how long a catalog snapshot stays fresh. Zero disables
// caching; every read then loads from the store.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithFeedName sets the display name of the calendar feed.
func WithFeedName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.feedName = name
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL: defaultSnapshotTTL,
		logger:   nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components and warms the snapshot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.started {
		s.mu.Unlock()
		return nil
	}

	if s.store == nil {
		s.mu.Unlock()
		return ErrNoStore
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting catalog service...")

	if s.scorer == nil {
		s.scorer = recommend.NewScorer()
	}

	feedOpts := []ical.Option{}
	if s.feedName != "" {
		feedOpts = append(feedOpts, ical.WithCalendarName(s.feedName))
	}
	s.feed = ical.NewBuilder(feedOpts...)

	s.snapshot = cache.New[snapshot](
		cache.WithName("snapshot"),
		cache.WithTTL(s.cacheTTL),
	)

	s.started = true
	s.mu.Unlock()

	// Warm the snapshot so the first request does not pay for the load.
	// An unreachable store at boot is not fatal; reads retry through the
	// cache until it comes back.
	if _, err := s.current(ctx); err != nil {
		s.logger.Warn(ctx, "snapshot warmup failed", logger.Error(err))
	}

	s.logger.Info(ctx, "catalog service started",
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.String("feedName", s.feedName),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping catalog service...")

	if s.snapshot != nil {
		s.snapshot.InvalidateAll()
	}

	s.started = false
	s.logger.Info(context.Background(), "catalog service stopped")
}

// current returns the live snapshot, loading it through the store when the
// cached one is missing or expired.
func (s *Service) current(ctx context.Context) (snapshot, error) {
	s.mu.RLock()
	c := s.snapshot
	s.mu.RUnlock()

	if c == nil {
		return snapshot{}, ErrNotStarted
	}
	return c.Get(ctx, snapshotKey, s.load)
}

func (s *Service) load(ctx context.Context) (snapshot, error) {
	start := time.Now()

	offers, err := s.store.Offers(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load offers: %w", err)
	}
	events, err := s.store.Events(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load events: %w", err)
	}

	byID := make(map[int64]int, len(offers))
	for i, o := range offers {
		byID[o.ID] = i
	}

	metrics.RecordSnapshotRefresh(float64(time.Since(start).Milliseconds()))
	metrics.UpdateCatalogOffers(len(offers))
	metrics.UpdateCatalogEvents(len(events))

	s.logger.Debug(ctx, "catalog snapshot refreshed",
		logger.Int("offers", len(offers)),
		logger.Int("events", len(events)),
	)

	return snapshot{offers: offers, events: events, byID: byID}, nil
}

// Invalidate drops the cached snapshot so the next read hits the store.
// The importer calls this after a finished run.
func (s *Service) Invalidate() {
	s.mu.RLock()
	c := s.snapshot
	s.mu.RUnlock()

	if c != nil {
		c.Invalidate(snapshotKey)
	}
}

// ListOffers returns the offers matching all given criteria.
func (s *Service) ListOffers(ctx context.Context, c model.OfferCriteria) ([]model.Offer, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := filter.Offers(snap.offers, c)
	metrics.RecordFilterDuration(float64(time.Since(start).Milliseconds()))

	return out, nil
}

// GetOffer returns one offer together with its scheduled sessions.
func (s *Service) GetOffer(ctx context.Context, id int64) (model.Offer, []model.Event, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return model.Offer{}, nil, err
	}

	i, ok := snap.byID[id]
	if !ok {
		return model.Offer{}, nil, fmt.Errorf("offer %d: %w", id, repository.ErrNotFound)
	}
	events := filter.Events(snap.events, model.EventCriteria{OfferID: id})

	return snap.offers[i], events, nil
}

// ListEvents returns the sessions matching all given criteria, in the
// chronological order the snapshot carries.
func (s *Service) ListEvents(ctx context.Context, c model.EventCriteria) ([]model.Event, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := filter.Events(snap.events, c)
	metrics.RecordFilterDuration(float64(time.Since(start).Milliseconds()))

	return out, nil
}

// Recommend ranks the catalog against the request's preference vector.
func (s *Service) Recommend(ctx context.Context, req recommend.Request) ([]model.MatchResult, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	metrics.RecordRecommendRequest()
	start := time.Now()

	results, err := s.scorer.Rank(snap.offers, req)
	if err != nil {
		return nil, err
	}

	metrics.RecordRecommendDuration(float64(time.Since(start).Milliseconds()))
	if len(results) == 0 {
		metrics.RecordRecommendEmptyResult()
	}

	return results, nil
}

// Feed renders the matching sessions as an iCalendar document.
func (s *Service) Feed(ctx context.Context, c model.EventCriteria) (string, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	metrics.RecordFeedRequest()
	return s.feed.Render(filter.Events(snap.events, c)), nil
}

// EnsureUser upserts a user by subject and returns the stored id.
func (s *Service) EnsureUser(ctx context.Context, sub, email, name string) (int64, error) {
	return s.store.EnsureUser(ctx, sub, email, name)
}

// Favorites returns the user's favorite offers. Favorites pointing at offers
// that have since left the catalog are skipped, not an error.
func (s *Service) Favorites(ctx context.Context, userID int64) ([]model.Offer, error) {
	ids, err := s.store.Favorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Offer, 0, len(ids))
	for _, id := range ids {
		if i, ok := snap.byID[id]; ok {
			out = append(out, snap.offers[i])
		}
	}
	return out, nil
}

// SetFavorite turns a favorite on or off and reports whether state changed.
func (s *Service) SetFavorite(ctx context.Context, userID, offerID int64, on bool) (bool, error) {
	return s.store.SetFavorite(ctx, userID, offerID, on)
}

// SavePreferences stores the user's preference vector.
func (s *Service) SavePreferences(ctx context.Context, userID int64, f model.Features) error {
	return s.store.SavePreferences(ctx, userID, f)
}

// PreferencesFor loads the user's saved preference vector.
func (s *Service) PreferencesFor(ctx context.Context, userID int64) (model.Features, time.Time, error) {
	p, err := s.store.PreferencesFor(ctx, userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return p.Features, p.SavedAt, nil
}

// RateOffer stores the user's rating for an offer.
func (s *Service) RateOffer(ctx context.Context, userID, offerID int64, score int) error {
	if err := s.store.RateOffer(ctx, userID, offerID, score); err != nil {
		return err
	}

	// Rating aggregates are baked into snapshot rows, so the cached view is
	// stale the moment a rating lands.
	s.Invalidate()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	if snap, ok := s.snapshot.Peek(snapshotKey); ok {
		stats["offers"] = len(snap.offers)
		stats["events"] = len(snap.events)

		// Update metrics
		metrics.UpdateCatalogOffers(len(snap.offers))
		metrics.UpdateCatalogEvents(len(snap.events))
	}
	if age, ok := s.snapshot.Age(snapshotKey); ok {
		stats["snapshot_age"] = age.Round(time.Second).String()
	}

	if run, err := s.store.LastRun(ctx); err == nil {
		stats["last_import"] = map[string]interface{}{
			"id":          run.ID,
			"status":      run.Status,
			"started_at":  run.StartedAt,
			"offers_seen": run.OffersSeen,
			"events_seen": run.EventsSeen,
		}
	}

	return stats
}
