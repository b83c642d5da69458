package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/unisport/kursfinder/internal/app"
	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fakeStore is an in-memory repository.Store used by service tests.
type fakeStore struct {
	mu sync.Mutex

	offers []model.Offer
	events []model.Event

	offersErr   error
	offersCalls int
	eventsCalls int

	nextUser  int64
	users     map[string]int64
	favorites map[int64]map[int64]bool
	prefs     map[int64]repository.Preferences
	ratings   map[int64]map[int64]int
	training  map[string]model.Features
	lastRun   *repository.ETLRun
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offers:    catalogOffers(),
		events:    scheduleEvents(),
		users:     make(map[string]int64),
		favorites: make(map[int64]map[int64]bool),
		prefs:     make(map[int64]repository.Preferences),
		ratings:   make(map[int64]map[int64]int),
		training:  make(map[string]model.Features),
	}
}

func (f *fakeStore) Offers(ctx context.Context) ([]model.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offersCalls++
	if f.offersErr != nil {
		return nil, f.offersErr
	}
	return f.offers, nil
}

func (f *fakeStore) OfferByID(ctx context.Context, id int64) (model.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.offers {
		if o.ID == id {
			return o, nil
		}
	}
	return model.Offer{}, repository.ErrNotFound
}

func (f *fakeStore) Events(ctx context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsCalls++
	return f.events, nil
}

func (f *fakeStore) Locations(ctx context.Context) ([]model.Location, error) {
	return nil, nil
}

func (f *fakeStore) UpsertOffers(ctx context.Context, offers []repository.ScrapedOffer) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (f *fakeStore) UpsertEvents(ctx context.Context, events []repository.ScrapedEvent) (int, error) {
	return 0, nil
}

func (f *fakeStore) UpsertLocations(ctx context.Context, locations []model.Location) (int, error) {
	return 0, nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, sub, email, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.users[sub]; ok {
		return id, nil
	}
	f.nextUser++
	f.users[sub] = f.nextUser
	return f.nextUser, nil
}

func (f *fakeStore) Favorites(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.favorites[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

func (f *fakeStore) SetFavorite(ctx context.Context, userID, offerID int64, on bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favorites[userID] == nil {
		f.favorites[userID] = make(map[int64]bool)
	}
	if f.favorites[userID][offerID] == on {
		return false, nil
	}
	if on {
		f.favorites[userID][offerID] = true
	} else {
		delete(f.favorites[userID], offerID)
	}
	return true, nil
}

func (f *fakeStore) SavePreferences(ctx context.Context, userID int64, features model.Features) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[userID] = repository.Preferences{
		UserID:   userID,
		Features: features.Clone(),
		SavedAt:  time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC),
	}
	return nil
}

func (f *fakeStore) PreferencesFor(ctx context.Context, userID int64) (repository.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return repository.Preferences{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) RateOffer(ctx context.Context, userID, offerID int64, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rating < 1 || rating > 5 {
		return repository.ErrInvalidRating
	}
	found := false
	for _, o := range f.offers {
		if o.ID == offerID {
			found = true
			break
		}
	}
	if !found {
		return repository.ErrNotFound
	}
	if f.ratings[userID] == nil {
		f.ratings[userID] = make(map[int64]int)
	}
	f.ratings[userID][offerID] = rating
	return nil
}

func (f *fakeStore) AddTrainingSample(ctx context.Context, sport string, features model.Features) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.training[sport] = features.Clone()
	return nil
}

func (f *fakeStore) TrainingSamples(ctx context.Context) (map[string]model.Features, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.Features, len(f.training))
	for k, v := range f.training {
		out[k] = v.Clone()
	}
	return out, nil
}

func (f *fakeStore) BeginRun(ctx context.Context, run repository.ETLRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRun = &run
	return nil
}

func (f *fakeStore) FinishRun(ctx context.Context, run repository.ETLRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRun = &run
	return nil
}

func (f *fakeStore) LastRun(ctx context.Context) (repository.ETLRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastRun == nil {
		return repository.ETLRun{}, repository.ErrNotFound
	}
	return *f.lastRun, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func vec(weights map[string]float64) model.Features {
	f, err := model.NewFeatures(weights)
	if err != nil {
		panic(err)
	}
	return f
}

func catalogOffers() []model.Offer {
	return []model.Offer{
		{
			ID:          1,
			Name:        "Aikido",
			Intensity:   model.IntensityMedium,
			Focus:       []model.Focus{model.FocusCoordination, model.FocusBalance},
			Settings:    []model.Setting{model.SettingDuo, model.SettingIndoor},
			Features:    vec(map[string]float64{"coordination": 1, "balance": 0.8, "intensity": 0.67}),
			AvgRating:   4.2,
			RatingCount: 5,
			HasUpcoming: true,
		},
		{
			ID:          2,
			Name:        "Rudern",
			Intensity:   model.IntensityHigh,
			Focus:       []model.Focus{model.FocusStrength, model.FocusEndurance},
			Settings:    []model.Setting{model.SettingTeam, model.SettingWater},
			Features:    vec(map[string]float64{"strength": 1, "endurance": 1, "intensity": 1, "setting_team": 1}),
			AvgRating:   model.RatingNeutral,
			HasUpcoming: true,
		},
		{
			ID:          3,
			Name:        "Yoga",
			Intensity:   model.IntensityLow,
			Focus:       []model.Focus{model.FocusFlexibility, model.FocusRelaxation},
			Settings:    []model.Setting{model.SettingSolo, model.SettingIndoor},
			Features:    vec(map[string]float64{"flexibility": 1, "relaxation": 0.9, "balance": 0.5, "intensity": 0.33}),
			AvgRating:   4.8,
			RatingCount: 12,
			HasUpcoming: true,
		},
		{
			ID:          4,
			Name:        "Klettern",
			Intensity:   model.IntensityHigh,
			Focus:       []model.Focus{model.FocusStrength},
			Settings:    []model.Setting{model.SettingIndoor},
			AvgRating:   model.RatingNeutral,
			HasUpcoming: false,
		},
	}
}

func scheduleEvents() []model.Event {
	return []model.Event{
		{
			ID:        10,
			OfferID:   2,
			OfferName: "Rudern",
			Start:     time.Date(2026, time.October, 12, 16, 10, 0, 0, time.UTC),
			End:       time.Date(2026, time.October, 12, 17, 40, 0, 0, time.UTC),
			Weekday:   model.WeekdayMon,
			Location:  "Bootshaus",
		},
		{
			ID:        11,
			OfferID:   1,
			OfferName: "Aikido",
			Start:     time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC),
			End:       time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC),
			Weekday:   model.WeekdayWed,
			Location:  "Studio West",
		},
		{
			ID:        12,
			OfferID:   3,
			OfferName: "Yoga",
			Start:     time.Date(2026, time.October, 16, 12, 15, 0, 0, time.UTC),
			End:       time.Date(2026, time.October, 16, 13, 15, 0, 0, time.UTC),
			Weekday:   model.WeekdayFri,
			Location:  "Studio West",
			Cancelled: true,
		},
	}
}

func newStartedService(store *fakeStore) *service.Service {
	svc := service.New(service.WithStore(store))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithStore(newFakeStore()),
			service.WithCacheTTL(30*time.Second),
			service.WithFeedName("Testkalender"),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with a store", t, func() {
		store := newFakeStore()
		svc := service.New(service.WithStore(store))
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
			})

			Convey("And the snapshot should be warmed", func() {
				store.mu.Lock()
				calls := store.offersCalls
				store.mu.Unlock()
				So(calls, ShouldEqual, 1)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a service without a store", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should refuse to start", func() {
				So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newStartedService(newFakeStore())

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats(context.Background())
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_CatalogReads(t *testing.T) {
	Convey("Given a started service", t, func() {
		store := newFakeStore()
		svc := newStartedService(store)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When listing offers without criteria", func() {
			offers, err := svc.ListOffers(ctx, model.OfferCriteria{})

			Convey("Then the whole catalog comes back", func() {
				So(err, ShouldBeNil)
				So(len(offers), ShouldEqual, 4)
			})
		})

		Convey("When listing offers with criteria", func() {
			offers, err := svc.ListOffers(ctx, model.OfferCriteria{
				Intensities: []model.Intensity{model.IntensityLow},
			})

			So(err, ShouldBeNil)
			So(len(offers), ShouldEqual, 1)
			So(offers[0].Name, ShouldEqual, "Yoga")
		})

		Convey("When reads repeat within the snapshot TTL", func() {
			_, err := svc.ListOffers(ctx, model.OfferCriteria{})
			So(err, ShouldBeNil)
			_, err = svc.ListEvents(ctx, model.EventCriteria{})
			So(err, ShouldBeNil)

			Convey("Then the store is read once", func() {
				store.mu.Lock()
				calls := store.offersCalls
				store.mu.Unlock()
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When the snapshot is invalidated", func() {
			svc.Invalidate()
			_, err := svc.ListOffers(ctx, model.OfferCriteria{})
			So(err, ShouldBeNil)

			Convey("Then the next read reloads", func() {
				store.mu.Lock()
				calls := store.offersCalls
				store.mu.Unlock()
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When getting one offer", func() {
			offer, events, err := svc.GetOffer(ctx, 1)

			Convey("Then it comes back with its schedule", func() {
				So(err, ShouldBeNil)
				So(offer.Name, ShouldEqual, "Aikido")
				So(len(events), ShouldEqual, 1)
				So(events[0].OfferID, ShouldEqual, 1)
			})
		})

		Convey("When getting an unknown offer", func() {
			_, _, err := svc.GetOffer(ctx, 99)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When listing events with criteria", func() {
			events, err := svc.ListEvents(ctx, model.EventCriteria{HideCancelled: true})

			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 2)
		})

		Convey("When the store starts failing after the snapshot expired", func() {
			store.mu.Lock()
			store.offersErr = errors.New("connection refused")
			store.mu.Unlock()
			svc.Invalidate()

			_, err := svc.ListOffers(ctx, model.OfferCriteria{})

			Convey("Then the error propagates", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a service that never started", t, func() {
		svc := service.New(service.WithStore(newFakeStore()))

		Convey("When listing offers", func() {
			_, err := svc.ListOffers(context.Background(), model.OfferCriteria{})

			Convey("Then it should report the missing start", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_UserState(t *testing.T) {
	Convey("Given a started service", t, func() {
		store := newFakeStore()
		svc := newStartedService(store)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When ensuring a user twice", func() {
			id1, err1 := svc.EnsureUser(ctx, "hsg-7", "hsg-7@student.unisg.ch", "Test Student")
			id2, err2 := svc.EnsureUser(ctx, "hsg-7", "hsg-7@student.unisg.ch", "Test Student")

			Convey("Then both calls return the same id", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(id1, ShouldEqual, id2)
			})
		})

		Convey("When toggling favorites", func() {
			userID, err := svc.EnsureUser(ctx, "hsg-7", "", "")
			So(err, ShouldBeNil)

			changed, err := svc.SetFavorite(ctx, userID, 2, true)
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)

			changed, err = svc.SetFavorite(ctx, userID, 2, true)
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)

			Convey("Then the favorites resolve to offers", func() {
				offers, err := svc.Favorites(ctx, userID)
				So(err, ShouldBeNil)
				So(len(offers), ShouldEqual, 1)
				So(offers[0].Name, ShouldEqual, "Rudern")
			})
		})

		Convey("When favorites point at offers gone from the catalog", func() {
			userID, err := svc.EnsureUser(ctx, "hsg-7", "", "")
			So(err, ShouldBeNil)
			_, err = svc.SetFavorite(ctx, userID, 973, true)
			So(err, ShouldBeNil)

			offers, err := svc.Favorites(ctx, userID)

			Convey("Then the stale favorite is skipped", func() {
				So(err, ShouldBeNil)
				So(len(offers), ShouldEqual, 0)
			})
		})

		Convey("When saving and loading preferences", func() {
			userID, err := svc.EnsureUser(ctx, "hsg-7", "", "")
			So(err, ShouldBeNil)

			want := vec(map[string]float64{"relaxation": 1, "flexibility": 0.5})
			So(svc.SavePreferences(ctx, userID, want), ShouldBeNil)

			got, savedAt, err := svc.PreferencesFor(ctx, userID)

			Convey("Then the stored vector comes back", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
				So(savedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When loading preferences nobody saved", func() {
			userID, err := svc.EnsureUser(ctx, "hsg-9", "", "")
			So(err, ShouldBeNil)

			_, _, err = svc.PreferencesFor(ctx, userID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When rating an offer", func() {
			userID, err := svc.EnsureUser(ctx, "hsg-7", "", "")
			So(err, ShouldBeNil)

			// Read once so the snapshot is warm before the rating lands
			_, err = svc.ListOffers(ctx, model.OfferCriteria{})
			So(err, ShouldBeNil)

			So(svc.RateOffer(ctx, userID, 1, 5), ShouldBeNil)

			Convey("Then the rating is stored", func() {
				store.mu.Lock()
				score := store.ratings[userID][1]
				store.mu.Unlock()
				So(score, ShouldEqual, 5)
			})

			Convey("And the snapshot is invalidated", func() {
				_, err := svc.ListOffers(ctx, model.OfferCriteria{})
				So(err, ShouldBeNil)

				store.mu.Lock()
				calls := store.offersCalls
				store.mu.Unlock()
				So(calls, ShouldEqual, 2)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithStore(newFakeStore()))

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats(context.Background())

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a started service", t, func() {
		store := newFakeStore()
		svc := newStartedService(store)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When getting stats", func() {
			stats := svc.GetStats(ctx)

			Convey("Then it should report catalog counts", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["offers"], ShouldEqual, 4)
				So(stats["events"], ShouldEqual, 3)
				So(stats, ShouldContainKey, "snapshot_age")
			})

			Convey("And no import is reported before one ran", func() {
				So(stats, ShouldNotContainKey, "last_import")
			})
		})

		Convey("When an import has run", func() {
			So(store.FinishRun(ctx, repository.ETLRun{
				ID:         "run-1",
				Status:     repository.RunSucceeded,
				OffersSeen: 4,
				EventsSeen: 3,
			}), ShouldBeNil)

			stats := svc.GetStats(ctx)

			Convey("Then the run shows up in the stats", func() {
				So(stats, ShouldContainKey, "last_import")
				run, ok := stats["last_import"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(run["status"], ShouldEqual, repository.RunSucceeded)
			})
		})
	})
}
