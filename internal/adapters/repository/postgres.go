package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/unisport/kursfinder/internal/domain/model"
	"github.com/unisport/kursfinder/pkg/metrics"
)

// Postgres implements Store on a gorm connection.
type Postgres struct {
	db *gorm.DB
}

// offerFeatureColumns are the assignment targets shared by every offer upsert.
var offerFeatureColumns = []string{
	"balance", "flexibility", "coordination", "relaxation", "strength",
	"endurance", "longevity", "intensity_level", "setting_team",
	"setting_fun", "setting_duo", "setting_solo", "setting_competitive",
}

// Open dials Postgres and returns a ready store.
func Open(dsn string, opts ...Option) (*Postgres, error) {
	s := settings{
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             s.slowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if s.autoMigrate {
		if err := db.AutoMigrate(
			&OfferRow{}, &EventRow{}, &LocationRow{},
			&UserRow{}, &FavoriteRow{}, &PreferenceRow{}, &RatingRow{},
			&TrainingSampleRow{}, &ETLRunRow{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return NewPostgres(db), nil
}

// NewPostgres wraps an existing gorm handle.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// observe records query latency and errors for one store operation.
func observe(start time.Time, err error) {
	metrics.RecordDBQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.RecordDBError()
	}
}

func (p *Postgres) Offers(ctx context.Context) (_ []model.Offer, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var rows []OfferRow
	if err = p.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}

	ratings, err := p.ratingAggregates(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := p.upcomingCounts(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	offers := make([]model.Offer, 0, len(rows))
	for _, row := range rows {
		offers = append(offers, offerFromRow(row, ratings[row.ID], upcoming[row.ID]))
	}
	sortOffers(offers)
	return offers, nil
}

// sortOffers orders by average rating desc, then name asc, then id asc.
func sortOffers(offers []model.Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].AvgRating != offers[j].AvgRating {
			return offers[i].AvgRating > offers[j].AvgRating
		}
		if offers[i].Name != offers[j].Name {
			return offers[i].Name < offers[j].Name
		}
		return offers[i].ID < offers[j].ID
	})
}

func (p *Postgres) ratingAggregates(ctx context.Context) (map[int64]ratingAgg, error) {
	var aggs []ratingAgg
	err := p.db.WithContext(ctx).
		Model(&RatingRow{}).
		Select("offer_id, AVG(rating) AS avg, COUNT(*) AS count").
		Group("offer_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	out := make(map[int64]ratingAgg, len(aggs))
	for _, a := range aggs {
		out[a.OfferID] = a
	}
	return out, nil
}

func (p *Postgres) upcomingCounts(ctx context.Context, now time.Time) (map[int64]int, error) {
	var aggs []upcomingAgg
	err := p.db.WithContext(ctx).
		Model(&EventRow{}).
		Select("offer_id, COUNT(*) AS count").
		Where("cancelled = ? AND start_time >= ?", false, now).
		Group("offer_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming events: %w", err)
	}
	out := make(map[int64]int, len(aggs))
	for _, a := range aggs {
		out[a.OfferID] = a.Count
	}
	return out, nil
}

func (p *Postgres) OfferByID(ctx context.Context, id int64) (_ model.Offer, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var row OfferRow
	if err = p.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Offer{}, fmt.Errorf("offer %d: %w", id, ErrNotFound)
		}
		return model.Offer{}, fmt.Errorf("failed to load offer %d: %w", id, err)
	}

	var agg ratingAgg
	err = p.db.WithContext(ctx).
		Model(&RatingRow{}).
		Select("offer_id, AVG(rating) AS avg, COUNT(*) AS count").
		Where("offer_id = ?", id).
		Group("offer_id").
		Scan(&agg).Error
	if err != nil {
		return model.Offer{}, fmt.Errorf("failed to aggregate ratings for offer %d: %w", id, err)
	}

	var upcoming int64
	err = p.db.WithContext(ctx).
		Model(&EventRow{}).
		Where("offer_id = ? AND cancelled = ? AND start_time >= ?", id, false, time.Now()).
		Count(&upcoming).Error
	if err != nil {
		return model.Offer{}, fmt.Errorf("failed to count upcoming events for offer %d: %w", id, err)
	}

	return offerFromRow(row, agg, int(upcoming)), nil
}

func (p *Postgres) Events(ctx context.Context) (_ []model.Event, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var rows []EventRow
	if err = p.db.WithContext(ctx).Order("start_time asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	names, err := p.offerNames(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromRow(row, names[row.OfferID]))
	}
	return events, nil
}

func (p *Postgres) offerNames(ctx context.Context) (map[int64]string, error) {
	var rows []struct {
		ID   int64
		Name string
	}
	err := p.db.WithContext(ctx).
		Model(&OfferRow{}).
		Select("id, name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load offer names: %w", err)
	}
	out := make(map[int64]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func (p *Postgres) Locations(ctx context.Context) (_ []model.Location, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var rows []LocationRow
	if err = p.db.WithContext(ctx).Order("name asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	out := make([]model.Location, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Location{ID: row.ID, Name: row.Name, Lat: row.Lat, Lon: row.Lon})
	}
	return out, nil
}

func (p *Postgres) UpsertOffers(ctx context.Context, offers []ScrapedOffer) (_ map[string]int64, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if len(offers) == 0 {
		return map[string]int64{}, nil
	}

	rows := make([]OfferRow, 0, len(offers))
	hrefs := make([]string, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, rowFromScraped(o))
		hrefs = append(hrefs, o.Href)
	}

	assign := append([]string{"name", "description", "intensity", "focus", "setting", "updated_at"}, offerFeatureColumns...)
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "href"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert offers: %w", err)
	}

	// Re-select ids: the insert result does not report ids for rows that hit
	// the conflict path.
	var back []struct {
		ID   int64
		Href string
	}
	err = p.db.WithContext(ctx).
		Model(&OfferRow{}).
		Select("id, href").
		Where("href IN ?", hrefs).
		Scan(&back).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read back offer ids: %w", err)
	}
	ids := make(map[string]int64, len(back))
	for _, r := range back {
		ids[r.Href] = r.ID
	}
	metrics.RecordScrapeRowsUpserted("offers", len(rows))
	return ids, nil
}

func (p *Postgres) UpsertEvents(ctx context.Context, events []ScrapedEvent) (_ int, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if len(events) == 0 {
		return 0, nil
	}

	rows := make([]EventRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, EventRow{
			OfferID:      e.OfferID,
			Kursnr:       e.Kursnr,
			StartTime:    e.Start,
			EndTime:      e.End,
			LocationName: e.LocationName,
			Cancelled:    e.Cancelled,
		})
	}

	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kursnr"}, {Name: "start_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"offer_id", "end_time", "location_name", "cancelled", "updated_at"}),
	}).Create(&rows)
	if err = result.Error; err != nil {
		return 0, fmt.Errorf("failed to upsert events: %w", err)
	}
	metrics.RecordScrapeRowsUpserted("events", int(result.RowsAffected))
	return int(result.RowsAffected), nil
}

func (p *Postgres) UpsertLocations(ctx context.Context, locations []model.Location) (_ int, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if len(locations) == 0 {
		return 0, nil
	}

	rows := make([]LocationRow, 0, len(locations))
	for _, l := range locations {
		rows = append(rows, LocationRow{Name: l.Name, Lat: l.Lat, Lon: l.Lon})
	}

	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lon"}),
	}).Create(&rows)
	if err = result.Error; err != nil {
		return 0, fmt.Errorf("failed to upsert locations: %w", err)
	}
	metrics.RecordScrapeRowsUpserted("locations", int(result.RowsAffected))
	return int(result.RowsAffected), nil
}

func (p *Postgres) EnsureUser(ctx context.Context, sub, email, name string) (_ int64, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	row := UserRow{
		Sub:       sub,
		Email:     email,
		Name:      name,
		LastLogin: time.Now(),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sub"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "last_login"}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert user: %w", err)
	}

	// The conflict path leaves row.ID unset; read it back by sub.
	var back UserRow
	if err = p.db.WithContext(ctx).Where("sub = ?", sub).First(&back).Error; err != nil {
		return 0, fmt.Errorf("failed to read back user: %w", err)
	}
	return back.ID, nil
}

func (p *Postgres) Favorites(ctx context.Context, userID int64) (_ []int64, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var ids []int64
	err = p.db.WithContext(ctx).
		Model(&FavoriteRow{}).
		Where("user_id = ?", userID).
		Order("offer_id asc").
		Pluck("offer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	return ids, nil
}

func (p *Postgres) SetFavorite(ctx context.Context, userID, offerID int64, on bool) (_ bool, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if on {
		if err = p.offerExists(ctx, offerID); err != nil {
			return false, err
		}
		result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "offer_id"}},
			DoNothing: true,
		}).Create(&FavoriteRow{UserID: userID, OfferID: offerID})
		if err = result.Error; err != nil {
			return false, fmt.Errorf("failed to add favorite: %w", err)
		}
		metrics.RecordFavoriteToggled()
		return result.RowsAffected > 0, nil
	}

	result := p.db.WithContext(ctx).
		Where("user_id = ? AND offer_id = ?", userID, offerID).
		Delete(&FavoriteRow{})
	if err = result.Error; err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	metrics.RecordFavoriteToggled()
	return result.RowsAffected > 0, nil
}

func (p *Postgres) offerExists(ctx context.Context, offerID int64) error {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&OfferRow{}).
		Where("id = ?", offerID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check offer %d: %w", offerID, err)
	}
	if count == 0 {
		return fmt.Errorf("offer %d: %w", offerID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) SavePreferences(ctx context.Context, userID int64, features model.Features) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	cols := vectorColumns(features)
	row := PreferenceRow{
		UserID:             userID,
		Balance:            cols[0],
		Flexibility:        cols[1],
		Coordination:       cols[2],
		Relaxation:         cols[3],
		Strength:           cols[4],
		Endurance:          cols[5],
		Longevity:          cols[6],
		IntensityLevel:     cols[7],
		SettingTeam:        cols[8],
		SettingFun:         cols[9],
		SettingDuo:         cols[10],
		SettingSolo:        cols[11],
		SettingCompetitive: cols[12],
	}
	assign := append([]string{"updated_at"}, offerFeatureColumns...)
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func (p *Postgres) PreferencesFor(ctx context.Context, userID int64) (_ Preferences, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var row PreferenceRow
	err = p.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Preferences{}, fmt.Errorf("preferences for user %d: %w", userID, ErrNotFound)
		}
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return preferencesFromRow(row), nil
}

func (p *Postgres) RateOffer(ctx context.Context, userID, offerID int64, rating int) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating %d: %w", rating, ErrInvalidRating)
	}
	if err = p.offerExists(ctx, offerID); err != nil {
		return err
	}

	row := RatingRow{UserID: userID, OfferID: offerID, Rating: rating}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "offer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	metrics.RecordRatingSubmitted()
	return nil
}

func (p *Postgres) AddTrainingSample(ctx context.Context, sport string, features model.Features) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	cols := vectorColumns(features)
	row := TrainingSampleRow{
		Sport:              sport,
		Balance:            cols[0],
		Flexibility:        cols[1],
		Coordination:       cols[2],
		Relaxation:         cols[3],
		Strength:           cols[4],
		Endurance:          cols[5],
		Longevity:          cols[6],
		IntensityLevel:     cols[7],
		SettingTeam:        cols[8],
		SettingFun:         cols[9],
		SettingDuo:         cols[10],
		SettingSolo:        cols[11],
		SettingCompetitive: cols[12],
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sport"}},
		DoUpdates: clause.AssignmentColumns(offerFeatureColumns),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert training sample: %w", err)
	}
	return nil
}

func (p *Postgres) TrainingSamples(ctx context.Context) (_ map[string]model.Features, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var rows []TrainingSampleRow
	if err = p.db.WithContext(ctx).Order("sport asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load training samples: %w", err)
	}
	out := make(map[string]model.Features, len(rows))
	for _, row := range rows {
		out[row.Sport] = model.Features{
			row.Balance, row.Flexibility, row.Coordination, row.Relaxation,
			row.Strength, row.Endurance, row.Longevity, row.IntensityLevel,
			row.SettingTeam, row.SettingFun, row.SettingDuo, row.SettingSolo,
			row.SettingCompetitive,
		}
	}
	return out, nil
}

func (p *Postgres) BeginRun(ctx context.Context, run ETLRun) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	row := ETLRunRow{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		Status:    RunRunning,
	}
	if err = p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

func (p *Postgres) FinishRun(ctx context.Context, run ETLRun) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	updates := map[string]interface{}{
		"finished_at":   run.FinishedAt,
		"status":        run.Status,
		"pages_fetched": run.PagesFetched,
		"pages_failed":  run.PagesFailed,
		"offers_seen":   run.OffersSeen,
		"events_seen":   run.EventsSeen,
		"last_error":    run.LastError,
	}
	result := p.db.WithContext(ctx).
		Model(&ETLRunRow{}).
		Where("id = ?", run.ID).
		Updates(updates)
	if err = result.Error; err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) LastRun(ctx context.Context) (_ ETLRun, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var row ETLRunRow
	err = p.db.WithContext(ctx).Order("started_at desc").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ETLRun{}, fmt.Errorf("etl runs: %w", ErrNotFound)
		}
		return ETLRun{}, fmt.Errorf("failed to load last run: %w", err)
	}
	return ETLRun{
		ID:           row.ID,
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
		Status:       row.Status,
		PagesFetched: row.PagesFetched,
		PagesFailed:  row.PagesFailed,
		OffersSeen:   row.OffersSeen,
		EventsSeen:   row.EventsSeen,
		LastError:    row.LastError,
	}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	return sqlDB.Close()
}
