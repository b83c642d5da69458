package repository

import "time"

// Row types mirror the catalog schema. Feature columns are nullable on
// purpose: a scraped offer may carry no usable feature data, and NULL must
// stay distinguishable from a legitimate 0.0.

// OfferRow is one row of the sportangebote table. Offers are keyed for
// upserts by their source href, which is stable across scrape runs.
type OfferRow struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"column:name;not null"`
	Href        string `gorm:"column:href;uniqueIndex;not null"`
	Description string `gorm:"column:description"`
	Intensity   string `gorm:"column:intensity"`
	Focus       string `gorm:"column:focus"`   // comma separated focus areas
	Setting     string `gorm:"column:setting"` // comma separated settings

	Balance            *float64 `gorm:"column:balance"`
	Flexibility        *float64 `gorm:"column:flexibility"`
	Coordination       *float64 `gorm:"column:coordination"`
	Relaxation         *float64 `gorm:"column:relaxation"`
	Strength           *float64 `gorm:"column:strength"`
	Endurance          *float64 `gorm:"column:endurance"`
	Longevity          *float64 `gorm:"column:longevity"`
	IntensityLevel     *float64 `gorm:"column:intensity_level"`
	SettingTeam        *float64 `gorm:"column:setting_team"`
	SettingFun         *float64 `gorm:"column:setting_fun"`
	SettingDuo         *float64 `gorm:"column:setting_duo"`
	SettingSolo        *float64 `gorm:"column:setting_solo"`
	SettingCompetitive *float64 `gorm:"column:setting_competitive"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OfferRow) TableName() string { return "sportangebote" }

// EventRow is one row of the termine table, a single scheduled session.
// The upsert key is (kursnr, start_time): a course number never hosts two
// sessions starting at the same instant.
type EventRow struct {
	ID           int64     `gorm:"primaryKey"`
	OfferID      int64     `gorm:"column:offer_id;index;not null"`
	Kursnr       string    `gorm:"column:kursnr;uniqueIndex:uq_termine_occurrence;not null"`
	StartTime    time.Time `gorm:"column:start_time;uniqueIndex:uq_termine_occurrence;not null"`
	EndTime      time.Time `gorm:"column:end_time"`
	LocationName string    `gorm:"column:location_name"`
	Cancelled    bool      `gorm:"column:cancelled;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EventRow) TableName() string { return "termine" }

// LocationRow is a venue, keyed for upserts by name.
type LocationRow struct {
	ID   int64   `gorm:"primaryKey"`
	Name string  `gorm:"column:name;uniqueIndex;not null"`
	Lat  float64 `gorm:"column:lat"`
	Lon  float64 `gorm:"column:lon"`
}

func (LocationRow) TableName() string { return "locations" }

// UserRow is an application user, keyed by the OIDC subject claim.
type UserRow struct {
	ID        int64  `gorm:"primaryKey"`
	Sub       string `gorm:"column:sub;uniqueIndex;not null"`
	Email     string `gorm:"column:email"`
	Name      string `gorm:"column:name"`
	CreatedAt time.Time
	LastLogin time.Time `gorm:"column:last_login"`
}

func (UserRow) TableName() string { return "users" }

// FavoriteRow marks one offer as a favorite of one user.
type FavoriteRow struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"column:user_id;uniqueIndex:uq_user_offer;not null"`
	OfferID   int64 `gorm:"column:offer_id;uniqueIndex:uq_user_offer;not null"`
	CreatedAt time.Time
}

func (FavoriteRow) TableName() string { return "user_favorites" }

// PreferenceRow stores a user's saved preference vector, one row per user.
type PreferenceRow struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"column:user_id;uniqueIndex;not null"`

	Balance            float64 `gorm:"column:balance"`
	Flexibility        float64 `gorm:"column:flexibility"`
	Coordination       float64 `gorm:"column:coordination"`
	Relaxation         float64 `gorm:"column:relaxation"`
	Strength           float64 `gorm:"column:strength"`
	Endurance          float64 `gorm:"column:endurance"`
	Longevity          float64 `gorm:"column:longevity"`
	IntensityLevel     float64 `gorm:"column:intensity_level"`
	SettingTeam        float64 `gorm:"column:setting_team"`
	SettingFun         float64 `gorm:"column:setting_fun"`
	SettingDuo         float64 `gorm:"column:setting_duo"`
	SettingSolo        float64 `gorm:"column:setting_solo"`
	SettingCompetitive float64 `gorm:"column:setting_competitive"`

	UpdatedAt time.Time
}

func (PreferenceRow) TableName() string { return "user_preferences" }

// RatingRow is one user's rating of one offer, 1..5.
type RatingRow struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"column:user_id;uniqueIndex:uq_rating_user_offer;not null"`
	OfferID   int64 `gorm:"column:offer_id;uniqueIndex:uq_rating_user_offer;not null"`
	Rating    int   `gorm:"column:rating;not null"`
	UpdatedAt time.Time
}

func (RatingRow) TableName() string { return "offer_ratings" }

// TrainingSampleRow is one labeled feature vector for the recommender,
// keyed by sport name.
type TrainingSampleRow struct {
	ID    int64  `gorm:"primaryKey"`
	Sport string `gorm:"column:sport;uniqueIndex;not null"`

	Balance            float64 `gorm:"column:balance"`
	Flexibility        float64 `gorm:"column:flexibility"`
	Coordination       float64 `gorm:"column:coordination"`
	Relaxation         float64 `gorm:"column:relaxation"`
	Strength           float64 `gorm:"column:strength"`
	Endurance          float64 `gorm:"column:endurance"`
	Longevity          float64 `gorm:"column:longevity"`
	IntensityLevel     float64 `gorm:"column:intensity_level"`
	SettingTeam        float64 `gorm:"column:setting_team"`
	SettingFun         float64 `gorm:"column:setting_fun"`
	SettingDuo         float64 `gorm:"column:setting_duo"`
	SettingSolo        float64 `gorm:"column:setting_solo"`
	SettingCompetitive float64 `gorm:"column:setting_competitive"`

	CreatedAt time.Time
}

func (TrainingSampleRow) TableName() string { return "ml_training_data" }

// ETLRunRow records one importer run for observability.
type ETLRunRow struct {
	ID           string    `gorm:"primaryKey"` // uuid assigned by the importer
	StartedAt    time.Time `gorm:"column:started_at;not null"`
	FinishedAt   time.Time `gorm:"column:finished_at"`
	Status       string    `gorm:"column:status;not null"` // running, succeeded, failed
	PagesFetched int       `gorm:"column:pages_fetched"`
	PagesFailed  int       `gorm:"column:pages_failed"`
	OffersSeen   int       `gorm:"column:offers_seen"`
	EventsSeen   int       `gorm:"column:events_seen"`
	LastError    string    `gorm:"column:last_error"`
}

func (ETLRunRow) TableName() string { return "etl_runs" }

// ratingAgg is the grouped result of the rating aggregation query.
type ratingAgg struct {
	OfferID int64
	Avg     float64
	Count   int
}

// upcomingAgg is the grouped result of the upcoming-events query.
type upcomingAgg struct {
	OfferID int64
	Count   int
}
