package repository

import (
	"strings"

	"github.com/unisport/kursfinder/internal/domain/model"
)

// offerFromRow converts a storage row into the domain record. Enum parsing
// happens here so the core never sees raw column text; values that fail to
// parse are dropped rather than guessed.
func offerFromRow(row OfferRow, rating ratingAgg, upcoming int) model.Offer {
	o := model.Offer{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		URL:         row.Href,
		AvgRating:   model.RatingNeutral,
		HasUpcoming: upcoming > 0,
	}
	if in, err := model.ParseIntensity(row.Intensity); err == nil {
		o.Intensity = in
	}
	for _, part := range splitList(row.Focus) {
		if f, err := model.ParseFocus(part); err == nil {
			o.Focus = append(o.Focus, f)
		}
	}
	for _, part := range splitList(row.Setting) {
		if s, err := model.ParseSetting(part); err == nil {
			o.Settings = append(o.Settings, s)
		}
	}
	o.Features = featuresFromColumns(row)
	if rating.Count > 0 {
		o.AvgRating = rating.Avg
		o.RatingCount = rating.Count
	}
	return o
}

// featuresFromColumns assembles the feature vector from the nullable columns.
// A row where every column is NULL has no vector at all; a row with any
// value present becomes a full vector with NULLs read as 0.
func featuresFromColumns(row OfferRow) model.Features {
	cols := []*float64{
		row.Balance, row.Flexibility, row.Coordination, row.Relaxation,
		row.Strength, row.Endurance, row.Longevity, row.IntensityLevel,
		row.SettingTeam, row.SettingFun, row.SettingDuo, row.SettingSolo,
		row.SettingCompetitive,
	}
	any := false
	for _, c := range cols {
		if c != nil {
			any = true
			break
		}
	}
	if !any {
		return nil
	}
	f := make(model.Features, len(cols))
	for i, c := range cols {
		if c != nil {
			f[i] = *c
		}
	}
	return f
}

// rowFromScraped converts an importer offer into its storage row.
func rowFromScraped(s ScrapedOffer) OfferRow {
	row := OfferRow{
		Name:        s.Name,
		Href:        s.Href,
		Description: s.Description,
		Intensity:   strings.ToLower(strings.TrimSpace(s.Intensity)),
		Focus:       joinList(s.Focus),
		Setting:     joinList(s.Settings),
	}
	if len(s.Features) == model.FeatureDim {
		vals := make([]float64, len(s.Features))
		copy(vals, s.Features)
		row.Balance = &vals[0]
		row.Flexibility = &vals[1]
		row.Coordination = &vals[2]
		row.Relaxation = &vals[3]
		row.Strength = &vals[4]
		row.Endurance = &vals[5]
		row.Longevity = &vals[6]
		row.IntensityLevel = &vals[7]
		row.SettingTeam = &vals[8]
		row.SettingFun = &vals[9]
		row.SettingDuo = &vals[10]
		row.SettingSolo = &vals[11]
		row.SettingCompetitive = &vals[12]
	}
	return row
}

func eventFromRow(row EventRow, offerName string) model.Event {
	return model.Event{
		ID:        row.ID,
		OfferID:   row.OfferID,
		OfferName: offerName,
		Start:     row.StartTime,
		End:       row.EndTime,
		Weekday:   model.WeekdayOf(row.StartTime),
		Location:  row.LocationName,
		Cancelled: row.Cancelled,
	}
}

func preferencesFromRow(row PreferenceRow) Preferences {
	return Preferences{
		UserID: row.UserID,
		Features: model.Features{
			row.Balance, row.Flexibility, row.Coordination, row.Relaxation,
			row.Strength, row.Endurance, row.Longevity, row.IntensityLevel,
			row.SettingTeam, row.SettingFun, row.SettingDuo, row.SettingSolo,
			row.SettingCompetitive,
		},
		SavedAt: row.UpdatedAt,
	}
}

// vectorColumns maps a full feature vector onto the 13 column slots shared
// by user_preferences and ml_training_data.
func vectorColumns(f model.Features) [13]float64 {
	var out [13]float64
	for i := 0; i < len(out) && i < len(f); i++ {
		out[i] = f[i]
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(parts []string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ",")
}
