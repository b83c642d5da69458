package model

import (
	"fmt"
	"strings"
	"time"
)

// Intensity is the ordered effort category of an offer.
type Intensity int

// Intensity levels, ordered from lowest to highest.
const (
	IntensityUnknown Intensity = iota
	IntensityLow
	IntensityMedium
	IntensityHigh
)

// intensityFeatures maps levels to the numeric feature used for scoring.
var intensityFeatures = map[Intensity]float64{
	IntensityLow:    0.33,
	IntensityMedium: 0.67,
	IntensityHigh:   1.0,
}

// ParseIntensity maps a source string to an Intensity. The catalog uses
// "moderate" where we say "medium"; both are accepted.
func ParseIntensity(s string) (Intensity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return IntensityLow, nil
	case "medium", "moderate":
		return IntensityMedium, nil
	case "high":
		return IntensityHigh, nil
	case "":
		return IntensityUnknown, nil
	default:
		return IntensityUnknown, fmt.Errorf("%w: intensity %q", ErrInvalidEnum, s)
	}
}

func (i Intensity) String() string {
	switch i {
	case IntensityLow:
		return "low"
	case IntensityMedium:
		return "medium"
	case IntensityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Feature returns the numeric value this level contributes to the feature
// vector. Unknown contributes zero.
func (i Intensity) Feature() float64 {
	return intensityFeatures[i]
}

// Focus is the training emphasis category of an offer.
type Focus string

// Focus categories. They line up with the physical feature dimensions.
const (
	FocusBalance      Focus = "balance"
	FocusFlexibility  Focus = "flexibility"
	FocusCoordination Focus = "coordination"
	FocusRelaxation   Focus = "relaxation"
	FocusStrength     Focus = "strength"
	FocusEndurance    Focus = "endurance"
	FocusLongevity    Focus = "longevity"
)

var allFocus = map[Focus]struct{}{
	FocusBalance:      {},
	FocusFlexibility:  {},
	FocusCoordination: {},
	FocusRelaxation:   {},
	FocusStrength:     {},
	FocusEndurance:    {},
	FocusLongevity:    {},
}

// ParseFocus validates a focus category string.
func ParseFocus(s string) (Focus, error) {
	f := Focus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allFocus[f]; !ok {
		return "", fmt.Errorf("%w: focus %q", ErrInvalidEnum, s)
	}
	return f, nil
}

// Setting describes how and where an offer is practiced.
type Setting string

// Setting categories. The social ones (team, fun, duo, solo, competitive)
// carry feature dimensions; the venue ones are filter-only.
const (
	SettingTeam        Setting = "team"
	SettingFun         Setting = "fun"
	SettingDuo         Setting = "duo"
	SettingSolo        Setting = "solo"
	SettingCompetitive Setting = "competitive"
	SettingIndoor      Setting = "indoor"
	SettingOutdoor     Setting = "outdoor"
	SettingWater       Setting = "water"
)

var allSettings = map[Setting]struct{}{
	SettingTeam:        {},
	SettingFun:         {},
	SettingDuo:         {},
	SettingSolo:        {},
	SettingCompetitive: {},
	SettingIndoor:      {},
	SettingOutdoor:     {},
	SettingWater:       {},
}

// ParseSetting validates a setting category string.
func ParseSetting(s string) (Setting, error) {
	v := Setting(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allSettings[v]; !ok {
		return "", fmt.Errorf("%w: setting %q", ErrInvalidEnum, s)
	}
	return v, nil
}

// Weekday is the catalog's three-letter weekday code.
type Weekday string

// Weekday codes as stored by the catalog.
const (
	WeekdayMon Weekday = "mon"
	WeekdayTue Weekday = "tue"
	WeekdayWed Weekday = "wed"
	WeekdayThu Weekday = "thu"
	WeekdayFri Weekday = "fri"
	WeekdaySat Weekday = "sat"
	WeekdaySun Weekday = "sun"
)

var weekdayFromTime = map[time.Weekday]Weekday{
	time.Monday:    WeekdayMon,
	time.Tuesday:   WeekdayTue,
	time.Wednesday: WeekdayWed,
	time.Thursday:  WeekdayThu,
	time.Friday:    WeekdayFri,
	time.Saturday:  WeekdaySat,
	time.Sunday:    WeekdaySun,
}

// ParseWeekday validates a weekday code. Full English names are accepted and
// shortened, since the upstream catalog is not consistent about them.
func ParseWeekday(s string) (Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) > 3 {
		v = v[:3]
	}
	switch Weekday(v) {
	case WeekdayMon, WeekdayTue, WeekdayWed, WeekdayThu, WeekdayFri, WeekdaySat, WeekdaySun:
		return Weekday(v), nil
	default:
		return "", fmt.Errorf("%w: weekday %q", ErrInvalidEnum, s)
	}
}

// WeekdayOf returns the code for a point in time.
func WeekdayOf(t time.Time) Weekday {
	return weekdayFromTime[t.Weekday()]
}
