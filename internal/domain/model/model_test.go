package model_test

import (
	"testing"
	"time"

	"github.com/unisport/kursfinder/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseIntensity(t *testing.T) {
	Convey("Given intensity strings from the catalog", t, func() {
		Convey("When parsing the canonical levels", func() {
			low, err := model.ParseIntensity("low")
			So(err, ShouldBeNil)
			So(low, ShouldEqual, model.IntensityLow)

			medium, err := model.ParseIntensity("medium")
			So(err, ShouldBeNil)
			So(medium, ShouldEqual, model.IntensityMedium)

			high, err := model.ParseIntensity("HIGH")
			So(err, ShouldBeNil)
			So(high, ShouldEqual, model.IntensityHigh)
		})

		Convey("When parsing the legacy spelling", func() {
			moderate, err := model.ParseIntensity("moderate")
			So(err, ShouldBeNil)
			So(moderate, ShouldEqual, model.IntensityMedium)
		})

		Convey("When the value is empty", func() {
			unknown, err := model.ParseIntensity("")
			So(err, ShouldBeNil)
			So(unknown, ShouldEqual, model.IntensityUnknown)
		})

		Convey("When the value is garbage", func() {
			_, err := model.ParseIntensity("extreme")
			So(err, ShouldNotBeNil)
		})

		Convey("Then levels should order low < medium < high", func() {
			So(model.IntensityLow, ShouldBeLessThan, model.IntensityMedium)
			So(model.IntensityMedium, ShouldBeLessThan, model.IntensityHigh)
		})

		Convey("Then feature values should grow with the level", func() {
			So(model.IntensityLow.Feature(), ShouldAlmostEqual, 0.33)
			So(model.IntensityMedium.Feature(), ShouldAlmostEqual, 0.67)
			So(model.IntensityHigh.Feature(), ShouldAlmostEqual, 1.0)
			So(model.IntensityUnknown.Feature(), ShouldEqual, 0)
		})
	})
}

func TestParseCategories(t *testing.T) {
	Convey("Given focus and setting strings", t, func() {
		Convey("When parsing known categories", func() {
			f, err := model.ParseFocus(" Endurance ")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, model.FocusEndurance)

			s, err := model.ParseSetting("outdoor")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, model.SettingOutdoor)
		})

		Convey("When parsing unknown categories", func() {
			_, err := model.ParseFocus("cardio")
			So(err, ShouldNotBeNil)

			_, err = model.ParseSetting("underground")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseWeekday(t *testing.T) {
	Convey("Given weekday strings", t, func() {
		Convey("When parsing three-letter codes", func() {
			d, err := model.ParseWeekday("mon")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, model.WeekdayMon)
		})

		Convey("When parsing full names", func() {
			d, err := model.ParseWeekday("Saturday")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, model.WeekdaySat)
		})

		Convey("When parsing nonsense", func() {
			_, err := model.ParseWeekday("someday")
			So(err, ShouldNotBeNil)
		})

		Convey("When deriving from a time", func() {
			// 2026-01-05 is a Monday.
			t0 := time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
			So(model.WeekdayOf(t0), ShouldEqual, model.WeekdayMon)
			So(model.WeekdayOf(t0.AddDate(0, 0, 6)), ShouldEqual, model.WeekdaySun)
		})
	})
}

func TestTimeOfDay(t *testing.T) {
	Convey("Given time-of-day strings", t, func() {
		Convey("When parsing valid values", func() {
			v, err := model.ParseTimeOfDay("18:30")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, model.TimeOfDay(18*60+30))
			So(v.String(), ShouldEqual, "18:30")

			midnight, err := model.ParseTimeOfDay("00:00")
			So(err, ShouldBeNil)
			So(midnight, ShouldEqual, model.TimeOfDay(0))
		})

		Convey("When parsing invalid values", func() {
			_, err := model.ParseTimeOfDay("24:00")
			So(err, ShouldNotBeNil)
			_, err = model.ParseTimeOfDay("18:61")
			So(err, ShouldNotBeNil)
			_, err = model.ParseTimeOfDay("evening")
			So(err, ShouldNotBeNil)
		})

		Convey("When extracting from a time", func() {
			t0 := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
			So(model.TimeOfDayAt(t0), ShouldEqual, model.TimeOfDay(7*60+45))
		})

		Convey("When checking window membership", func() {
			w := model.TimeWindow{From: 8 * 60, To: 10 * 60}
			So(w.Contains(8*60), ShouldBeTrue)
			So(w.Contains(10*60), ShouldBeTrue)
			So(w.Contains(10*60+1), ShouldBeFalse)
			So(w.Validate(), ShouldBeNil)

			inverted := model.TimeWindow{From: 10 * 60, To: 8 * 60}
			So(inverted.Validate(), ShouldNotBeNil)
		})
	})
}

func TestFeatures(t *testing.T) {
	Convey("Given feature vectors", t, func() {
		Convey("When building from named weights", func() {
			f, err := model.NewFeatures(map[string]float64{
				"relaxation": 1.0,
				"strength":   0.5,
			})
			So(err, ShouldBeNil)
			So(f.Dim(), ShouldEqual, model.FeatureDim)
			So(f[3], ShouldEqual, 1.0) // relaxation
			So(f[4], ShouldEqual, 0.5) // strength
			So(f.IsZero(), ShouldBeFalse)
		})

		Convey("When a weight name is unknown", func() {
			_, err := model.NewFeatures(map[string]float64{"stamina": 1})
			So(err, ShouldNotBeNil)
		})

		Convey("When the vector is all zeros", func() {
			f := make(model.Features, model.FeatureDim)
			So(f.IsZero(), ShouldBeTrue)
		})

		Convey("When cloning", func() {
			f := model.Features{1, 2, 3}
			c := f.Clone()
			c[0] = 9
			So(f[0], ShouldEqual, 1.0)
			So(model.Features(nil).Clone(), ShouldBeNil)
		})
	})
}

func TestCriteriaValidation(t *testing.T) {
	Convey("Given offer criteria", t, func() {
		Convey("A zero value is valid and unconstrained", func() {
			var c model.OfferCriteria
			So(c.Validate(), ShouldBeNil)
			So(c.IsZero(), ShouldBeTrue)
		})

		Convey("An out-of-range intensity is rejected", func() {
			c := model.OfferCriteria{Intensities: []model.Intensity{model.Intensity(42)}}
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("An unknown setting is rejected", func() {
			c := model.OfferCriteria{Settings: []model.Setting{"underwater"}}
			So(c.Validate(), ShouldNotBeNil)
		})
	})

	Convey("Given event criteria", t, func() {
		Convey("A zero value is valid", func() {
			var c model.EventCriteria
			So(c.Validate(), ShouldBeNil)
		})

		Convey("A bad weekday is rejected", func() {
			c := model.EventCriteria{Weekdays: []model.Weekday{"xyz"}}
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("An inverted date range is rejected", func() {
			from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
			c := model.EventCriteria{DateFrom: from, DateTo: from.AddDate(0, 0, -7)}
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("An inverted window is rejected", func() {
			c := model.EventCriteria{Window: &model.TimeWindow{From: 600, To: 500}}
			So(c.Validate(), ShouldNotBeNil)
		})
	})
}

func TestOfferAndEvent(t *testing.T) {
	Convey("Given an offer", t, func() {
		Convey("HasFeatures reflects the vector", func() {
			So(model.Offer{}.HasFeatures(), ShouldBeFalse)
			So(model.Offer{Features: model.Features{0, 1}}.HasFeatures(), ShouldBeTrue)
		})
	})

	Convey("Given an event", t, func() {
		now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		Convey("Upcoming compares against the reference time", func() {
			past := model.Event{Start: now.Add(-time.Hour)}
			exact := model.Event{Start: now}
			future := model.Event{Start: now.Add(time.Hour)}
			So(past.Upcoming(now), ShouldBeFalse)
			So(exact.Upcoming(now), ShouldBeTrue)
			So(future.Upcoming(now), ShouldBeTrue)
		})
	})
}
