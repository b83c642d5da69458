package scrape

import (
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/unisport/kursfinder/internal/domain/model"
)

const indexHTML = `<!DOCTYPE html>
<html><body>
<dl class="bs_menu">
  <dd><a href="_Yoga.html">Yoga</a></dd>
  <dd><a href="_Boxen.html">Boxen</a></dd>
  <dd><a href="_Yoga.html">Yoga Duplikat</a></dd>
  <dd><a href="_Alle.html">alle freien Kursplätze dieses Zeitraums</a></dd>
  <dd><a href="">Kaputt</a></dd>
</dl>
</body></html>`

const offerHTML = `<!DOCTYPE html>
<html><body>
<div class="bs_head">Yoga</div>
<p>Ruhige Flows für alle Stufen.</p>
<p>Bitte eigene Matte mitbringen.</p>
<table class="bs_kurse">
<thead><tr><th>Nr.</th></tr></thead>
<tbody>
<tr>
  <td class="bs_sknr">1234</td>
  <td class="bs_sdet">Anfänger</td>
  <td class="bs_stag">Mo</td>
  <td class="bs_szeit">18.15-19.45</td>
  <td class="bs_sort">Sporthalle Nord</td>
  <td class="bs_szr"><a href="dates.html">06.10.-15.12.</a></td>
  <td class="bs_skl">A. Trainer</td>
  <td class="bs_spreis">80 CHF</td>
  <td class="bs_sbuch">buchen</td>
</tr>
<tr>
  <td class="bs_sknr">1235</td>
  <td class="bs_sdet">Fortgeschrittene</td>
  <td class="bs_stag">Mi</td>
  <td class="bs_szeit">08:00 - 09:30</td>
  <td class="bs_sort">Studio West</td>
  <td class="bs_szr">08.10.2026-16.12.2026</td>
  <td class="bs_skl">B. Trainer</td>
  <td class="bs_spreis">80 CHF</td>
  <td class="bs_sbuch">abgesagt</td>
</tr>
<tr><td class="bs_sdet">kein kursnr, wird ignoriert</td></tr>
</tbody>
</table>
<p>Dieser Absatz steht nach der Tabelle.</p>
</body></html>`

func TestParseIndex(t *testing.T) {
	Convey("Given the catalog index page", t, func() {
		base := "https://sport.example/angebote/index.html"

		Convey("When parsed", func() {
			jobs, err := ParseIndex(strings.NewReader(indexHTML), base)

			Convey("Then usable offers come back with absolute links", func() {
				So(err, ShouldBeNil)
				So(jobs, ShouldHaveLength, 2)
				So(jobs[0].Name, ShouldEqual, "Yoga")
				So(jobs[0].URL, ShouldEqual, "https://sport.example/angebote/_Yoga.html")
				So(jobs[1].Name, ShouldEqual, "Boxen")
			})

			Convey("Then pseudo offers, duplicates and broken links are dropped", func() {
				for _, j := range jobs {
					So(j.Name, ShouldNotContainSubstring, "freien Kursplätze")
					So(j.Name, ShouldNotEqual, "Kaputt")
				}
			})
		})

		Convey("When the page has no offer menu", func() {
			_, err := ParseIndex(strings.NewReader("<html><body>leer</body></html>"), base)

			Convey("Then the index error is reported", func() {
				So(errors.Is(err, ErrBadIndex), ShouldBeTrue)
			})
		})
	})
}

func TestParsePage(t *testing.T) {
	Convey("Given an offer page with a course table", t, func() {
		page, err := ParsePage(strings.NewReader(offerHTML), "https://sport.example/_Yoga.html", "Yoga", 2026)
		So(err, ShouldBeNil)

		Convey("Then the description collects paragraphs before the table only", func() {
			So(page.Description, ShouldContainSubstring, "Ruhige Flows")
			So(page.Description, ShouldContainSubstring, "eigene Matte")
			So(page.Description, ShouldNotContainSubstring, "nach der Tabelle")
		})

		Convey("Then course rows are parsed", func() {
			So(page.Courses, ShouldHaveLength, 2)

			first := page.Courses[0]
			So(first.Kursnr, ShouldEqual, "1234")
			So(first.Weekday, ShouldEqual, model.WeekdayMon)
			So(first.HasTimes, ShouldBeTrue)
			So(first.Start.String(), ShouldEqual, "18:15")
			So(first.End.String(), ShouldEqual, "19:45")
			So(first.Location, ShouldEqual, "Sporthalle Nord")
			So(first.HasDates, ShouldBeTrue)
			So(first.DateFrom, ShouldResemble, time.Date(2026, 10, 6, 0, 0, 0, 0, time.UTC))
			So(first.DateTo, ShouldResemble, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC))
			So(first.cancelled(), ShouldBeFalse)

			second := page.Courses[1]
			So(second.Weekday, ShouldEqual, model.WeekdayWed)
			So(second.Start.String(), ShouldEqual, "08:00")
			So(second.cancelled(), ShouldBeTrue)
		})

		Convey("Then rows without a course number are skipped", func() {
			for _, c := range page.Courses {
				So(c.Kursnr, ShouldNotBeEmpty)
			}
		})
	})

	Convey("Given an offer page without a course table", t, func() {
		page, err := ParsePage(strings.NewReader("<html><body><p>Nur Text.</p></body></html>"), "https://sport.example/x", "X", 2026)

		Convey("Then the offer is still valid, just without sessions", func() {
			So(err, ShouldBeNil)
			So(page.Courses, ShouldBeEmpty)
			So(page.Description, ShouldEqual, "Nur Text.")
		})
	})
}

func TestParseHelpers(t *testing.T) {
	Convey("Given catalog weekday abbreviations", t, func() {
		Convey("German forms map to codes", func() {
			for in, want := range map[string]model.Weekday{
				"Mo": model.WeekdayMon, "Di": model.WeekdayTue, "Mi": model.WeekdayWed,
				"Do": model.WeekdayThu, "Fr": model.WeekdayFri, "Sa": model.WeekdaySat,
				"So": model.WeekdaySun,
			} {
				got, err := parseGermanWeekday(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("English codes pass through", func() {
			got, err := parseGermanWeekday("tue")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, model.WeekdayTue)
		})

		Convey("Garbage is rejected", func() {
			_, err := parseGermanWeekday("xx")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given time range cell texts", t, func() {
		Convey("Dotted and colon forms both parse", func() {
			for _, in := range []string{"18.15-19.45", "18:15 - 19:45", "18.15 - 19:45"} {
				start, end, ok := parseTimeRange(in)
				So(ok, ShouldBeTrue)
				So(start.String(), ShouldEqual, "18:15")
				So(end.String(), ShouldEqual, "19:45")
			}
		})

		Convey("Non-times do not parse", func() {
			_, _, ok := parseTimeRange("nach Vereinbarung")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given date range cell texts", t, func() {
		Convey("Short form takes the anchor year", func() {
			from, to, ok := parseDateRange("06.10.-15.12.", 2026)
			So(ok, ShouldBeTrue)
			So(from.Year(), ShouldEqual, 2026)
			So(to.Year(), ShouldEqual, 2026)
		})

		Convey("A range across New Year rolls the end year forward", func() {
			from, to, ok := parseDateRange("03.11.-26.01.", 2026)
			So(ok, ShouldBeTrue)
			So(from, ShouldResemble, time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC))
			So(to, ShouldResemble, time.Date(2027, 1, 26, 0, 0, 0, 0, time.UTC))
		})

		Convey("Explicit years win over the anchor", func() {
			from, to, ok := parseDateRange("08.10.2030-16.12.2030", 2026)
			So(ok, ShouldBeTrue)
			So(from.Year(), ShouldEqual, 2030)
			So(to.Year(), ShouldEqual, 2030)
		})
	})
}

func TestOccurrences(t *testing.T) {
	Convey("Given a weekly Monday course through autumn", t, func() {
		course := Course{
			Kursnr:   "1234",
			Weekday:  model.WeekdayMon,
			Start:    18*60 + 15,
			End:      19*60 + 45,
			HasTimes: true,
			DateFrom: time.Date(2026, 10, 6, 0, 0, 0, 0, time.UTC), // a Tuesday
			DateTo:   time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), // a Monday
			HasDates: true,
		}

		Convey("When expanded", func() {
			occs := occurrences(course, time.UTC)

			Convey("Then sessions land on Mondays inside the range", func() {
				// Mondays: Oct 12, 19, 26 and Nov 2
				So(occs, ShouldHaveLength, 4)
				So(occs[0].start, ShouldResemble, time.Date(2026, 10, 12, 18, 15, 0, 0, time.UTC))
				So(occs[3].start, ShouldResemble, time.Date(2026, 11, 2, 18, 15, 0, 0, time.UTC))
				for _, o := range occs {
					So(model.WeekdayOf(o.start), ShouldEqual, model.WeekdayMon)
					So(o.end.Sub(o.start), ShouldEqual, 90*time.Minute)
				}
			})
		})
	})

	Convey("Given a course without parsed times", t, func() {
		course := Course{Kursnr: "9", Weekday: model.WeekdayMon, HasDates: true,
			DateFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}

		Convey("Then it expands to nothing", func() {
			So(occurrences(course, time.UTC), ShouldBeEmpty)
		})
	})

	Convey("Given a range that never hits the weekday", t, func() {
		course := Course{Kursnr: "9", Weekday: model.WeekdaySun, HasTimes: true,
			Start: 10 * 60, End: 11 * 60, HasDates: true,
			DateFrom: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), // Monday
			DateTo:   time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC), // Friday
		}

		Convey("Then it expands to nothing", func() {
			So(occurrences(course, time.UTC), ShouldBeEmpty)
		})
	})
}

func TestDeriveFeatures(t *testing.T) {
	Convey("Given curated categories", t, func() {
		Convey("A fully categorized offer yields a full vector", func() {
			f := DeriveFeatures(model.IntensityHigh,
				[]model.Focus{model.FocusStrength, model.FocusEndurance},
				[]model.Setting{model.SettingDuo, model.SettingCompetitive})

			So(f.Dim(), ShouldEqual, model.FeatureDim)
			So(f[7], ShouldEqual, 1.0)  // intensity high
			So(f[4], ShouldEqual, 1.0)  // strength
			So(f[5], ShouldEqual, 1.0)  // endurance
			So(f[10], ShouldEqual, 1.0) // duo
			So(f[12], ShouldEqual, 1.0) // competitive
			So(f[0], ShouldEqual, 0.0)  // balance untouched
		})

		Convey("The intensity map is the agreed one", func() {
			So(DeriveFeatures(model.IntensityLow, nil, nil)[7], ShouldEqual, 0.33)
			So(DeriveFeatures(model.IntensityMedium, nil, nil)[7], ShouldEqual, 0.67)
			So(DeriveFeatures(model.IntensityHigh, nil, nil)[7], ShouldEqual, 1.0)
		})

		Convey("Venue settings carry no dimension", func() {
			f := DeriveFeatures(model.IntensityUnknown, nil, []model.Setting{model.SettingIndoor})
			So(f.IsZero(), ShouldBeTrue)
		})

		Convey("No categories at all means no vector", func() {
			So(DeriveFeatures(model.IntensityUnknown, nil, nil), ShouldBeNil)
		})

		Convey("Derivation is deterministic", func() {
			a := DeriveFeatures(model.IntensityMedium, []model.Focus{model.FocusBalance}, nil)
			b := DeriveFeatures(model.IntensityMedium, []model.Focus{model.FocusBalance}, nil)
			So(a, ShouldResemble, b)
		})
	})
}
