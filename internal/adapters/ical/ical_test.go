package ical

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/unisport/kursfinder/internal/domain/model"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
}

func feedEvents() []model.Event {
	return []model.Event{
		{
			ID:        2,
			OfferID:   7,
			OfferName: "Aikido",
			Start:     time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
			End:       time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
			Weekday:   model.WeekdayWed,
			Location:  "Studio West",
			Cancelled: true,
		},
		{
			ID:        1,
			OfferID:   3,
			OfferName: "Yoga",
			Start:     time.Date(2026, 10, 12, 16, 10, 0, 0, time.UTC),
			End:       time.Date(2026, 10, 12, 17, 40, 0, 0, time.UTC),
			Weekday:   model.WeekdayMon,
			Location:  "Sporthalle Nord",
			Cancelled: false,
		},
	}
}

func TestRender(t *testing.T) {
	Convey("Given a feed builder with a fixed clock", t, func() {
		b := NewBuilder(
			WithCalendarName("Hochschulsport 2026"),
			WithClock(fixedClock),
		)

		Convey("When rendering a pair of events", func() {
			out := b.Render(feedEvents())

			Convey("Then the document is a single calendar", func() {
				So(out, ShouldStartWith, "BEGIN:VCALENDAR")
				So(strings.Count(out, "BEGIN:VCALENDAR"), ShouldEqual, 1)
				So(strings.Count(out, "END:VCALENDAR"), ShouldEqual, 1)
				So(out, ShouldContainSubstring, "METHOD:PUBLISH")
				So(out, ShouldContainSubstring, "PRODID:-//unisport//kursfinder//DE")
				So(out, ShouldContainSubstring, "X-WR-CALNAME:Hochschulsport 2026")
			})

			Convey("Then both events appear with their schedule in UTC", func() {
				So(strings.Count(out, "BEGIN:VEVENT"), ShouldEqual, 2)
				So(out, ShouldContainSubstring, "SUMMARY:Yoga")
				So(out, ShouldContainSubstring, "DTSTART:20261012T161000Z")
				So(out, ShouldContainSubstring, "DTEND:20261012T174000Z")
				So(out, ShouldContainSubstring, "LOCATION:Sporthalle Nord")
				So(out, ShouldContainSubstring, "SUMMARY:Aikido")
				So(out, ShouldContainSubstring, "DTSTART:20261014T080000Z")
			})

			Convey("Then cancelled sessions are marked, not dropped", func() {
				So(strings.Count(out, "STATUS:CANCELLED"), ShouldEqual, 1)
				So(strings.Count(out, "STATUS:CONFIRMED"), ShouldEqual, 1)
			})

			Convey("Then events are emitted chronologically regardless of input order", func() {
				So(strings.Index(out, "SUMMARY:Yoga"), ShouldBeLessThan, strings.Index(out, "SUMMARY:Aikido"))
			})

			Convey("Then rendering again yields the identical document", func() {
				So(b.Render(feedEvents()), ShouldEqual, out)
			})
		})

		Convey("When rendering the same session from two imports", func() {
			events := feedEvents()
			first := b.Render(events[:1])

			// Same offer, start and location but a fresh database id
			events[0].ID = 99
			second := b.Render(events[:1])

			Convey("Then the UID does not change", func() {
				So(second, ShouldEqual, first)
				So(first, ShouldContainSubstring, "@kursfinder")
			})
		})

		Convey("When rendering an empty event list", func() {
			out := b.Render(nil)

			Convey("Then the calendar is valid and empty", func() {
				So(out, ShouldContainSubstring, "BEGIN:VCALENDAR")
				So(out, ShouldContainSubstring, "END:VCALENDAR")
				So(strings.Count(out, "BEGIN:VEVENT"), ShouldEqual, 0)
			})
		})
	})
}

func TestRenderDefaults(t *testing.T) {
	Convey("Given a builder without options", t, func() {
		b := NewBuilder()

		Convey("When rendering", func() {
			out := b.Render(feedEvents())

			Convey("Then the default calendar name is used", func() {
				So(out, ShouldContainSubstring, "X-WR-CALNAME:Unisport Kurskalender")
			})
		})
	})
}

func TestEventUID(t *testing.T) {
	Convey("Given two distinct sessions of one offer", t, func() {
		events := feedEvents()
		a := events[1]
		b := a
		b.Start = a.Start.AddDate(0, 0, 7)

		Convey("Then their UIDs differ", func() {
			So(eventUID(a), ShouldNotEqual, eventUID(b))
		})

		Convey("Then the UID is stable for the same identity", func() {
			So(eventUID(a), ShouldEqual, eventUID(a))
		})
	})
}
