package democatalog

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDemoCatalog(t *testing.T) {
	Convey("Given the curated demo catalog", t, func() {
		offers := demoOffers()
		schedule := demoSchedule()

		Convey("Then every offer carries a full feature vector", func() {
			So(len(offers), ShouldBeGreaterThanOrEqualTo, 8)
			for _, o := range offers {
				So(o.Features.Dim(), ShouldEqual, 13)
				So(o.Href, ShouldNotBeEmpty)
			}
		})

		Convey("And every session points at a seeded offer", func() {
			hrefs := make(map[string]bool, len(offers))
			for _, o := range offers {
				hrefs[o.Href] = true
			}
			for _, s := range schedule {
				So(hrefs[s.href], ShouldBeTrue)
				So(s.day, ShouldBeBetweenOrEqual, 0, 6)
				So(s.duration, ShouldBeGreaterThan, 0)
			}
		})

		Convey("And every session venue is a seeded location", func() {
			venues := make(map[string]bool)
			for _, l := range demoLocations() {
				venues[l.Name] = true
			}
			for _, s := range schedule {
				So(venues[s.location], ShouldBeTrue)
			}
		})

		Convey("And one session is cancelled for the filter checks", func() {
			cancelled := 0
			for _, s := range schedule {
				if s.cancelled {
					cancelled++
				}
			}
			So(cancelled, ShouldEqual, 1)
		})
	})
}

func TestNextMonday(t *testing.T) {
	Convey("Given reference dates", t, func() {
		Convey("When the date is a Wednesday", func() {
			wed := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
			got := nextMonday(wed)

			So(got.Weekday(), ShouldEqual, time.Monday)
			So(got.Day(), ShouldEqual, 19)
			So(got.Hour(), ShouldEqual, 0)
		})

		Convey("When the date is already a Monday", func() {
			mon := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
			got := nextMonday(mon)

			Convey("Then the following Monday is returned", func() {
				So(got.Weekday(), ShouldEqual, time.Monday)
				So(got.Day(), ShouldEqual, 19)
			})
		})
	})
}

func TestVerifyOrdering(t *testing.T) {
	Convey("Given recommendation responses", t, func() {
		Convey("When scores descend within range", func() {
			err := verifyOrdering([]MatchEntry{
				{Offer: OfferEntry{Name: "A"}, Score: 100},
				{Offer: OfferEntry{Name: "B"}, Score: 70},
				{Offer: OfferEntry{Name: "C"}, Score: 70},
			})
			So(err, ShouldBeNil)
		})

		Convey("When an entry is out of order", func() {
			err := verifyOrdering([]MatchEntry{
				{Offer: OfferEntry{Name: "A"}, Score: 50},
				{Offer: OfferEntry{Name: "B"}, Score: 80},
			})
			So(err, ShouldNotBeNil)
		})

		Convey("When a score leaves the valid range", func() {
			err := verifyOrdering([]MatchEntry{
				{Offer: OfferEntry{Name: "A"}, Score: 130},
			})
			So(err, ShouldNotBeNil)
		})
	})
}
