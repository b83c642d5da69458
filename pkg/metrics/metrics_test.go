package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "kursfinder")
				So(manager.subsystem, ShouldEqual, "catalog")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithMetricPrefix("test-prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.refreshInterval, ShouldEqual, 10*time.Second)
			})
		})

		Convey("When options carry invalid values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults stay in place", func() {
				So(manager.namespace, ShouldEqual, "kursfinder")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		So(globalManager, ShouldNotBeNil)

		Convey("When recording catalog activity", func() {
			So(func() {
				UpdateCatalogOffers(42)
				UpdateCatalogEvents(120)
				RecordSnapshotRefresh(12.5)
				RecordFilterDuration(0.2)
				RecordRecommendDuration(1.8)
				RecordRecommendRequest()
				RecordRecommendEmptyResult()
				RecordFeedRequest()
				RecordRatingSubmitted()
				RecordFavoriteToggled()
			}, ShouldNotPanic)
		})

		Convey("When recording cache activity", func() {
			So(func() {
				RecordCacheHit("snapshot")
				RecordCacheMiss("snapshot")
				UpdateCacheSize("snapshot", 1)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP activity", func() {
			So(func() {
				RecordHTTPRequest("offers", "GET", "200")
				RecordHTTPRequestDuration("offers", "GET", "200", 3.0)
				RecordErrorByEndpoint("offers", "GET", "client_error")
				RecordErrorByType("client_error", "medium")
				RecordErrorByComponent("api", "bad_request")
				RecordErrorLatency("http", "client_error", 4.2)
			}, ShouldNotPanic)
		})

		Convey("When recording importer activity", func() {
			So(func() {
				RecordScrapePageFetched()
				RecordScrapePageFailed()
				RecordScrapeRowsUpserted("offers", 10)
				RecordScrapeRunDuration(1500)
				UpdateScrapeQueueSize(3)
				UpdateScrapeWorkers(4)
				RecordDBQueryLatency(0.7)
				RecordDBError()
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed for scraping", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
