// Package metrics provides Prometheus metrics for the kursfinder catalog service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the kursfinder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Catalog metrics - size and freshness of the data everything runs on
	catalogOffers           prometheus.Gauge
	catalogEvents           prometheus.Gauge
	snapshotRefreshDuration prometheus.Histogram
	snapshotRefreshCount    prometheus.Counter
	snapshotLastUnix        prometheus.Gauge

	// Core business metrics - filtering and recommendation behavior
	filterDuration        prometheus.Histogram
	recommendDuration     prometheus.Histogram
	recommendRequests     prometheus.Counter
	recommendEmptyResults prometheus.Counter
	feedRequests          prometheus.Counter
	ratingsSubmitted      prometheus.Counter
	favoritesToggled      prometheus.Counter

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Database metrics
	dbQueryLatency prometheus.Histogram
	dbErrors       prometheus.Counter

	// Importer metrics - scrape pipeline health
	scrapePagesFetched prometheus.Counter
	scrapePagesFailed  prometheus.Counter
	scrapeRowsUpserted *prometheus.CounterVec
	scrapeRunDuration  prometheus.Histogram
	scrapeQueueSize    prometheus.Gauge
	scrapeWorkers      prometheus.Gauge

	// Enhanced error metrics - detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kursfinder",
		subsystem:        "catalog",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Catalog metrics
	m.catalogOffers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "offers_total",
		Help:      "Number of offers in the current catalog snapshot",
	})

	m.catalogEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_total",
		Help:      "Number of events in the current catalog snapshot",
	})

	m.snapshotRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_refresh_duration_milliseconds",
		Help:      "Catalog snapshot refresh duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotRefreshCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_refresh_total",
		Help:      "Total number of catalog snapshot refreshes",
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_last_unix",
		Help:      "Unix timestamp of the last catalog snapshot refresh",
	})

	// Core business metrics
	m.filterDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "filter_duration_milliseconds",
		Help:      "Histogram of filter pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recommendDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommend_duration_milliseconds",
		Help:      "Histogram of recommendation scoring duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recommendRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommend_requests_total",
		Help:      "Total number of recommendation requests",
	})

	m.recommendEmptyResults = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommend_empty_results_total",
		Help:      "Total number of recommendation requests returning no offers (threshold too high or empty catalog)",
	})

	m.feedRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_requests_total",
		Help:      "Total number of iCalendar feed requests",
	})

	m.ratingsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_submitted_total",
		Help:      "Total number of offer ratings submitted",
	})

	m.favoritesToggled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "favorites_toggled_total",
		Help:      "Total number of favorite toggles",
	})

	// Cache metrics
	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by cache",
		},
		[]string{"cache"},
	)

	m.cacheMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by cache",
		},
		[]string{"cache"},
	)

	m.cacheSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_entries",
			Help:      "Number of entries per cache",
		},
		[]string{"cache"},
	)

	// HTTP performance metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Database metrics
	m.dbQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "db_query_latency_milliseconds",
		Help:      "Database query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.dbErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "db_errors_total",
		Help:      "Total number of database errors",
	})

	// Importer metrics
	m.scrapePagesFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scrape_pages_fetched_total",
		Help:      "Total number of catalog pages fetched by the importer",
	})

	m.scrapePagesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scrape_pages_failed_total",
		Help:      "Total number of catalog pages the importer failed to fetch or parse",
	})

	m.scrapeRowsUpserted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "scrape_rows_upserted_total",
			Help:      "Total number of rows upserted by the importer, by entity",
		},
		[]string{"entity"},
	)

	m.scrapeRunDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scrape_run_duration_milliseconds",
		Help:      "Importer run duration in milliseconds",
		Buckets:   []float64{100, 500, 1000, 5000, 15000, 30000, 60000, 120000, 300000},
	})

	m.scrapeQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scrape_queue_size",
		Help:      "Current size of the importer page queue",
	})

	m.scrapeWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scrape_workers",
		Help:      "Number of active importer workers",
	})

	// Enhanced error metrics - detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System performance metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Catalog metrics functions.

// UpdateCatalogOffers sets the number of offers in the current snapshot.
func UpdateCatalogOffers(count int) {
	globalManager.catalogOffers.Set(float64(count))
}

// UpdateCatalogEvents sets the number of events in the current snapshot.
func UpdateCatalogEvents(count int) {
	globalManager.catalogEvents.Set(float64(count))
}

// RecordSnapshotRefresh records one snapshot refresh and its duration.
func RecordSnapshotRefresh(durationMs float64) {
	globalManager.snapshotRefreshDuration.Observe(durationMs)
	globalManager.snapshotRefreshCount.Inc()
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// Core business metrics functions.

// RecordFilterDuration records one filter pass duration in milliseconds.
func RecordFilterDuration(durationMs float64) {
	globalManager.filterDuration.Observe(durationMs)
}

// RecordRecommendDuration records one scoring pass duration in milliseconds.
func RecordRecommendDuration(durationMs float64) {
	globalManager.recommendDuration.Observe(durationMs)
}

// RecordRecommendRequest increments the recommendation request counter.
func RecordRecommendRequest() {
	globalManager.recommendRequests.Inc()
}

// RecordRecommendEmptyResult counts a recommendation request that matched nothing.
func RecordRecommendEmptyResult() {
	globalManager.recommendEmptyResults.Inc()
}

// RecordFeedRequest increments the iCalendar feed request counter.
func RecordFeedRequest() {
	globalManager.feedRequests.Inc()
}

// RecordRatingSubmitted increments the submitted ratings counter.
func RecordRatingSubmitted() {
	globalManager.ratingsSubmitted.Inc()
}

// RecordFavoriteToggled increments the favorite toggle counter.
func RecordFavoriteToggled() {
	globalManager.favoritesToggled.Inc()
}

// Cache metrics functions.

// RecordCacheHit increments the hit counter for a cache.
func RecordCacheHit(cache string) {
	globalManager.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter for a cache.
func RecordCacheMiss(cache string) {
	globalManager.cacheMisses.WithLabelValues(cache).Inc()
}

// UpdateCacheSize sets the entry count for a cache.
func UpdateCacheSize(cache string, size int) {
	globalManager.cacheSize.WithLabelValues(cache).Set(float64(size))
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Database metrics functions.

// RecordDBQueryLatency records database query latency.
func RecordDBQueryLatency(latencyMs float64) {
	globalManager.dbQueryLatency.Observe(latencyMs)
}

// RecordDBError increments the database error counter.
func RecordDBError() {
	globalManager.dbErrors.Inc()
}

// Importer metrics functions.

// RecordScrapePageFetched increments the fetched page counter.
func RecordScrapePageFetched() {
	globalManager.scrapePagesFetched.Inc()
}

// RecordScrapePageFailed increments the failed page counter.
func RecordScrapePageFailed() {
	globalManager.scrapePagesFailed.Inc()
}

// RecordScrapeRowsUpserted adds upserted rows for an entity.
func RecordScrapeRowsUpserted(entity string, count int) {
	globalManager.scrapeRowsUpserted.WithLabelValues(entity).Add(float64(count))
}

// RecordScrapeRunDuration records one importer run duration.
func RecordScrapeRunDuration(durationMs float64) {
	globalManager.scrapeRunDuration.Observe(durationMs)
}

// UpdateScrapeQueueSize sets the importer page queue size.
func UpdateScrapeQueueSize(size int) {
	globalManager.scrapeQueueSize.Set(float64(size))
}

// UpdateScrapeWorkers sets the number of active importer workers.
func UpdateScrapeWorkers(count int) {
	globalManager.scrapeWorkers.Set(float64(count))
}

// Enhanced error metrics functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System performance metrics functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
