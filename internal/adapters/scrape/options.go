package scrape

import "time"

const defaultBaseURL = "https://www.sportprogramm.unisg.ch/unisg/angebote/aktueller_zeitraum/index.html"

type config struct {
	baseURL     string
	userAgent   string
	concurrency int
	timeout     time.Duration
	rps         float64
	limit       int
	dryRun      bool
	year        int
	tz          *time.Location
	fetcher     Fetcher
}

func defaultConfig() config {
	return config{
		baseURL:     defaultBaseURL,
		userAgent:   defaultUserAgent,
		concurrency: defaultWorkerCount,
		timeout:     defaultFetchTimeout,
		rps:         4,
		year:        time.Now().Year(),
		tz:          time.Local,
	}
}

// Option applies a configuration option to the Scraper.
type Option func(*config)

// WithBaseURL sets the catalog index page to start from.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithConcurrency sets the number of page workers.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the pool-wide requests-per-second budget. Zero or
// negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *config) {
		c.rps = rps
	}
}

// WithLimit caps how many offer pages a run visits. Zero means all.
func WithLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.limit = n
		}
	}
}

// WithDryRun parses everything but writes nothing.
func WithDryRun() Option {
	return func(c *config) {
		c.dryRun = true
	}
}

// WithYear anchors short date ranges like "06.10.-26.01." to a year.
func WithYear(y int) Option {
	return func(c *config) {
		if y > 0 {
			c.year = y
		}
	}
}

// WithTimezone sets the zone session times are interpreted in.
func WithTimezone(tz *time.Location) Option {
	return func(c *config) {
		if tz != nil {
			c.tz = tz
		}
	}
}

// WithFetcher replaces the HTTP fetcher, mainly for tests.
func WithFetcher(f Fetcher) Option {
	return func(c *config) {
		if f != nil {
			c.fetcher = f
		}
	}
}
