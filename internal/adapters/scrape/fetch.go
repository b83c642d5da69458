package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/unisport/kursfinder/pkg/metrics"
)

const (
	defaultUserAgent    = "kursfinder-importer/1.0"
	defaultFetchTimeout = 15 * time.Second
	maxPageBytes        = 4 << 20
)

// Fetcher retrieves catalog pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is a rate-limited, timeout-bounded page fetcher. One instance
// is shared by all workers of a run so the limit applies to the whole pool.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPFetcher creates a fetcher with the given requests-per-second limit.
// A non-positive rps disables limiting.
func NewHTTPFetcher(rps float64, timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Fetch retrieves one page, honoring the pool-wide rate limit.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordScrapePageFailed()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode != http.StatusOK {
		metrics.RecordScrapePageFailed()
		return nil, fmt.Errorf("fetch %s: %w: status %d", url, ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		metrics.RecordScrapePageFailed()
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	metrics.RecordScrapePageFetched()
	return body, nil
}
