package democatalog

import (
	"context"
	"fmt"
	"time"

	"github.com/unisport/kursfinder/pkg/logger"
)

// Run seeds the demo catalog and walks a running service through its API.
// store may be nil when config.SkipSeed is set.
func Run(ctx context.Context, store Store, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting kursfinder demo run",
		logger.String("baseURL", config.BaseURL),
		logger.Bool("skipSeed", config.SkipSeed),
		logger.String("timeout", config.Timeout.String()),
		logger.String("wait", config.Wait.String()),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the demo catalog
	if config.SkipSeed {
		logger.Get().Info(ctx, "seeding skipped; checking the catalog already in place")
	} else {
		if store == nil {
			return fmt.Errorf("seeding requested but no store configured")
		}
		if err := seedCatalog(ctx, store, stats); err != nil {
			return fmt.Errorf("catalog seeding failed: %w", err)
		}
	}

	// Step 3: Wait until the service's snapshot shows the catalog
	if _, err := waitForCatalog(ctx, client, config); err != nil {
		return fmt.Errorf("catalog never became visible: %w", err)
	}

	// Step 4: Exercise the filter parameters
	if err := checkFilters(ctx, client, config, stats); err != nil {
		return fmt.Errorf("filter checks failed: %w", err)
	}

	// Step 5: Exercise the recommendation scoring
	if err := checkRecommendations(ctx, client, config, stats); err != nil {
		return fmt.Errorf("recommendation checks failed: %w", err)
	}

	// Step 6: Exercise the calendar feed
	if err := checkFeed(ctx, client, config, stats); err != nil {
		return fmt.Errorf("feed checks failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.ChecksFailed > 0 {
		return fmt.Errorf("%d of %d checks failed", stats.ChecksFailed, stats.ChecksRun)
	}

	logger.Get().Info(ctx, "demo run completed successfully")
	return nil
}

// displayFinalStats prints the final demo statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("offersSeeded", stats.OffersSeeded),
		logger.Int("sessionsSeeded", stats.SessionsSeeded),
		logger.Int("locationsSeeded", stats.LocationsSeeded),
		logger.Int("samplesSeeded", stats.SamplesSeeded),
		logger.Int("checksRun", stats.ChecksRun),
		logger.Int("checksFailed", stats.ChecksFailed),
		logger.String("duration", stats.Duration.String()))
}
