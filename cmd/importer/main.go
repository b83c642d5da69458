package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/adapters/scrape"
	"github.com/unisport/kursfinder/internal/config"
	"github.com/unisport/kursfinder/pkg/logger"
)

// defaultRunTimeout bounds a full catalog import including retries.
const defaultRunTimeout = 30 * time.Minute

func main() {
	var (
		dryRun  = flag.Bool("dry-run", false, "Parse the catalog without writing to the database")
		limit   = flag.Int("limit", 0, "Import at most this many detail pages (0 = all)")
		timeout = flag.Duration("timeout", defaultRunTimeout, "Overall budget for the run")
	)
	flag.Parse()

	// Pull in a local .env when present; deployments set real environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get().Named("importer")

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error(ctx, "invalid timezone", logger.String("timezone", cfg.Timezone), logger.Error(err))
		os.Exit(1)
	}

	// Dry runs still open the database: the importer reads the current
	// catalog so curated categories survive the rescrape.
	storeOpts := []repository.Option{
		repository.WithSlowThreshold(time.Duration(cfg.DBSlowQueryMS) * time.Millisecond),
	}
	if cfg.AutoMigrate {
		storeOpts = append(storeOpts, repository.WithAutoMigrate())
	}
	store, err := repository.Open(cfg.DatabaseDSN, storeOpts...)
	if err != nil {
		log.Error(ctx, "failed to open database", logger.Error(err))
		os.Exit(1)
	}

	opts := []scrape.Option{
		scrape.WithBaseURL(cfg.ScraperBaseURL),
		scrape.WithUserAgent(cfg.ScraperUserAgent),
		scrape.WithConcurrency(cfg.ScraperConcurrency),
		scrape.WithTimeout(cfg.ScraperTimeout()),
		scrape.WithRateLimit(cfg.ScraperRPS),
		scrape.WithTimezone(tz),
		scrape.WithYear(cfg.ScraperYear),
		scrape.WithLimit(*limit),
	}
	if *dryRun {
		opts = append(opts, scrape.WithDryRun())
	}

	runCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report, err := scrape.New(store, opts...).Run(runCtx)

	// Summary goes to stdout so cron mails stay readable.
	fmt.Println(report.Summary())

	if closeErr := store.Close(); closeErr != nil {
		log.Warn(ctx, "failed to close database", logger.Error(closeErr))
	}
	if err != nil {
		log.Error(ctx, "import failed", logger.String("run_id", report.RunID), logger.Error(err))
		os.Exit(1)
	}
}
