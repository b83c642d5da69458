package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/unisport/kursfinder/internal/adapters/repository"
	"github.com/unisport/kursfinder/internal/config"
	"github.com/unisport/kursfinder/internal/democatalog"
)

// Default configuration constants.
const (
	defaultTimeout = 15 * time.Second
	defaultWait    = 6 * time.Minute
	defaultRunFor  = 15 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		skipSeed = flag.Bool("skip-seed", false, "Skip seeding and check the catalog already in place")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", defaultWait, "How long to wait for the seeded catalog to appear")
		logFile  = flag.String("log", "", "Log file for demo output (default: demo_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		democatalog.ShowHelp()
		return
	}

	// Setup logging
	if err := democatalog.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunFor)
	defer cancel()

	demoConfig := &democatalog.Config{
		BaseURL:  *baseURL,
		SkipSeed: *skipSeed,
		Timeout:  *timeout,
		Wait:     *wait,
		LogFile:  *logFile,
		Verbose:  *verbose,
	}

	// Seeding writes straight to the database the service reads from.
	var store democatalog.Store
	if !*skipSeed {
		_ = godotenv.Load()
		cfg, err := config.Load(ctx)
		if err != nil {
			os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
			os.Exit(1)
		}
		storeOpts := []repository.Option{
			repository.WithSlowThreshold(time.Duration(cfg.DBSlowQueryMS) * time.Millisecond),
		}
		if cfg.AutoMigrate {
			storeOpts = append(storeOpts, repository.WithAutoMigrate())
		}
		pg, err := repository.Open(cfg.DatabaseDSN, storeOpts...)
		if err != nil {
			os.Stderr.WriteString("failed to open database: " + err.Error() + "\n")
			os.Exit(1)
		}
		defer func() {
			_ = pg.Close()
		}()
		store = pg
	}

	if err := democatalog.Run(ctx, store, demoConfig); err != nil {
		os.Stderr.WriteString("Demo run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
