package democatalog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/unisport/kursfinder/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "demo_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the demo catalog tool.
func ShowHelp() {
	os.Stdout.WriteString(`Kursfinder Demo Catalog Tool
============================

Seeds a small curated course catalog into the database and smoke-checks a
running kursfinder instance: catalog filters, recommendations and the
calendar feed.

Usage:
  go run cmd/demo-catalog/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -skip-seed
        Skip seeding and check whatever catalog is already in place
  -timeout duration
        HTTP request timeout (default 15s)
  -wait duration
        How long to wait for the seeded catalog to show up through the
        service's snapshot cache (default 6m)
  -log string
        Log file for demo output (default: demo_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

The database connection comes from the regular service configuration
(KURSFINDER_DATABASE_DSN or a .env file next to the binary).

Examples:
  # Seed and check a local instance
  go run cmd/demo-catalog/main.go

  # Check a remote instance that was seeded earlier
  go run cmd/demo-catalog/main.go -skip-seed -url http://staging:8080

  # Faster feedback against a dev server with a short snapshot TTL
  go run cmd/demo-catalog/main.go -wait 30s -verbose
`)
}
