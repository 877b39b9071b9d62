package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"atmcorr-platform/internal/config"
	"atmcorr-platform/pkg/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	migrationsDir := flag.String("migrations-dir", "./migrations", "Directory containing migration SQL files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q: must be up or down\n", *direction)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("atmcorr-migrate", "1.0.0", logLevel)
	ctx := context.Background()

	// Discover migration files for the requested direction. Up migrations run
	// in ascending name order, down migrations in descending order so the
	// schema unwinds in reverse.
	pattern := filepath.Join(*migrationsDir, fmt.Sprintf("*.%s.sql", *direction))
	files, err := filepath.Glob(pattern)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to list migration files", logging.Fields{
			"pattern": pattern,
		}, err)
	}
	if len(files) == 0 {
		logger.Fatal(ctx, "[MIGRATE_ERROR] No migration files found", logging.Fields{
			"pattern": pattern,
		}, fmt.Errorf("no files match %s", pattern))
	}

	sort.Strings(files)
	if *direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	logger.Info(ctx, "[MIGRATE_START] Running schema migrations", logging.Fields{
		"direction": *direction,
		"files":     len(files),
		"db_host":   cfg.Database.Host,
		"db_name":   cfg.Database.Database,
	})

	// Connect to database
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to open database connection", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to ping database", logging.Fields{}, err)
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to read migration file", logging.Fields{
				"file": path,
			}, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			logger.Fatal(ctx, "[MIGRATE_ERROR] Migration failed", logging.Fields{
				"file": path,
			}, err)
		}

		logger.Info(ctx, "[MIGRATE_APPLIED] Migration applied", logging.Fields{
			"file": filepath.Base(path),
		})
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] All migrations applied", logging.Fields{
		"direction": *direction,
		"applied":   len(files),
	})
}
