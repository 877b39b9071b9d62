package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"atmcorr-platform/internal/atmcorr"
	"atmcorr-platform/internal/atmosphere"
	"atmcorr-platform/internal/catalog"
	"atmcorr-platform/internal/config"
	"atmcorr-platform/internal/ilut"
	"atmcorr-platform/internal/raster"
	"atmcorr-platform/internal/repository"
	"atmcorr-platform/internal/services"
	"atmcorr-platform/internal/terrain"
	"atmcorr-platform/pkg/database"
	"atmcorr-platform/pkg/logging"
	"atmcorr-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	startDateStr := flag.String("start-date", "2016-01-01", "Start of the acquisition window (YYYY-MM-DD, inclusive)")
	stopDateStr := flag.String("stop-date", "2017-01-01", "End of the acquisition window (YYYY-MM-DD, exclusive)")
	noPersist := flag.Bool("no-persist", false, "Skip database persistence of scenes and coefficients")
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid start-date: %v\n", err)
		os.Exit(1)
	}
	stopDate, err := time.Parse("2006-01-02", *stopDateStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid stop-date: %v\n", err)
		os.Exit(1)
	}
	if !stopDate.After(startDate) {
		fmt.Fprintf(os.Stderr, "stop-date must be after start-date\n")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("atmcorr-corrector", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[CORRECTOR_START] Starting correction run", logging.Fields{
		"version":          "1.0.0",
		"sensor":           cfg.Correction.Sensor,
		"bands":            cfg.Correction.BandCount,
		"start_date":       *startDateStr,
		"stop_date":        *stopDateStr,
		"apply_correction": cfg.Correction.ApplyCorrection,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("atmcorr_corrector")

	// Load lookup tables once; a missing or malformed table is fatal before
	// any scene is touched.
	tables, err := ilut.LoadDirectory(cfg.Correction.ILUTDir, cfg.Correction.Sensor, cfg.Correction.BandCount)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to load lookup tables", logging.Fields{
			"dir":    cfg.Correction.ILUTDir,
			"sensor": cfg.Correction.Sensor,
		}, err)
	}

	// Resolve the AOI's mean terrain altitude, shared by every scene.
	terrainClient := terrain.NewClient(cfg.Correction.TerrainURL, 30*time.Second)
	meanElevation, err := terrainClient.MeanElevation(ctx, cfg.Correction.AOI)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to resolve terrain elevation", logging.Fields{}, err)
	}
	altitudeKM := terrain.AltitudeKM(meanElevation)

	// List scenes for the window.
	catalogClient := catalog.NewClient(cfg.Correction.CatalogURL, 60*time.Second)
	scenes, err := catalogClient.ListScenes(ctx, cfg.Correction.AOI, startDate, stopDate)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to list catalog scenes", logging.Fields{}, err)
	}

	if len(scenes) == 0 {
		logger.Info(ctx, "[CORRECTOR_COMPLETE] No scenes in window, nothing to do", logging.Fields{})
		return
	}

	// Optional persistence.
	var sceneRepo repository.SceneRepository
	if !*noPersist {
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		sceneRepo = repository.NewSceneRepository(db, logger, metricsCollector)
	}

	// Optional raster export when corrected rasters are requested.
	var exporter services.RasterExporter
	if cfg.Correction.ApplyCorrection {
		dirExporter, err := raster.NewDirExporter(cfg.Correction.RasterDir, atmcorr.TOAReflectanceScale)
		if err != nil {
			logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to prepare raster export directory", logging.Fields{}, err)
		}
		exporter = dirExporter
	}

	atmosphereClient := atmosphere.NewClient(cfg.Correction.AtmosphereURL, 30*time.Second)

	correctionService := services.NewCorrectionService(
		tables,
		altitudeKM,
		cfg.Correction.AOI,
		atmosphereClient,
		exporter,
		sceneRepo,
		services.CorrectionConfig{
			ApplyCorrection: cfg.Correction.ApplyCorrection,
			Workers:         cfg.Correction.Workers,
			MaxRetries:      cfg.Correction.MaxRetries,
			RetryBackoff:    time.Second,
		},
		logger,
		metricsCollector,
	)

	result, err := correctionService.ProcessBatch(ctx, scenes)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Batch aborted", logging.Fields{}, err)
	}

	// Write the coefficient report.
	reportService := services.NewReportService()
	if err := reportService.SaveReport(cfg.Correction.ReportPath, result); err != nil {
		logger.Error(ctx, "[REPORT_ERROR] Failed to write coefficient report", logging.Fields{
			"path": cfg.Correction.ReportPath,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("CORRECTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Scenes:     %d\n", result.Total)
	fmt.Printf("Succeeded:        %d\n", result.Succeeded)
	fmt.Printf("Failed:           %d\n", result.Failed)
	fmt.Printf("Duration:         %v\n", result.Duration)
	fmt.Printf("Report:           %s\n", cfg.Correction.ReportPath)

	if result.Failed > 0 {
		fmt.Printf("\nFailures (%d):\n", result.Failed)
		shown := 0
		for _, sceneResult := range result.Results {
			if !sceneResult.Failed() {
				continue
			}
			if shown < 10 {
				fmt.Printf("  - %s [%s]: %v\n", sceneResult.Scene.SceneID, sceneResult.FailureKind, sceneResult.Err)
			}
			shown++
		}
		if shown > 10 {
			fmt.Printf("  ... and %d more failures\n", shown-10)
		}
	}

	logger.Info(ctx, "[CORRECTOR_COMPLETE] Correction run finished", logging.Fields{
		"total":            result.Total,
		"succeeded":        result.Succeeded,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})
}
