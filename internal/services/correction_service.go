package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"atmcorr-platform/internal/atmcorr"
	"atmcorr-platform/internal/atmosphere"
	"atmcorr-platform/internal/ilut"
	"atmcorr-platform/internal/models"
	"atmcorr-platform/internal/raster"
	"atmcorr-platform/internal/repository"
	"atmcorr-platform/pkg/logging"
	"atmcorr-platform/pkg/metrics"
)

// RasterExporter hands corrected rasters to an external export mechanism
type RasterExporter interface {
	Export(sceneID string, bands []*raster.Band) error
}

// CorrectionConfig controls batch behavior
type CorrectionConfig struct {
	// ApplyCorrection selects whether corrected rasters are produced and
	// exported in addition to coefficients. It never changes the coefficient
	// values themselves.
	ApplyCorrection bool
	// Workers is the worker pool size for the scene fan-out.
	Workers int
	// MaxRetries bounds retry attempts for transient external failures.
	MaxRetries int
	// RetryBackoff is the pause between retry attempts.
	RetryBackoff time.Duration
}

// CorrectionService derives per-scene correction coefficients and optionally
// applies them to produce surface reflectance rasters
type CorrectionService struct {
	tables     []ilut.Evaluator
	altitudeKM float64
	aoi        models.AOI
	atmosphere atmosphere.Provider
	exporter   RasterExporter
	repo       repository.SceneRepository
	cfg        CorrectionConfig
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewCorrectionService creates a correction service. The table set and
// altitude are loaded once before batch processing and shared read-only
// across workers. repo and exporter may be nil when persistence or raster
// export is not configured.
func NewCorrectionService(
	tables []ilut.Evaluator,
	altitudeKM float64,
	aoi models.AOI,
	atmosphereProvider atmosphere.Provider,
	exporter RasterExporter,
	repo repository.SceneRepository,
	cfg CorrectionConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *CorrectionService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &CorrectionService{
		tables:     tables,
		altitudeKM: altitudeKM,
		aoi:        aoi,
		atmosphere: atmosphereProvider,
		exporter:   exporter,
		repo:       repo,
		cfg:        cfg,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// SceneResult is the outcome of one scene's correction
type SceneResult struct {
	Scene        *models.SceneRecord
	Coefficients models.CorrectionCoefficients
	Corrected    []*raster.Band
	Err          error
	FailureKind  string
}

// Failed reports whether the scene was skipped
func (r *SceneResult) Failed() bool {
	return r.Err != nil
}

// BatchResult aggregates a full batch run
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Results   []SceneResult // ascending acquisition time
}

// ProcessBatch runs the correction over a scene collection. Scenes are
// independent: they share only the read-only table set and altitude, so the
// computation fans out over a fixed worker pool. One scene's failure is
// recorded and skipped without aborting the batch. A band/table count
// mismatch is a ConfigurationError and aborts the whole batch up front: no
// scene could produce a valid coefficient vector.
//
// If ctx is cancelled mid-batch, in-flight scenes are dropped: the partial
// result collected so far is returned together with ctx.Err(), and its
// Results may cover fewer scenes than Total.
func (s *CorrectionService) ProcessBatch(ctx context.Context, scenes []*models.SceneRecord) (*BatchResult, error) {
	startTime := time.Now()

	if len(s.tables) == 0 {
		return nil, &models.ConfigurationError{Component: "correction", Message: "no lookup tables loaded"}
	}
	for _, scene := range scenes {
		if err := s.checkBandCount(scene); err != nil {
			return nil, err
		}
	}

	s.logger.Info(ctx, "[BATCH_START] Starting correction batch", logging.Fields{
		"scenes":           len(scenes),
		"bands":            len(s.tables),
		"altitude_km":      s.altitudeKM,
		"workers":          s.cfg.Workers,
		"apply_correction": s.cfg.ApplyCorrection,
	})

	ordered := make([]*models.SceneRecord, len(scenes))
	copy(ordered, scenes)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AcquiredAt.Before(ordered[j].AcquiredAt)
	})

	jobs := make(chan *models.SceneRecord, s.cfg.Workers*2)
	resultCh := make(chan SceneResult, s.cfg.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for scene := range jobs {
				result := s.processScene(ctx, scene)
				select {
				case resultCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, scene := range ordered {
			select {
			case jobs <- scene:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := &BatchResult{Total: len(ordered)}
	for sceneResult := range resultCh {
		result.Results = append(result.Results, sceneResult)
		if sceneResult.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	// Workers finish out of order; the report and downstream consumers expect
	// ascending acquisition time.
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Scene.AcquiredAt.Before(result.Results[j].Scene.AcquiredAt)
	})

	result.Duration = time.Since(startTime)
	s.metrics.BatchDuration.Observe(result.Duration.Seconds())

	if err := ctx.Err(); err != nil {
		s.logger.Warn(ctx, "[BATCH_CANCELLED] Correction batch cancelled", logging.Fields{
			"total":     result.Total,
			"collected": len(result.Results),
		})
		return result, err
	}

	s.logger.Info(ctx, "[BATCH_COMPLETE] Correction batch completed", logging.Fields{
		"total":            result.Total,
		"succeeded":        result.Succeeded,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}

// checkBandCount enforces the invariant that scene bands, tables and solar
// irradiance constants all agree on the sensor band count.
func (s *CorrectionService) checkBandCount(scene *models.SceneRecord) error {
	n := len(s.tables)
	if len(scene.SolarIrradiance) != n {
		return &models.ConfigurationError{
			Component: "correction",
			Message: fmt.Sprintf("scene %s has %d solar irradiance constants, %d tables loaded",
				scene.SceneID, len(scene.SolarIrradiance), n),
		}
	}
	if len(scene.Bands) != 0 && len(scene.Bands) != n {
		return &models.ConfigurationError{
			Component: "correction",
			Message: fmt.Sprintf("scene %s has %d bands, %d tables loaded",
				scene.SceneID, len(scene.Bands), n),
		}
	}
	return nil
}

// processScene runs the full correction for a single scene and never panics
// the batch: every error is folded into the result with its failure kind.
func (s *CorrectionService) processScene(ctx context.Context, scene *models.SceneRecord) SceneResult {
	ctx = logging.WithSceneID(ctx, scene.SceneID)
	timer := time.Now()
	defer func() {
		s.metrics.SceneDuration.Observe(time.Since(timer).Seconds())
	}()

	result := SceneResult{Scene: scene}

	params, err := s.fetchAtmosphericParameters(ctx, scene)
	if err != nil {
		return s.failScene(ctx, result, err)
	}

	coeffs, err := atmcorr.BuildCoefficients(params, s.altitudeKM, s.tables)
	if err != nil {
		return s.failScene(ctx, result, err)
	}
	result.Coefficients = coeffs

	if s.cfg.ApplyCorrection && len(scene.Bands) > 0 {
		corrected, err := s.correctScene(scene, params, coeffs)
		if err != nil {
			return s.failScene(ctx, result, err)
		}
		result.Corrected = corrected

		if s.exporter != nil {
			if err := s.exporter.Export(scene.SceneID, corrected); err != nil {
				return s.failScene(ctx, result, &models.ExternalServiceError{
					Service: "export", Operation: "export_rasters", Err: err, Transient: false,
				})
			}
		}
	}

	s.persistSuccess(ctx, scene, coeffs)
	s.metrics.ScenesProcessedTotal.Inc()

	s.logger.Debug(ctx, "[SCENE_COMPLETE] Scene corrected", logging.Fields{
		"bands":     len(coeffs),
		"corrected": len(result.Corrected),
	})

	return result
}

// fetchAtmosphericParameters assembles the per-scene atmospheric state,
// retrying transient service failures with bounded attempts.
func (s *CorrectionService) fetchAtmosphericParameters(ctx context.Context, scene *models.SceneRecord) (models.AtmosphericParameters, error) {
	date := scene.AcquiredAt

	water, err := s.fetchWithRetry(ctx, "water", func() (float64, error) {
		return s.atmosphere.Water(ctx, s.aoi, date)
	})
	if err != nil {
		return models.AtmosphericParameters{}, err
	}

	ozone, err := s.fetchWithRetry(ctx, "ozone", func() (float64, error) {
		return s.atmosphere.Ozone(ctx, s.aoi, date)
	})
	if err != nil {
		return models.AtmosphericParameters{}, err
	}

	aot, err := s.fetchWithRetry(ctx, "aerosol", func() (float64, error) {
		return s.atmosphere.Aerosol(ctx, s.aoi, date)
	})
	if err != nil {
		return models.AtmosphericParameters{}, err
	}

	return models.AtmosphericParameters{
		DayOfYear:      scene.DayOfYear(),
		SolarZenithDeg: scene.SolarZenithDeg,
		WaterVapor:     water,
		Ozone:          ozone,
		AOT:            aot,
	}, nil
}

// fetchWithRetry retries fn on transient failures up to MaxRetries extra
// attempts, with a fixed backoff between attempts.
func (s *CorrectionService) fetchWithRetry(ctx context.Context, operation string, fn func() (float64, error)) (float64, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordExternalRetry("atmosphere")
			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-ctx.Done():
				return 0, &models.ExternalServiceError{
					Service: "atmosphere", Operation: operation, Err: ctx.Err(), Transient: false,
				}
			}
		}

		value, err := fn()
		if err == nil {
			s.metrics.RecordExternalRequest("atmosphere", "success")
			return value, nil
		}
		lastErr = err
		s.metrics.RecordExternalRequest("atmosphere", "error")

		var svcErr *models.ExternalServiceError
		if !errors.As(err, &svcErr) || !svcErr.IsTransient() {
			return 0, err
		}

		s.logger.Warn(ctx, "[ATMOSPHERE_RETRY] Transient failure, retrying", logging.Fields{
			"operation": operation,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})
	}
	return 0, lastErr
}

// correctScene converts each band to radiance and applies the linear
// correction, producing surface reflectance rasters.
func (s *CorrectionService) correctScene(scene *models.SceneRecord, params models.AtmosphericParameters, coeffs models.CorrectionCoefficients) ([]*raster.Band, error) {
	corrected := make([]*raster.Band, 0, len(scene.Bands))
	for i, band := range scene.Bands {
		multiplier, err := atmcorr.RadianceMultiplier(scene.SolarIrradiance[i], params.SolarZenithDeg, params.DayOfYear)
		if err != nil {
			return nil, err
		}

		out, err := atmcorr.CorrectBand(band, multiplier, coeffs[i])
		if err != nil {
			return nil, err
		}
		corrected = append(corrected, out)
	}
	return corrected, nil
}

// failScene classifies the error, records it and returns the failed result.
// The batch continues: scene failures are isolated by design.
func (s *CorrectionService) failScene(ctx context.Context, result SceneResult, err error) SceneResult {
	result.Err = err
	result.FailureKind = classifyFailure(err)
	result.Coefficients = nil
	result.Corrected = nil

	s.metrics.RecordSceneFailure(result.FailureKind)
	s.logger.Error(ctx, "[SCENE_FAILED] Scene correction failed", logging.Fields{
		"failure_kind": result.FailureKind,
	}, err)

	if s.repo != nil {
		if repoErr := s.repo.UpsertScene(ctx, sceneRow(result.Scene, models.SceneStatusPending)); repoErr != nil {
			s.logger.Error(ctx, "[SCENE_PERSIST_ERROR] Failed to record scene failure", logging.Fields{}, repoErr)
		} else if repoErr := s.repo.MarkSceneFailed(ctx, result.Scene.SceneID, result.FailureKind, err.Error()); repoErr != nil {
			s.logger.Error(ctx, "[SCENE_PERSIST_ERROR] Failed to record scene failure", logging.Fields{}, repoErr)
		}
	}

	return result
}

// persistSuccess stores the scene and its coefficient vector when a
// repository is configured.
func (s *CorrectionService) persistSuccess(ctx context.Context, scene *models.SceneRecord, coeffs models.CorrectionCoefficients) {
	if s.repo == nil {
		return
	}

	if err := s.repo.UpsertScene(ctx, sceneRow(scene, models.SceneStatusCorrected)); err != nil {
		s.logger.Error(ctx, "[SCENE_PERSIST_ERROR] Failed to store scene", logging.Fields{}, err)
		return
	}
	if err := s.repo.SaveCoefficients(ctx, scene.SceneID, coeffs); err != nil {
		s.logger.Error(ctx, "[SCENE_PERSIST_ERROR] Failed to store coefficients", logging.Fields{}, err)
	}
}

// classifyFailure maps an error to its persisted failure kind.
func classifyFailure(err error) string {
	var ood *models.OutOfDomainError
	if errors.As(err, &ood) {
		return models.FailureOutOfDomain
	}
	var num *models.NumericError
	if errors.As(err, &num) {
		return models.FailureNumeric
	}
	return models.FailureExternalService
}

// sceneRow builds the persisted scene record from a catalog scene.
func sceneRow(scene *models.SceneRecord, status string) *models.Scene {
	now := time.Now().UTC()
	return &models.Scene{
		SceneID:        scene.SceneID,
		AcquiredAt:     scene.AcquiredAt,
		SolarZenithDeg: scene.SolarZenithDeg,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
