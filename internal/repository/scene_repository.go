package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"atmcorr-platform/internal/models"
	"atmcorr-platform/pkg/database"
	"atmcorr-platform/pkg/logging"
	"atmcorr-platform/pkg/metrics"
)

// SceneRepository provides data access for processed scenes and their
// correction coefficients
type SceneRepository interface {
	// Scene operations
	UpsertScene(ctx context.Context, scene *models.Scene) error
	GetScene(ctx context.Context, sceneID string) (*models.Scene, error)
	ListScenes(ctx context.Context, filter SceneFilter) ([]*models.Scene, int, error)
	MarkSceneFailed(ctx context.Context, sceneID, kind, detail string) error

	// Coefficient operations
	SaveCoefficients(ctx context.Context, sceneID string, coeffs models.CorrectionCoefficients) error
	GetCoefficients(ctx context.Context, sceneID string) ([]*models.SceneBandCoefficients, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// SceneFilter defines filters for querying scenes
type SceneFilter struct {
	Status *string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// sceneRepository implements SceneRepository
type sceneRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSceneRepository creates a new scene repository
func NewSceneRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SceneRepository {
	return &sceneRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertScene inserts or updates a scene record
func (r *sceneRepository) UpsertScene(ctx context.Context, scene *models.Scene) error {
	query := `
		INSERT INTO scenes (scene_id, acquired_at, solar_zenith_deg, status, failure_kind, failure_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scene_id) DO UPDATE SET
			status = EXCLUDED.status,
			failure_kind = EXCLUDED.failure_kind,
			failure_detail = EXCLUDED.failure_detail,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, "upsert_scene", query,
		scene.SceneID,
		scene.AcquiredAt,
		scene.SolarZenithDeg,
		scene.Status,
		scene.FailureKind,
		scene.FailureDetail,
		scene.CreatedAt,
		scene.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert scene: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_SCENE] Scene stored", logging.Fields{
		"scene_id": scene.SceneID,
		"status":   scene.Status,
	})

	return nil
}

// GetScene retrieves a scene by ID
func (r *sceneRepository) GetScene(ctx context.Context, sceneID string) (*models.Scene, error) {
	query := `
		SELECT scene_id, acquired_at, solar_zenith_deg, status, failure_kind, failure_detail, created_at, updated_at
		FROM scenes
		WHERE scene_id = $1
	`

	var scene models.Scene
	err := r.db.GetContext(ctx, "get_scene", &scene, query, sceneID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "scene", ID: sceneID}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}

	return &scene, nil
}

// ListScenes retrieves scenes with filtering and pagination
func (r *sceneRepository) ListScenes(ctx context.Context, filter SceneFilter) ([]*models.Scene, int, error) {
	query := `
		SELECT scene_id, acquired_at, solar_zenith_deg, status, failure_kind, failure_detail, created_at, updated_at
		FROM scenes
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Since != nil {
		query += fmt.Sprintf(" AND acquired_at >= $%d", argNum)
		args = append(args, *filter.Since)
		argNum++
	}

	if filter.Until != nil {
		query += fmt.Sprintf(" AND acquired_at < $%d", argNum)
		args = append(args, *filter.Until)
		argNum++
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_scenes", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count scenes: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY acquired_at ASC, scene_id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var scenes []*models.Scene
	err = r.db.SelectContext(ctx, "list_scenes", &scenes, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scenes: %w", err)
	}

	return scenes, totalCount, nil
}

// MarkSceneFailed records a scene failure with its kind and detail
func (r *sceneRepository) MarkSceneFailed(ctx context.Context, sceneID, kind, detail string) error {
	query := `
		UPDATE scenes
		SET status = $2, failure_kind = $3, failure_detail = $4, updated_at = $5
		WHERE scene_id = $1
	`

	_, err := r.db.ExecContext(ctx, "mark_scene_failed", query,
		sceneID,
		models.SceneStatusFailed,
		kind,
		detail,
		time.Now().UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to mark scene failed: %w", err)
	}

	return nil
}

// SaveCoefficients stores a scene's full per-band coefficient vector in a
// single transaction. Either the whole vector lands or none of it does:
// consumers expect a complete per-band set.
func (r *sceneRepository) SaveCoefficients(ctx context.Context, sceneID string, coeffs models.CorrectionCoefficients) error {
	if len(coeffs) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.CoefficientBands.Observe(float64(len(coeffs)))
		r.logger.Debug(ctx, "[REPO_SAVE_COEFFS] Coefficient insert completed", logging.Fields{
			"scene_id":    sceneID,
			"bands":       len(coeffs),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scene_coefficients (scene_id, band_index, gain, band_offset, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scene_id, band_index) DO UPDATE SET
			gain = EXCLUDED.gain,
			band_offset = EXCLUDED.band_offset
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, coeff := range coeffs {
		_, err := stmt.ExecContext(ctx, sceneID, i, coeff.Gain, coeff.Offset, now)
		if err != nil {
			return fmt.Errorf("failed to insert coefficients for band %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCoefficients retrieves a scene's coefficient rows in band order
func (r *sceneRepository) GetCoefficients(ctx context.Context, sceneID string) ([]*models.SceneBandCoefficients, error) {
	query := `
		SELECT id, scene_id, band_index, gain, band_offset, created_at
		FROM scene_coefficients
		WHERE scene_id = $1
		ORDER BY band_index
	`

	var coeffs []*models.SceneBandCoefficients
	err := r.db.SelectContext(ctx, "get_coefficients", &coeffs, query, sceneID)
	if err != nil {
		return nil, fmt.Errorf("failed to get coefficients: %w", err)
	}

	if len(coeffs) == 0 {
		return nil, &NotFoundError{Resource: "scene_coefficients", ID: sceneID}
	}

	return coeffs, nil
}

// HealthCheck performs a repository health check
func (r *sceneRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
