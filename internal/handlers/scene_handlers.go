package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"atmcorr-platform/internal/repository"
	"atmcorr-platform/pkg/logging"
	"atmcorr-platform/pkg/metrics"
)

// SceneHandler handles scene API endpoints
type SceneHandler struct {
	repo    repository.SceneRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSceneHandler creates a new scene handler
func NewSceneHandler(
	repo repository.SceneRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *SceneHandler {
	return &SceneHandler{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ListScenes handles GET /api/scenes
func (h *SceneHandler) ListScenes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/scenes").Observe(duration.Seconds())
	}()

	// Parse query parameters
	status := r.URL.Query().Get("status")
	sinceStr := r.URL.Query().Get("since")
	untilStr := r.URL.Query().Get("until")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	// Build filter
	filter := repository.SceneFilter{
		Limit:  limit,
		Offset: offset,
	}

	if status != "" {
		filter.Status = &status
	}

	if sinceStr != "" {
		since, err := time.Parse("2006-01-02", sinceStr)
		if err != nil {
			h.sendError(w, r, "invalid since format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}

	if untilStr != "" {
		until, err := time.Parse("2006-01-02", untilStr)
		if err != nil {
			h.sendError(w, r, "invalid until format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.Until = &until
	}

	scenes, total, err := h.repo.ListScenes(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_SCENES_ERROR] Failed to list scenes", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/scenes")
		h.sendError(w, r, "failed to retrieve scenes", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       scenes,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/scenes", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetScene handles GET /api/scenes/{scene_id}
func (h *SceneHandler) GetScene(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/scenes/{scene_id}").Observe(duration.Seconds())
	}()

	sceneID := mux.Vars(r)["scene_id"]

	scene, err := h.repo.GetScene(ctx, sceneID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, "scene not found", http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_GET_SCENE_ERROR] Failed to get scene", logging.Fields{
			"scene_id": sceneID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/scenes/{scene_id}")
		h.sendError(w, r, "failed to retrieve scene", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/scenes/{scene_id}", "GET", "200")
	h.sendJSON(w, scene, http.StatusOK)
}

// GetCoefficients handles GET /api/scenes/{scene_id}/coefficients
func (h *SceneHandler) GetCoefficients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/scenes/{scene_id}/coefficients").Observe(duration.Seconds())
	}()

	sceneID := mux.Vars(r)["scene_id"]

	coeffs, err := h.repo.GetCoefficients(ctx, sceneID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, "coefficients not found", http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_GET_COEFFS_ERROR] Failed to get coefficients", logging.Fields{
			"scene_id": sceneID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/scenes/{scene_id}/coefficients")
		h.sendError(w, r, "failed to retrieve coefficients", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/scenes/{scene_id}/coefficients", "GET", "200")
	h.sendJSON(w, coeffs, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *SceneHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.repo.HealthCheck(ctx); err != nil {
		status["status"] = "degraded"
		h.logger.Warn(ctx, "[HEALTH_CHECK] Database health check failed", logging.Fields{
			"error": err.Error(),
		})
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *SceneHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *SceneHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all scene API routes
func (h *SceneHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/scenes", h.ListScenes).Methods("GET")
	router.HandleFunc("/api/scenes/{scene_id}", h.GetScene).Methods("GET")
	router.HandleFunc("/api/scenes/{scene_id}/coefficients", h.GetCoefficients).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
