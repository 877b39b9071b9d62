// Package catalog queries the external imagery catalog for scene records.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"atmcorr-platform/internal/models"
)

const serviceName = "catalog"

// Source lists scene records for an area and time range.
type Source interface {
	ListScenes(ctx context.Context, aoi models.AOI, start, stop time.Time) ([]*models.SceneRecord, error)
}

// Client is an HTTP implementation of Source.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the imagery catalog.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListScenes returns all catalog scenes intersecting the AOI within
// [start, stop), sorted by ascending acquisition time. Each record carries
// the metadata and raw band data the correction needs; records with no band
// rasters are valid when only coefficients are requested downstream.
func (c *Client) ListScenes(ctx context.Context, aoi models.AOI, start, stop time.Time) ([]*models.SceneRecord, error) {
	url := fmt.Sprintf("%s/api/v1/scenes?west=%f&south=%f&east=%f&north=%f&start=%s&stop=%s",
		c.baseURL, aoi.West, aoi.South, aoi.East, aoi.North,
		start.UTC().Format("2006-01-02"), stop.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.ExternalServiceError{
			Service: serviceName, Operation: "list_scenes", Err: err, Transient: false,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.ExternalServiceError{
			Service: serviceName, Operation: "list_scenes", Err: err, Transient: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.ExternalServiceError{
			Service:   serviceName,
			Operation: "list_scenes",
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
			Transient: resp.StatusCode >= 500,
		}
	}

	var body struct {
		Scenes []*models.SceneRecord `json:"scenes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.ExternalServiceError{
			Service: serviceName, Operation: "list_scenes", Err: err, Transient: false,
		}
	}

	// The catalog does not guarantee ordering; the batch driver requires
	// ascending acquisition time.
	sort.Slice(body.Scenes, func(i, j int) bool {
		return body.Scenes[i].AcquiredAt.Before(body.Scenes[j].AcquiredAt)
	})

	return body.Scenes, nil
}
