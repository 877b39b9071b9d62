// Package terrain queries the external elevation model for the sensor
// altitude input of the lookup tables.
package terrain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atmcorr-platform/internal/models"
)

const serviceName = "terrain"

// MetersPerKilometer converts service elevations to the kilometer units the
// radiative-transfer tables were fit in.
const MetersPerKilometer = 1000.0

// ElevationProvider returns terrain elevation statistics for an area.
type ElevationProvider interface {
	// MeanElevation returns the mean terrain elevation over the AOI in meters.
	MeanElevation(ctx context.Context, aoi models.AOI) (float64, error)
}

// Client is an HTTP implementation of ElevationProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the elevation service.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MeanElevation queries the mean elevation over the AOI.
func (c *Client) MeanElevation(ctx context.Context, aoi models.AOI) (float64, error) {
	url := fmt.Sprintf("%s/api/v1/elevation/mean?west=%f&south=%f&east=%f&north=%f",
		c.baseURL, aoi.West, aoi.South, aoi.East, aoi.North)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: "mean_elevation", Err: err, Transient: false,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: "mean_elevation", Err: err, Transient: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &models.ExternalServiceError{
			Service:   serviceName,
			Operation: "mean_elevation",
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
			Transient: resp.StatusCode >= 500,
		}
	}

	var body struct {
		ElevationM float64 `json:"elevation_m"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: "mean_elevation", Err: err, Transient: false,
		}
	}

	return body.ElevationM, nil
}

// AltitudeKM converts a mean elevation in meters to sensor altitude input in
// kilometers. Derived once per AOI and shared read-only across the run.
func AltitudeKM(meanElevationM float64) float64 {
	return meanElevationM / MetersPerKilometer
}
