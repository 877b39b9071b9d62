// Package atmosphere queries the external atmospheric-parameter service for
// per-scene water vapor, ozone and aerosol optical thickness.
package atmosphere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atmcorr-platform/internal/models"
)

const serviceName = "atmosphere"

// Provider supplies atmospheric state scalars for an area and date.
type Provider interface {
	Water(ctx context.Context, aoi models.AOI, date time.Time) (float64, error)
	Ozone(ctx context.Context, aoi models.AOI, date time.Time) (float64, error)
	Aerosol(ctx context.Context, aoi models.AOI, date time.Time) (float64, error)
}

// Client is an HTTP implementation of Provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the atmospheric-parameter service.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Water returns the water vapor column for the area and date.
func (c *Client) Water(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return c.fetch(ctx, "water", aoi, date)
}

// Ozone returns the ozone column for the area and date.
func (c *Client) Ozone(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return c.fetch(ctx, "ozone", aoi, date)
}

// Aerosol returns the aerosol optical thickness for the area and date.
func (c *Client) Aerosol(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return c.fetch(ctx, "aerosol", aoi, date)
}

// fetch performs GET /api/v1/{variable} and decodes the scalar response.
func (c *Client) fetch(ctx context.Context, variable string, aoi models.AOI, date time.Time) (float64, error) {
	url := fmt.Sprintf("%s/api/v1/%s?west=%f&south=%f&east=%f&north=%f&date=%s",
		c.baseURL, variable, aoi.West, aoi.South, aoi.East, aoi.North,
		date.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: variable, Err: err, Transient: false,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors (timeouts, refused connections) are retryable.
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: variable, Err: err, Transient: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &models.ExternalServiceError{
			Service:   serviceName,
			Operation: variable,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
			Transient: resp.StatusCode >= 500,
		}
	}

	var body struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &models.ExternalServiceError{
			Service: serviceName, Operation: variable, Err: err, Transient: false,
		}
	}

	return body.Value, nil
}
