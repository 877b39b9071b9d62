package terrain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atmcorr-platform/internal/models"
)

func TestClient_MeanElevation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/elevation/mean" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"elevation_m": 52.5}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	aoi := models.AOI{West: 85.52, South: 25.62, East: 85.72, North: 25.82}

	elevation, err := client.MeanElevation(context.Background(), aoi)
	if err != nil {
		t.Fatalf("MeanElevation() error = %v", err)
	}
	if elevation != 52.5 {
		t.Errorf("MeanElevation() = %v, want 52.5", elevation)
	}
}

func TestClient_MeanElevation_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dem unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	aoi := models.AOI{West: 85.52, South: 25.62, East: 85.72, North: 25.82}

	_, err := client.MeanElevation(context.Background(), aoi)
	if err == nil {
		t.Fatal("MeanElevation() should fail on 502")
	}
	var svcErr *models.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %T", err)
	}
	if !svcErr.IsTransient() {
		t.Error("5xx should be transient")
	}
}

func TestAltitudeKM(t *testing.T) {
	tests := []struct {
		name       string
		elevationM float64
		want       float64
	}{
		{name: "sea level", elevationM: 0, want: 0},
		{name: "lowland", elevationM: 52.5, want: 0.0525},
		{name: "plateau", elevationM: 4500, want: 4.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AltitudeKM(tt.elevationM); got != tt.want {
				t.Errorf("AltitudeKM(%v) = %v, want %v", tt.elevationM, got, tt.want)
			}
		})
	}
}
