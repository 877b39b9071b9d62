package atmosphere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atmcorr-platform/internal/models"
)

func testAOI() models.AOI {
	return models.AOI{West: 85.52, South: 25.62, East: 85.72, North: 25.82}
}

func TestClient_Fetch(t *testing.T) {
	values := map[string]float64{
		"water":   2.15,
		"ozone":   0.31,
		"aerosol": 0.27,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		variable := r.URL.Path[len("/api/v1/"):]
		value, ok := values[variable]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("date") != "2016-03-01" {
			t.Errorf("date = %q, want 2016-03-01", r.URL.Query().Get("date"))
		}
		if r.URL.Query().Get("west") == "" {
			t.Error("missing west bound")
		}
		fmt.Fprintf(w, `{"value": %g}`, value)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	ctx := context.Background()
	date := time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC)

	water, err := client.Water(ctx, testAOI(), date)
	if err != nil {
		t.Fatalf("Water() error = %v", err)
	}
	if water != 2.15 {
		t.Errorf("Water() = %v, want 2.15", water)
	}

	ozone, err := client.Ozone(ctx, testAOI(), date)
	if err != nil {
		t.Fatalf("Ozone() error = %v", err)
	}
	if ozone != 0.31 {
		t.Errorf("Ozone() = %v, want 0.31", ozone)
	}

	aerosol, err := client.Aerosol(ctx, testAOI(), date)
	if err != nil {
		t.Fatalf("Aerosol() error = %v", err)
	}
	if aerosol != 0.27 {
		t.Errorf("Aerosol() = %v, want 0.27", aerosol)
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Water(context.Background(), testAOI(), time.Now())
	if err == nil {
		t.Fatal("Water() should fail on 500")
	}

	var svcErr *models.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %T", err)
	}
	if !svcErr.IsTransient() {
		t.Error("5xx should be transient")
	}
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such variable", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Ozone(context.Background(), testAOI(), time.Now())
	if err == nil {
		t.Fatal("Ozone() should fail on 404")
	}

	var svcErr *models.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %T", err)
	}
	if svcErr.IsTransient() {
		t.Error("4xx should be permanent")
	}
}

func TestClient_ConnectionRefusedIsTransient(t *testing.T) {
	// Server closed before the request: transport error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Aerosol(context.Background(), testAOI(), time.Now())
	if err == nil {
		t.Fatal("Aerosol() should fail when the server is down")
	}

	var svcErr *models.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %T", err)
	}
	if !svcErr.IsTransient() {
		t.Error("transport errors should be transient")
	}
}
