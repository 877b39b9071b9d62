package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"atmcorr-platform/internal/ilut"
	"atmcorr-platform/internal/models"
	"atmcorr-platform/internal/raster"
	"atmcorr-platform/pkg/logging"
	"atmcorr-platform/pkg/metrics"
)

// One collector for the whole package: promauto registers with the default
// registry and a second registration of the same names would panic.
var testMetrics = metrics.NewCollector("atmcorr_services_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// constantTable returns fixed coefficients for every lookup point.
type constantTable struct {
	gain, offset float64
	err          error
}

func (c constantTable) Evaluate(p ilut.LookupPoint) (float64, float64, error) {
	if c.err != nil {
		return 0, 0, c.err
	}
	return c.gain, c.offset, nil
}

// fakeAtmosphere serves canned values, optionally failing some scenes.
type fakeAtmosphere struct {
	mu sync.Mutex

	water, ozone, aerosol float64

	// failures maps acquisition date (YYYY-MM-DD) to the error every fetch
	// for that date returns.
	failures map[string]error

	// transientUntil makes the first N calls per date fail with a transient
	// error before succeeding.
	transientUntil int
	calls          map[string]int
}

func (f *fakeAtmosphere) fetch(date time.Time, value float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := date.UTC().Format("2006-01-02")
	if err, ok := f.failures[key]; ok {
		return 0, err
	}

	if f.transientUntil > 0 {
		if f.calls == nil {
			f.calls = make(map[string]int)
		}
		f.calls[key]++
		if f.calls[key] <= f.transientUntil {
			return 0, &models.ExternalServiceError{
				Service: "atmosphere", Operation: "fetch", Err: errors.New("timeout"), Transient: true,
			}
		}
	}

	return value, nil
}

func (f *fakeAtmosphere) Water(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return f.fetch(date, f.water)
}

func (f *fakeAtmosphere) Ozone(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return f.fetch(date, f.ozone)
}

func (f *fakeAtmosphere) Aerosol(ctx context.Context, aoi models.AOI, date time.Time) (float64, error) {
	return f.fetch(date, f.aerosol)
}

// recordingExporter captures exported scenes.
type recordingExporter struct {
	mu     sync.Mutex
	scenes map[string]int
}

func (e *recordingExporter) Export(sceneID string, bands []*raster.Band) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scenes == nil {
		e.scenes = make(map[string]int)
	}
	e.scenes[sceneID] = len(bands)
	return nil
}

func testAOI() models.AOI {
	return models.AOI{West: 85.52, South: 25.62, East: 85.72, North: 25.82}
}

func testScene(id string, acquired time.Time, bands int) *models.SceneRecord {
	scene := &models.SceneRecord{
		SceneID:         id,
		AcquiredAt:      acquired,
		SolarZenithDeg:  35,
		SolarIrradiance: make([]float64, bands),
	}
	for i := range scene.SolarIrradiance {
		scene.SolarIrradiance[i] = 1500 + float64(i)*10
	}
	return scene
}

func newTestService(atm *fakeAtmosphere, exporter RasterExporter, cfg CorrectionConfig) *CorrectionService {
	tables := []ilut.Evaluator{
		constantTable{gain: 40, offset: 300},
		constantTable{gain: 55, offset: 410},
	}
	return NewCorrectionService(tables, 0.05, testAOI(), atm, exporter, nil, cfg, testLogger(), testMetrics)
}

func TestProcessBatch_OrderedResults(t *testing.T) {
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 4, MaxRetries: 0})

	base := time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC)
	scenes := []*models.SceneRecord{
		testScene("S2A_C", base.AddDate(0, 0, 20), 2),
		testScene("S2A_A", base, 2),
		testScene("S2A_B", base.AddDate(0, 0, 10), 2),
	}

	result, err := svc.ProcessBatch(context.Background(), scenes)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.Total != 3 || result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	wantOrder := []string{"S2A_A", "S2A_B", "S2A_C"}
	for i, want := range wantOrder {
		if result.Results[i].Scene.SceneID != want {
			t.Errorf("result %d = %s, want %s", i, result.Results[i].Scene.SceneID, want)
		}
	}

	for _, sceneResult := range result.Results {
		if len(sceneResult.Coefficients) != 2 {
			t.Errorf("scene %s has %d coefficient pairs, want 2", sceneResult.Scene.SceneID, len(sceneResult.Coefficients))
		}
	}
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	badDate := time.Date(2016, 6, 15, 10, 30, 0, 0, time.UTC)
	atm := &fakeAtmosphere{
		water: 2.1, ozone: 0.3, aerosol: 0.25,
		failures: map[string]error{
			"2016-06-15": &models.ExternalServiceError{
				Service: "atmosphere", Operation: "water", Err: errors.New("no data for date"), Transient: false,
			},
		},
	}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 2, MaxRetries: 2})

	scenes := []*models.SceneRecord{
		testScene("S2A_OK1", time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC), 2),
		testScene("S2A_BAD", badDate, 2),
		testScene("S2A_OK2", time.Date(2016, 9, 1, 10, 30, 0, 0, time.UTC), 2),
	}

	result, err := svc.ProcessBatch(context.Background(), scenes)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counts: succeeded=%d failed=%d", result.Succeeded, result.Failed)
	}

	for _, sceneResult := range result.Results {
		switch sceneResult.Scene.SceneID {
		case "S2A_BAD":
			if !sceneResult.Failed() {
				t.Error("S2A_BAD should have failed")
			}
			if sceneResult.FailureKind != models.FailureExternalService {
				t.Errorf("FailureKind = %s, want %s", sceneResult.FailureKind, models.FailureExternalService)
			}
			if sceneResult.Coefficients != nil {
				t.Error("failed scene must not carry coefficients")
			}
		default:
			if sceneResult.Failed() {
				t.Errorf("scene %s should have succeeded: %v", sceneResult.Scene.SceneID, sceneResult.Err)
			}
		}
	}
}

func TestProcessBatch_TransientRetry(t *testing.T) {
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25, transientUntil: 2}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	scenes := []*models.SceneRecord{
		testScene("S2A_FLAKY", time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC), 2),
	}

	result, err := svc.ProcessBatch(context.Background(), scenes)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("scene should succeed after retries: %+v", result.Results[0].Err)
	}
}

func TestProcessBatch_RetryBudgetExhausted(t *testing.T) {
	// Every call transient-fails; with MaxRetries=1 the budget runs out.
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25, transientUntil: 100}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})

	scenes := []*models.SceneRecord{
		testScene("S2A_DOWN", time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC), 2),
	}

	result, err := svc.ProcessBatch(context.Background(), scenes)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Failed != 1 {
		t.Fatal("scene should fail once the retry budget is exhausted")
	}
	if result.Results[0].FailureKind != models.FailureExternalService {
		t.Errorf("FailureKind = %s, want %s", result.Results[0].FailureKind, models.FailureExternalService)
	}
}

func TestProcessBatch_OutOfDomainFailureKind(t *testing.T) {
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25}
	tables := []ilut.Evaluator{
		constantTable{gain: 40, offset: 300},
		constantTable{err: &models.OutOfDomainError{Input: "water_vapor", Value: 9.5, Min: 0, Max: 8.5}},
	}
	svc := NewCorrectionService(tables, 0.05, testAOI(), atm, nil, nil,
		CorrectionConfig{Workers: 1}, testLogger(), testMetrics)

	scenes := []*models.SceneRecord{
		testScene("S2A_OOD", time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC), 2),
	}

	result, err := svc.ProcessBatch(context.Background(), scenes)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Results[0].FailureKind != models.FailureOutOfDomain {
		t.Errorf("FailureKind = %s, want %s", result.Results[0].FailureKind, models.FailureOutOfDomain)
	}

	var ood *models.OutOfDomainError
	if !errors.As(result.Results[0].Err, &ood) {
		t.Fatalf("expected OutOfDomainError, got %T", result.Results[0].Err)
	}
	if ood.Band != 2 {
		t.Errorf("Band = %d, want 2", ood.Band)
	}
}

func TestProcessBatch_ApplyCorrectionInvariance(t *testing.T) {
	base := time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC)

	makeScenes := func(withBands bool) []*models.SceneRecord {
		scene := testScene("S2A_RASTER", base, 2)
		if withBands {
			for i := 0; i < 2; i++ {
				band := raster.NewBand(fmt.Sprintf("B%02d", i+1), 2, 2)
				copy(band.Data, []float64{100, 2500, 5000, 9000})
				scene.Bands = append(scene.Bands, band)
			}
		}
		return []*models.SceneRecord{scene}
	}

	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25}

	coeffOnly := newTestService(atm, nil, CorrectionConfig{Workers: 1, ApplyCorrection: false})
	resultOff, err := coeffOnly.ProcessBatch(context.Background(), makeScenes(false))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	exporter := &recordingExporter{}
	applying := newTestService(atm, exporter, CorrectionConfig{Workers: 1, ApplyCorrection: true})
	resultOn, err := applying.ProcessBatch(context.Background(), makeScenes(true))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	// The flag must not change the coefficients.
	for i := range resultOff.Results[0].Coefficients {
		off := resultOff.Results[0].Coefficients[i]
		on := resultOn.Results[0].Coefficients[i]
		if off != on {
			t.Errorf("band %d coefficients differ: %+v vs %+v", i+1, off, on)
		}
	}

	if len(resultOn.Results[0].Corrected) != 2 {
		t.Errorf("expected 2 corrected bands, got %d", len(resultOn.Results[0].Corrected))
	}
	if exporter.scenes["S2A_RASTER"] != 2 {
		t.Errorf("exporter saw %d bands, want 2", exporter.scenes["S2A_RASTER"])
	}
	if len(resultOff.Results[0].Corrected) != 0 {
		t.Error("coefficient-only run must not produce rasters")
	}
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 2, MaxRetries: 0})

	base := time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC)
	var scenes []*models.SceneRecord
	for i := 0; i < 8; i++ {
		scenes = append(scenes, testScene(fmt.Sprintf("S2A_%d", i), base.AddDate(0, 0, i), 2))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ProcessBatch(ctx, scenes)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ProcessBatch() error = %v, want context.Canceled", err)
	}
	if result == nil {
		t.Fatal("cancelled batch should still return the partial result")
	}
	if len(result.Results) > result.Total {
		t.Errorf("collected %d results for %d scenes", len(result.Results), result.Total)
	}
}

func TestProcessBatch_BandCountMismatch(t *testing.T) {
	atm := &fakeAtmosphere{water: 2.1, ozone: 0.3, aerosol: 0.25}
	svc := newTestService(atm, nil, CorrectionConfig{Workers: 1})

	// Scene with three irradiance constants against two loaded tables.
	scenes := []*models.SceneRecord{
		testScene("S2A_MISMATCH", time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC), 3),
	}

	_, err := svc.ProcessBatch(context.Background(), scenes)
	if err == nil {
		t.Fatal("ProcessBatch should abort on band/table count mismatch")
	}
	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
