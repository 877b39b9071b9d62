package models

import (
	"time"

	"atmcorr-platform/internal/raster"
)

// AOI is a geographic bounding box in degrees, shared by catalog, atmosphere
// and terrain queries for a run
type AOI struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate checks the bounding box is well formed
func (a AOI) Validate() error {
	if a.West < -180 || a.East > 180 || a.West >= a.East {
		return &ConfigurationError{Component: "aoi", Message: "longitude bounds must satisfy -180 <= west < east <= 180"}
	}
	if a.South < -90 || a.North > 90 || a.South >= a.North {
		return &ConfigurationError{Component: "aoi", Message: "latitude bounds must satisfy -90 <= south < north <= 90"}
	}
	return nil
}

// AtmosphericParameters holds the per-scene atmospheric state used to derive
// correction coefficients. Produced once per scene from the atmospheric
// parameter service and the scene metadata; immutable after creation.
type AtmosphericParameters struct {
	DayOfYear      int     `json:"day_of_year"`
	SolarZenithDeg float64 `json:"solar_zenith_deg"`
	WaterVapor     float64 `json:"water_vapor"`
	Ozone          float64 `json:"ozone"`
	AOT            float64 `json:"aot"`
}

// Validate rejects values no radiative-transfer table could be valid for
func (p AtmosphericParameters) Validate() error {
	if p.DayOfYear < 1 || p.DayOfYear > 366 {
		return &NumericError{Quantity: "day_of_year", Value: float64(p.DayOfYear), Message: "must be in [1, 366]"}
	}
	if p.SolarZenithDeg < 0 || p.SolarZenithDeg > 90 {
		return &NumericError{Quantity: "solar_zenith_deg", Value: p.SolarZenithDeg, Message: "must be in [0, 90]"}
	}
	if p.WaterVapor < 0 {
		return &NumericError{Quantity: "water_vapor", Value: p.WaterVapor, Message: "must be non-negative"}
	}
	if p.Ozone < 0 {
		return &NumericError{Quantity: "ozone", Value: p.Ozone, Message: "must be non-negative"}
	}
	if p.AOT < 0 {
		return &NumericError{Quantity: "aot", Value: p.AOT, Message: "must be non-negative"}
	}
	return nil
}

// BandCoefficients is the linear correction (gain, offset) for one band such
// that surface_reflectance = (radiance - gain) / offset
type BandCoefficients struct {
	Gain   float64 `json:"gain"`
	Offset float64 `json:"offset"`
}

// CorrectionCoefficients is the ordered per-band coefficient vector for one
// scene, indexed identically to the sensor band ordering. Computed fresh per
// scene and never reused: each scene has distinct atmospheric state.
type CorrectionCoefficients []BandCoefficients

// SceneRecord is one catalog scene: acquisition metadata plus raw scaled TOA
// reflectance rasters, one per band. Read-only input to the correction run.
type SceneRecord struct {
	SceneID         string         `json:"scene_id"`
	AcquiredAt      time.Time      `json:"acquired_at"`
	SolarZenithDeg  float64        `json:"solar_zenith_deg"`
	SolarIrradiance []float64      `json:"solar_irradiance"` // per band, W/m^2/um
	Bands           []*raster.Band `json:"bands,omitempty"`
}

// DayOfYear returns the 1-based day of year of the acquisition timestamp
func (s *SceneRecord) DayOfYear() int {
	return s.AcquiredAt.UTC().YearDay()
}

// Scene failure kinds recorded when a scene is skipped.
const (
	FailureOutOfDomain     = "out_of_domain"
	FailureNumeric         = "numeric"
	FailureExternalService = "external_service"
)

// Scene status values persisted by the repository.
const (
	SceneStatusPending   = "pending"
	SceneStatusCorrected = "corrected"
	SceneStatusFailed    = "failed"
)

// Scene is the persisted record of one processed scene
type Scene struct {
	SceneID        string    `json:"scene_id" db:"scene_id"`
	AcquiredAt     time.Time `json:"acquired_at" db:"acquired_at"`
	SolarZenithDeg float64   `json:"solar_zenith_deg" db:"solar_zenith_deg"`
	Status         string    `json:"status" db:"status"`
	FailureKind    *string   `json:"failure_kind,omitempty" db:"failure_kind"`
	FailureDetail  *string   `json:"failure_detail,omitempty" db:"failure_detail"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SceneBandCoefficients is one persisted (scene, band) coefficient row
type SceneBandCoefficients struct {
	ID        int64     `json:"id" db:"id"`
	SceneID   string    `json:"scene_id" db:"scene_id"`
	BandIndex int       `json:"band_index" db:"band_index"` // zero-based, sensor band order
	Gain      float64   `json:"gain" db:"gain"`
	Offset    float64   `json:"offset" db:"band_offset"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
