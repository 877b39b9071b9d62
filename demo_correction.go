package main

import (
	"fmt"
	"os"
	"time"

	"atmcorr-platform/internal/atmcorr"
	"atmcorr-platform/internal/ilut"
	"atmcorr-platform/internal/models"
	"atmcorr-platform/internal/raster"
)

// DemoCorrection demonstrates coefficient derivation and band correction
// without the database or external services
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("ATMCORR PLATFORM - CORRECTION DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	// Synthetic two-band table set: linear responses over a small grid.
	tables := []ilut.Evaluator{
		demoTable(0.9, 42),
		demoTable(1.1, 57),
	}

	// A synthetic scene acquired in early March.
	acquired := time.Date(2016, 3, 1, 10, 30, 0, 0, time.UTC)
	scene := &models.SceneRecord{
		SceneID:         "S2A_DEMO_20160301",
		AcquiredAt:      acquired,
		SolarZenithDeg:  35.4,
		SolarIrradiance: []float64{1913.57, 1941.63},
	}

	params := models.AtmosphericParameters{
		DayOfYear:      scene.DayOfYear(),
		SolarZenithDeg: scene.SolarZenithDeg,
		WaterVapor:     2.1,
		Ozone:          0.3,
		AOT:            0.25,
	}

	fmt.Printf("Scene:        %s\n", scene.SceneID)
	fmt.Printf("Day of year:  %d\n", params.DayOfYear)
	fmt.Printf("Solar zenith: %.1f deg\n", params.SolarZenithDeg)
	fmt.Printf("Water vapor:  %.2f\n", params.WaterVapor)
	fmt.Printf("Ozone:        %.2f\n", params.Ozone)
	fmt.Printf("AOT:          %.2f\n\n", params.AOT)

	coeffs, err := atmcorr.BuildCoefficients(params, 0.05, tables)
	if err != nil {
		fmt.Printf("Coefficient derivation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Derived coefficients:")
	for i, coeff := range coeffs {
		fmt.Printf("  band %02d: gain %.6f offset %.6f\n", i+1, coeff.Gain, coeff.Offset)
	}
	fmt.Println()

	// Correct a tiny synthetic raster with the first band's coefficients.
	band := raster.NewBand("B02", 3, 1)
	copy(band.Data, []float64{500, 2500, 7500})

	multiplier, err := atmcorr.RadianceMultiplier(scene.SolarIrradiance[0], params.SolarZenithDeg, params.DayOfYear)
	if err != nil {
		fmt.Printf("Radiance conversion failed: %v\n", err)
		os.Exit(1)
	}

	corrected, err := atmcorr.CorrectBand(band, multiplier, coeffs[0])
	if err != nil {
		fmt.Printf("Band correction failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Radiance multiplier (band 01): %.4f\n\n", multiplier)
	fmt.Println("TOA (scaled) -> surface reflectance:")
	for i, toa := range band.Data {
		fmt.Printf("  %7.0f -> %.6f\n", toa, corrected.Data[i])
	}
}

// demoTable builds a small in-memory grid whose gain grows linearly with
// water vapor and aot around a per-band base.
func demoTable(slope, base float64) *ilut.GridTable {
	axes := [ilut.NumAxes][]float64{
		{0, 75},  // solar_zenith
		{0, 8.5}, // water_vapor
		{0, 0.8}, // ozone
		{0, 3},   // aot
		{0, 7.8}, // altitude
	}

	size := 1 << ilut.NumAxes
	gain := make([]float64, size)
	offset := make([]float64, size)

	flat := 0
	for i0 := 0; i0 < 2; i0++ {
		for i1 := 0; i1 < 2; i1++ {
			for i2 := 0; i2 < 2; i2++ {
				for i3 := 0; i3 < 2; i3++ {
					for i4 := 0; i4 < 2; i4++ {
						g := base + slope*(axes[1][i1]+10*axes[3][i3])
						gain[flat] = g
						offset[flat] = 6*g + 11
						flat++
					}
				}
			}
		}
	}

	return &ilut.GridTable{Axes: axes, Gain: gain, Offset: offset}
}
