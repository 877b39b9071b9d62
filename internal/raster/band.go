// Package raster holds in-memory band rasters and their export encodings.
package raster

import "fmt"

// Band is a single-band raster of float64 samples in row-major order.
// For TOA inputs the samples are scaled reflectance integers (reflectance
// multiplied by the sensor scale factor); for corrected outputs they are
// surface reflectance in [0, 1] plus whatever the correction produced.
type Band struct {
	Name   string    `json:"name"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float64 `json:"data"`
}

// NewBand allocates a zero-filled band
func NewBand(name string, width, height int) *Band {
	return &Band{
		Name:   name,
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// Validate checks the sample buffer matches the declared dimensions
func (b *Band) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("band %s: dimensions %dx%d must be positive", b.Name, b.Width, b.Height)
	}
	if len(b.Data) != b.Width*b.Height {
		return fmt.Errorf("band %s: %d samples, expected %d", b.Name, len(b.Data), b.Width*b.Height)
	}
	return nil
}

// At returns the sample at (x, y). Callers must stay in bounds.
func (b *Band) At(x, y int) float64 {
	return b.Data[y*b.Width+x]
}
