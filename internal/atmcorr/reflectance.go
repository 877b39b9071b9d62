package atmcorr

import (
	"atmcorr-platform/internal/models"
	"atmcorr-platform/internal/raster"
)

// TOAReflectanceScale is the integer scaling applied by the imagery source to
// TOA reflectance: stored samples are reflectance * 10000. Raw samples must be
// divided by this before radiometric conversion.
const TOAReflectanceScale = 10000.0

// ToSurfaceReflectance converts one scaled TOA reflectance sample to surface
// reflectance:
//
//	radiance = (toa / TOAReflectanceScale) * multiplier
//	surface  = (radiance - gain) / offset
//
// Callers must reject offset == 0 before the per-pixel loop; see CorrectBand.
func ToSurfaceReflectance(toaScaled, multiplier, gain, offset float64) float64 {
	radiance := (toaScaled / TOAReflectanceScale) * multiplier
	return (radiance - gain) / offset
}

// RecoverTOAReflectance inverts ToSurfaceReflectance for known coefficients,
// returning the scaled TOA sample that produced a surface reflectance value.
func RecoverTOAReflectance(surface, multiplier, gain, offset float64) float64 {
	radiance := surface*offset + gain
	return radiance / multiplier * TOAReflectanceScale
}

// CorrectBand applies the radiance conversion and linear correction to a whole
// band, returning a new raster of surface reflectance. The input band is not
// modified. A zero offset would divide every pixel by zero, so it is rejected
// once per band as a NumericError rather than emitting NaN rasters.
func CorrectBand(band *raster.Band, multiplier float64, coeff models.BandCoefficients) (*raster.Band, error) {
	if err := band.Validate(); err != nil {
		return nil, &models.ConfigurationError{Component: "raster", Message: err.Error()}
	}
	if coeff.Offset == 0 {
		return nil, &models.NumericError{
			Quantity: "offset",
			Value:    0,
			Message:  "zero correction offset for band " + band.Name,
		}
	}

	out := raster.NewBand(band.Name, band.Width, band.Height)
	for i, toa := range band.Data {
		out.Data[i] = ToSurfaceReflectance(toa, multiplier, coeff.Gain, coeff.Offset)
	}
	return out, nil
}
