package atmcorr

import (
	"math"

	"atmcorr-platform/internal/models"
)

// RadianceMultiplier returns the factor converting TOA reflectance to
// at-sensor radiance for one band:
//
//	multiplier = ESUN * cos(radians(solar_zenith)) / (pi * d^2)
//
// where ESUN is the band's solar exoatmospheric spectral irradiance and d is
// the Earth-Sun distance in AU for the day of year. A zenith angle outside
// [0, 90] degrees yields a negative or near-zero multiplier with no physical
// meaning, so it is rejected as a NumericError.
func RadianceMultiplier(solarIrradiance, solarZenithDeg float64, dayOfYear int) (float64, error) {
	if solarZenithDeg < 0 || solarZenithDeg > 90 {
		return 0, &models.NumericError{
			Quantity: "solar_zenith_deg",
			Value:    solarZenithDeg,
			Message:  "must be in [0, 90] for a physical radiance multiplier",
		}
	}

	solarAngleCorrection := math.Cos(solarZenithDeg * math.Pi / 180)
	d := EarthSunDistanceAU(dayOfYear)

	return solarIrradiance * solarAngleCorrection / (math.Pi * d * d), nil
}
