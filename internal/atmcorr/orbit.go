// Package atmcorr implements the radiometric correction model: per-band
// linear correction coefficients derived from radiative-transfer lookup
// tables, Earth-Sun distance adjustment, and the TOA reflectance to surface
// reflectance transform.
package atmcorr

import "math"

// Coefficients of the elliptical orbit correction fit.
const (
	orbitAmplitude = 0.03275104
	orbitPeriod    = 59.66638337
	orbitMean      = 0.96804905
)

// OrbitCorrection returns the elliptical orbit correction factor for a day of
// year in [1, 366]:
//
//	k = 0.03275104 * cos(doy / 59.66638337) + 0.96804905
//
// It compensates for the varying Earth-Sun distance over the orbit. Pure and
// total over the valid domain; callers validate the day of year upstream.
func OrbitCorrection(dayOfYear int) float64 {
	return orbitAmplitude*math.Cos(float64(dayOfYear)/orbitPeriod) + orbitMean
}

// EarthSunDistanceAU returns the Earth-Sun distance in astronomical units for
// a day of year:
//
//	d = 1 - 0.01672 * cos(0.9856 * (doy - 4))
//
// This is a second approximation of the same physical quantity OrbitCorrection
// models. The two are kept separate on purpose: the radiance path and the
// coefficient path were fit independently, and unifying them would shift
// numeric results away from the validated radiative-transfer fit.
func EarthSunDistanceAU(dayOfYear int) float64 {
	return 1 - 0.01672*math.Cos(0.9856*(float64(dayOfYear)-4))
}
