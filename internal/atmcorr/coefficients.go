package atmcorr

import (
	"errors"

	"atmcorr-platform/internal/ilut"
	"atmcorr-platform/internal/models"
)

// BuildCoefficients derives the per-band correction coefficient vector for
// one scene. For each band i:
//
//	(a, b) = tables[i].Evaluate(solar_zenith, water_vapor, ozone, aot, altitude)
//	k      = OrbitCorrection(day_of_year)
//	(a', b') = (a*k, b*k)
//
// The returned slice is ordered identically to tables. Coefficient building
// is all-or-nothing per scene: downstream consumers expect a complete band
// vector, so an OutOfDomainError on any band fails the whole scene with the
// offending band number attached.
func BuildCoefficients(params models.AtmosphericParameters, altitudeKM float64, tables []ilut.Evaluator) (models.CorrectionCoefficients, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	point := ilut.LookupPoint{
		SolarZenithDeg: params.SolarZenithDeg,
		WaterVapor:     params.WaterVapor,
		Ozone:          params.Ozone,
		AOT:            params.AOT,
		AltitudeKM:     altitudeKM,
	}
	k := OrbitCorrection(params.DayOfYear)

	coeffs := make(models.CorrectionCoefficients, 0, len(tables))
	for i, table := range tables {
		gain, offset, err := table.Evaluate(point)
		if err != nil {
			var ood *models.OutOfDomainError
			if errors.As(err, &ood) && ood.Band == 0 {
				ood.Band = i + 1
			}
			return nil, err
		}
		coeffs = append(coeffs, models.BandCoefficients{
			Gain:   gain * k,
			Offset: offset * k,
		})
	}
	return coeffs, nil
}
