// Package ilut evaluates interpolated lookup tables fit offline from
// radiative-transfer simulations. Each table maps an atmospheric/geometric
// state to a per-band linear correction (gain, offset).
package ilut

import (
	"fmt"
	"math"

	"atmcorr-platform/internal/models"
)

// NumAxes is the dimensionality of the lookup space.
const NumAxes = 5

// AxisNames lists the table axes in storage order.
var AxisNames = [NumAxes]string{"solar_zenith", "water_vapor", "ozone", "aot", "altitude"}

// LookupPoint is one evaluation point in the table's input space.
type LookupPoint struct {
	SolarZenithDeg float64
	WaterVapor     float64
	Ozone          float64
	AOT            float64
	AltitudeKM     float64
}

func (p LookupPoint) coords() [NumAxes]float64 {
	return [NumAxes]float64{p.SolarZenithDeg, p.WaterVapor, p.Ozone, p.AOT, p.AltitudeKM}
}

// Evaluator is an opaque per-band lookup table. Implementations are pure
// functions of their inputs: no mutable state is exposed to callers, so a
// single Evaluator may be shared across goroutines.
type Evaluator interface {
	// Evaluate returns the (gain, offset) pair at the given point, or an
	// OutOfDomainError when the point lies outside the fitted grid.
	Evaluate(p LookupPoint) (gain, offset float64, err error)
}

// GridTable is a regular five-axis grid with multilinear interpolation.
// Gain and Offset are flat arrays in C order: the first axis varies slowest.
type GridTable struct {
	Axes   [NumAxes][]float64
	Gain   []float64
	Offset []float64
}

// Validate checks grid shape and axis monotonicity.
func (t *GridTable) Validate() error {
	size := 1
	for i, axis := range t.Axes {
		if len(axis) < 2 {
			return fmt.Errorf("axis %s must have at least 2 knots, got %d", AxisNames[i], len(axis))
		}
		for j := 1; j < len(axis); j++ {
			if axis[j] <= axis[j-1] {
				return fmt.Errorf("axis %s knots must be strictly increasing", AxisNames[i])
			}
		}
		size *= len(axis)
	}
	if len(t.Gain) != size {
		return fmt.Errorf("gain array has %d values, grid needs %d", len(t.Gain), size)
	}
	if len(t.Offset) != size {
		return fmt.Errorf("offset array has %d values, grid needs %d", len(t.Offset), size)
	}
	return nil
}

// Evaluate performs multilinear interpolation at p. Points outside the grid
// on any axis return an OutOfDomainError: the fit says nothing about the
// response out there, and extrapolating it would be physically meaningless.
func (t *GridTable) Evaluate(p LookupPoint) (float64, float64, error) {
	coords := p.coords()

	// Small tolerance so points sitting exactly on the outer knots, or off by
	// a rounding error, still evaluate.
	const epsilon = 1e-9

	var lower [NumAxes]int
	var frac [NumAxes]float64

	for i, axis := range t.Axes {
		x := coords[i]
		lo, hi := axis[0], axis[len(axis)-1]
		if x < lo-epsilon || x > hi+epsilon {
			return 0, 0, &models.OutOfDomainError{
				Input: AxisNames[i],
				Value: x,
				Min:   lo,
				Max:   hi,
			}
		}

		idx := len(axis) - 2
		for j := 0; j < len(axis)-1; j++ {
			if x <= axis[j+1] {
				idx = j
				break
			}
		}
		lower[i] = idx

		f := (x - axis[idx]) / (axis[idx+1] - axis[idx])
		frac[i] = math.Max(0, math.Min(1, f))
	}

	// Strides for C-order flattening.
	var strides [NumAxes]int
	stride := 1
	for i := NumAxes - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= len(t.Axes[i])
	}

	// Accumulate the 2^NumAxes cell corners.
	var gain, offset float64
	for corner := 0; corner < 1<<NumAxes; corner++ {
		weight := 1.0
		flat := 0
		for i := 0; i < NumAxes; i++ {
			if corner&(1<<i) != 0 {
				weight *= frac[i]
				flat += (lower[i] + 1) * strides[i]
			} else {
				weight *= 1 - frac[i]
				flat += lower[i] * strides[i]
			}
		}
		gain += weight * t.Gain[flat]
		offset += weight * t.Offset[flat]
	}

	return gain, offset, nil
}
