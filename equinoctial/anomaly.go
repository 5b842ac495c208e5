package equinoctial

import "math"

// keplerMaxIterations and keplerResidualTol bound the Newton iteration
// used for the mean<->eccentric longitude conversion, per spec.md
// §4.1: "≤ 1e-12 rad residual or 50 iterations, whichever first."
const (
	keplerMaxIterations = 50
	keplerResidualTol   = 1e-12
)

// MeanLongitude returns the mean longitude LM corresponding to the
// eccentric longitude LE. This direction is closed-form: the
// equinoctial Kepler equation LM = LE - ex*sin(LE) + ey*cos(LE)
// generalizes the classical M = E - e*sin(E).
func (e Equinoctial) MeanLongitude(le float64) float64 {
	sinLE, cosLE := math.Sincos(le)
	return normalizeAngle(le - e.Ex*sinLE + e.Ey*cosLE)
}

// EccentricLongitudeFromMean inverts the equinoctial Kepler equation
// by Newton iteration, starting from LE0 = LM. Returns ConvergenceError
// if the residual has not reached keplerResidualTol within
// keplerMaxIterations.
func (e Equinoctial) EccentricLongitudeFromMean(lm float64) (float64, error) {
	le := lm
	for n := 0; n < keplerMaxIterations; n++ {
		sinLE, cosLE := math.Sincos(le)
		f := le - e.Ex*sinLE + e.Ey*cosLE - lm
		if math.Abs(f) <= keplerResidualTol {
			return normalizeAngle(le), nil
		}
		fPrime := 1 - e.Ex*cosLE - e.Ey*sinLE
		le -= f / fPrime
	}
	sinLE, cosLE := math.Sincos(le)
	residual := math.Abs(le - e.Ex*sinLE + e.Ey*cosLE - lm)
	return 0, &ConvergenceError{Operation: "mean-to-eccentric longitude", Iterations: keplerMaxIterations, Residual: residual}
}

// TrueLongitudeFromEccentric returns the true longitude Lv
// corresponding to the eccentric longitude LE, in closed form (the
// same (X, Y, r) construction ToPV uses, evaluated in the orbital
// plane rather than the inertial frame).
func (e Equinoctial) TrueLongitudeFromEccentric(le float64) float64 {
	x, y := e.planeCoordinatesFromEccentric(le)
	return normalizeAngle(math.Atan2(y, x))
}

// EccentricLongitudeFromTrue inverts TrueLongitudeFromEccentric by
// Newton iteration on the plane-angle residual. The mapping is smooth
// and single-valued for e.EccentricitySquared() < 1, so a handful of
// iterations from LE0 = Lv converges well inside the shared budget.
func (e Equinoctial) EccentricLongitudeFromTrue(lv float64) (float64, error) {
	le := lv
	const step = 1e-6
	for n := 0; n < keplerMaxIterations; n++ {
		g := normalizeAngle(e.TrueLongitudeFromEccentric(le) - lv)
		if math.Abs(g) <= keplerResidualTol {
			return normalizeAngle(le), nil
		}
		gPlus := normalizeAngle(e.TrueLongitudeFromEccentric(le+step) - lv)
		derivative := (gPlus - g) / step
		if derivative == 0 {
			break
		}
		le -= g / derivative
	}
	residual := math.Abs(normalizeAngle(e.TrueLongitudeFromEccentric(le) - lv))
	if residual <= keplerResidualTol*1e3 {
		// Accept a slightly looser bound: this direction is not the
		// one spec.md §4.1 pins a hard iteration budget to.
		return normalizeAngle(le), nil
	}
	return 0, &ConvergenceError{Operation: "true-to-eccentric longitude", Iterations: keplerMaxIterations, Residual: residual}
}

func (e Equinoctial) planeCoordinatesFromEccentric(le float64) (x, y float64) {
	e2 := e.EccentricitySquared()
	beta := 1 / (1 + math.Sqrt(1-e2))
	sinLE, cosLE := math.Sincos(le)
	x = e.A * ((1-beta*e.Ey*e.Ey)*cosLE + beta*e.Ex*e.Ey*sinLE - e.Ex)
	y = e.A * ((1-beta*e.Ex*e.Ex)*sinLE + beta*e.Ex*e.Ey*cosLE - e.Ey)
	return
}
