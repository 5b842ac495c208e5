// Zonal harmonic perturbations (J2, J3), grounded on the teacher's
// perturbations.go Perturb(Cartesian) branch, generalized into a
// standalone ForceModel instead of a method switched on Propagator.
package forcemodel

import (
	"github.com/orbitcore/propagator/astroframe"
)

// ZonalModel contributes the J2 (and optionally J3) oblateness
// perturbation of a central body, expressed directly in the
// propagation's inertial frame.
type ZonalModel struct {
	Mu           float64 // central body gravitational parameter, m^3/s^2
	BodyRadius   float64 // equatorial radius, meters
	J2           float64
	J3           float64 // zero to disable the J3 term
}

// NewZonalModel returns a J2-only zonal model; set J3 directly on the
// returned value to include the third-order term.
func NewZonalModel(mu, bodyRadius, j2 float64) *ZonalModel {
	return &ZonalModel{Mu: mu, BodyRadius: bodyRadius, J2: j2}
}

// AddContribution implements forcemodel.ForceModel.
func (z *ZonalModel) AddContribution(_ astroframe.AbsoluteDate, pv astroframe.PV, _ float64, acc Accumulator) error {
	x, y, zc := pv.P[0], pv.P[1], pv.P[2]
	r := pv.RNorm()
	if r == 0 {
		return nil
	}
	r2 := r * r

	factor2 := -1.5 * z.Mu * z.J2 * z.BodyRadius * z.BodyRadius / (r2 * r2 * r)
	zRatio := 5 * zc * zc / r2
	a := [3]float64{
		factor2 * x * (1 - zRatio),
		factor2 * y * (1 - zRatio),
		factor2 * zc * (3 - zRatio),
	}

	if z.J3 != 0 {
		r3 := z.BodyRadius * z.BodyRadius * z.BodyRadius
		factor3 := -2.5 * z.Mu * z.J3 * r3 / (r2 * r2 * r2 * r)
		z2 := zc * zc
		a[0] += factor3 * x * (3*zc - 7*z2*zc/r2)
		a[1] += factor3 * y * (3*zc - 7*z2*zc/r2)
		a[2] += factor3 * (6*z2 - 7*z2*z2/r2 - 0.6*r2)
	}

	acc.AddAcceleration(Inertial, a)
	return nil
}

// SwitchingFunctions implements forcemodel.ForceModel: zonal
// harmonics are a smooth continuous perturbation with no discrete
// events.
func (z *ZonalModel) SwitchingFunctions() []SwitchingFunction {
	return nil
}
