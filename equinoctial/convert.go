package equinoctial

import (
	"math"

	"github.com/orbitcore/propagator/astroframe"
)

// ToEquinoctial converts a Cartesian position-velocity pair to
// equinoctial elements for the given gravitational parameter mu, in
// pv's own frame. It fails with OrbitError if the angular momentum is
// too small relative to mu (a degenerate, effectively rectilinear
// trajectory) — spec.md §4.1.
func ToEquinoctial(pv astroframe.PV, mu float64) (Equinoctial, error) {
	r := pv.RNorm()
	v := pv.VNorm()
	h := pv.AngularMomentum()
	hNorm := astroframe.Norm(h)

	if hNorm < degenerateAngularMomentumRatio*math.Sqrt(mu) {
		return Equinoctial{}, &OrbitError{Reason: "degenerate rectilinear trajectory: angular momentum too small"}
	}

	a := 1 / (2/r - v*v/mu)

	var i RetrogradeFactor
	if h[2] >= 0 {
		i = Prograde
	} else {
		i = Retrograde
	}
	I := float64(i)
	denom := hNorm + I*h[2]
	hx := h[0] / denom
	hy := -h[1] / denom

	f, g, _ := equinoctialFrame(hx, hy, i)

	// Laplace-Runge-Lenz (eccentricity) vector.
	pdotv := astroframe.Dot(pv.P, pv.V)
	var eVec [3]float64
	for k := 0; k < 3; k++ {
		eVec[k] = ((v*v-mu/r)*pv.P[k] - pdotv*pv.V[k]) / mu
	}

	ex := astroframe.Dot(eVec, f)
	ey := astroframe.Dot(eVec, g)

	pf := astroframe.Dot(pv.P, f)
	pg := astroframe.Dot(pv.P, g)
	lv := normalizeAngle(math.Atan2(pg, pf))

	return Equinoctial{A: a, Ex: ex, Ey: ey, Hx: hx, Hy: hy, Lv: lv, I: i, Frame: pv.Frame}, nil
}

// ToPV reconstructs the Cartesian position and velocity of an
// equinoctial state for gravitational parameter mu. Unlike
// ToEquinoctial, this always succeeds for a valid element set: the
// true-longitude parameterization of equinoctial elements admits a
// closed form with no Kepler-equation iteration (spec.md §4.1).
func (e Equinoctial) ToPV(mu float64) (p, v [3]float64) {
	f, g, _ := e.frame()

	e2 := e.EccentricitySquared()
	semiLatus := e.A * (1 - e2)
	sinLv, cosLv := math.Sincos(e.Lv)
	r := semiLatus / (1 + e.Ex*cosLv + e.Ey*sinLv)

	X := r * cosLv
	Y := r * sinLv

	sqrtMuOverP := math.Sqrt(mu / semiLatus)
	Xdot := -sqrtMuOverP * (e.Ey + sinLv)
	Ydot := sqrtMuOverP * (e.Ex + cosLv)

	for k := 0; k < 3; k++ {
		p[k] = X*f[k] + Y*g[k]
		v[k] = Xdot*f[k] + Ydot*g[k]
	}
	return
}

// ToPVPair is a convenience wrapper returning an astroframe.PV in the
// equinoctial state's own frame.
func (e Equinoctial) ToPVPair(mu float64) astroframe.PV {
	p, v := e.ToPV(mu)
	return astroframe.NewPV(p, v, e.Frame)
}
