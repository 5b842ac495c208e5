// Package gauss implements the Gauss planetary equations in
// equinoctial form: the time-derivative assembler that turns the
// Cartesian acceleration contributions force models hand to the
// Accumulator interface (package forcemodel) into the seven-element
// derivative vector {da/dt, dex/dt, dey/dt, dhx/dt, dhy/dt, dLv/dt,
// dm/dt} the propagation driver integrates.
//
// Grounded on mission.go:Func's GaussianVOP branch in the teacher
// repo (the da/dt Gauss variational equation there is reused almost
// verbatim, generalized from classical (e, ν) to equinoctial
// (ex, ey, Lv)); the remaining five equations follow the modified
// equinoctial elements variational form (Walker, Ireland & Owens
// 1985), with this module's hx/hy in the roles of Walker's k/h (see
// equinoctialFrame), extended with the retrograde factor I the
// classical "modified" set does not track. See DESIGN.md, "canonical
// acceleration basis", for why the spec's TNW-canonical wording is
// implemented as a radial/transverse/cross-track projection.
package gauss

import (
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/orbitcore/propagator/astroframe"
	"github.com/orbitcore/propagator/equinoctial"
	"github.com/orbitcore/propagator/forcemodel"
)

// DerivativeError is a sticky, non-throwing failure captured during a
// single derivative evaluation (spec.md §4.2): a non-finite
// acceleration or mass rate. The driver re-raises it after the
// integrator returns rather than panicking mid-callback.
type DerivativeError struct {
	Reason string
}

func (e *DerivativeError) Error() string {
	return "gauss: " + e.Reason
}

// Assembler implements forcemodel.Accumulator for one derivative
// evaluation. It is reset (via NewAssembler) at the start of every
// call and finalized with AddKeplerContribution by the driver once
// every registered force model has contributed.
type Assembler struct {
	eq   equinoctial.Equinoctial
	mu   float64
	mass float64

	pv astroframe.PV

	// Reusable scalars, precomputed once per evaluation.
	w, p, semiLatusRoot, s2, muP float64

	// Rotation matrices from the TNW and QSW local orbital frames to
	// the current PV's own (inertial) frame, built once per evaluation
	// by astroframe.TNWBasis/QSWBasis. AddAcceleration projects any
	// incoming frame into QSW (the assembler's canonical basis) via
	// astroframe.MxV33/MxV33T rather than hand-rolled dot products.
	tnwBasis, qswBasis *mat64.Dense

	accR, accS, accW float64 // accumulated canonical acceleration components
	accKepler        float64 // unperturbed two-body contribution to dLv/dt
	dmdt             float64
	additional       map[string][]float64

	err error
}

// NewAssembler precomputes the scalars Derivatives needs from the
// current equinoctial state and mass, and derives the current PV once
// so repeated AddAcceleration calls don't each recompute it
// (spec.md §4.2: "precompute reusable scalars").
func NewAssembler(eq equinoctial.Equinoctial, mass, mu float64) *Assembler {
	a := &Assembler{eq: eq, mu: mu, mass: mass, additional: make(map[string][]float64)}
	a.init()
	return a
}

func (a *Assembler) init() {
	e2 := a.eq.EccentricitySquared()
	a.p = a.eq.A * (1 - e2)
	sinLv, cosLv := math.Sincos(a.eq.Lv)
	a.w = 1 + a.eq.Ex*cosLv + a.eq.Ey*sinLv
	a.s2 = 1 + a.eq.Hx*a.eq.Hx + a.eq.Hy*a.eq.Hy
	if a.p > 0 {
		a.semiLatusRoot = math.Sqrt(a.p / a.mu)
		a.muP = math.Sqrt(a.mu * a.p)
	}

	p, v := a.eq.ToPV(a.mu)
	a.pv = astroframe.NewPV(p, v, a.eq.Frame)
	a.tnwBasis = astroframe.TNWBasis(a.pv)
	a.qswBasis = astroframe.QSWBasis(a.pv)
}

// PV returns the PV derived from the current equinoctial state, for
// callers (the driver, event adapters) that need it without
// recomputing the conversion.
func (a *Assembler) PV() astroframe.PV {
	return a.pv
}

// AddAcceleration implements forcemodel.Accumulator. The incoming
// vector is projected into the assembler's canonical QSW
// (radial/transverse/cross-track) basis before accumulation, so the
// Jacobian below is evaluated in a single fixed basis regardless of
// which frame the force model used. TNW and Inertial contributions are
// rotated into QSW via astroframe.TNWBasis/QSWBasis and
// astroframe.MxV33/MxV33T rather than a hand-derived flight-path-angle
// formula, so the rotation matches the TNW/QSW definitions in
// astroframe/rotation.go exactly.
func (a *Assembler) AddAcceleration(frame forcemodel.LocalFrame, acc [3]float64) {
	if !finite3(acc) {
		a.setErr("non-finite acceleration contribution")
		return
	}
	var rsw [3]float64
	switch frame {
	case forcemodel.QSW:
		rsw = acc
	case forcemodel.TNW:
		inertial := astroframe.MxV33(a.tnwBasis, acc)
		rsw = astroframe.MxV33T(a.qswBasis, inertial)
	case forcemodel.Inertial:
		rsw = astroframe.MxV33T(a.qswBasis, acc)
	default:
		a.setErr("unknown local frame")
		return
	}
	a.accR += rsw[0]
	a.accS += rsw[1]
	a.accW += rsw[2]
}

// AddMassRate implements forcemodel.Accumulator.
func (a *Assembler) AddMassRate(dmdt float64) {
	if math.IsNaN(dmdt) || math.IsInf(dmdt, 0) {
		a.setErr("non-finite mass rate contribution")
		return
	}
	a.dmdt += dmdt
}

// AddAdditionalStateRate implements forcemodel.Accumulator.
func (a *Assembler) AddAdditionalStateRate(name string, d []float64) {
	existing, ok := a.additional[name]
	if !ok {
		cp := make([]float64, len(d))
		copy(cp, d)
		a.additional[name] = cp
		return
	}
	for i := range d {
		if i < len(existing) {
			existing[i] += d[i]
		}
	}
}

// AddKeplerContribution adds the unperturbed two-body term: only
// dLv/dt gets a mean-motion contribution, all other elements are
// unaffected by pure Kepler motion (spec.md §4.2).
func (a *Assembler) AddKeplerContribution() {
	if a.p <= 0 {
		return
	}
	a.accKepler = a.muP / (a.pv.RNorm() * a.pv.RNorm())
}

// Derivatives returns the seven-element derivative vector in the
// fixed order {a, ex, ey, hx, hy, Lv, m}, or the sticky error if any
// contribution this evaluation was non-finite.
func (a *Assembler) Derivatives() ([7]float64, error) {
	if a.err != nil {
		return [7]float64{}, a.err
	}
	var out [7]float64
	if a.p <= 0 {
		return out, &DerivativeError{Reason: "non-positive semi-latus rectum"}
	}

	sinLv, cosLv := math.Sincos(a.eq.Lv)
	I := float64(a.eq.I)
	esinν := a.eq.Ex*sinLv - a.eq.Ey*cosLv

	// da/dt: the teacher's mission.go Gauss-VOP form, substituting
	// p/r = w and e*sin(nu) = ex*sinLv - ey*cosLv.
	h := a.muP
	out[0] = (2 * a.eq.A * a.eq.A / h) * (esinν*a.accR + a.w*a.accS)

	crossTerm := I*a.eq.Hy*sinLv - a.eq.Hx*cosLv
	out[1] = a.semiLatusRoot * (sinLv*a.accR + ((a.w+1)*cosLv+a.eq.Ex)*a.accS/a.w - crossTerm*a.eq.Ey*a.accW/a.w)
	out[2] = a.semiLatusRoot * (-cosLv*a.accR + ((a.w+1)*sinLv+a.eq.Ey)*a.accS/a.w + crossTerm*a.eq.Ex*a.accW/a.w)
	out[3] = a.semiLatusRoot * a.s2 * sinLv * a.accW / (2 * a.w)
	out[4] = I * a.semiLatusRoot * a.s2 * cosLv * a.accW / (2 * a.w)
	out[5] = a.accKepler + a.semiLatusRoot*crossTerm*a.accW/a.w
	out[6] = a.dmdt

	if !finite7(out) {
		return [7]float64{}, &DerivativeError{Reason: "derivative vector contains a non-finite component"}
	}
	return out, nil
}

// Additional returns the accumulated named additional-state
// derivatives.
func (a *Assembler) Additional() map[string][]float64 {
	return a.additional
}

func (a *Assembler) setErr(reason string) {
	if a.err == nil {
		a.err = &DerivativeError{Reason: reason}
	}
}

// Err returns the sticky error captured during this evaluation, if
// any.
func (a *Assembler) Err() error {
	return a.err
}

func finite3(v [3]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func finite7(v [7]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
