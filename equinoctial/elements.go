// Package equinoctial implements lossless conversion between Cartesian
// position/velocity and the equinoctial orbital element set: the
// primary element set used by the propagator core because it is
// singularity-free at zero eccentricity and zero inclination, unlike
// the classical (a,e,i,Ω,ω,ν) set the teacher repo's orbit.go works
// in. The conversion algorithms here are grounded in that file's
// Elements()/NewOrbitFromOE() structure (a named epsilon guarding the
// degenerate case, angles normalized modulo 2π) generalized to the
// equinoctial formulation; nothing here is cached.
package equinoctial

import (
	"math"
	"strconv"

	"github.com/orbitcore/propagator/astroframe"
)

// degenerateAngularMomentumRatio matches the teacher's eccentricityε
// style of named, documented epsilons rather than a bare magic
// number (orbit.go's eccentricityε/angleε/distanceε).
const degenerateAngularMomentumRatio = 1e-8

// RetrogradeFactor distinguishes prograde (I=+1) from retrograde
// (I=-1) orbits in the (hx,hy) encoding; see spec.md §3.
type RetrogradeFactor int8

const (
	// Prograde orbits: inclination in [0, pi/2].
	Prograde RetrogradeFactor = 1
	// Retrograde orbits: inclination in (pi/2, pi].
	Retrograde RetrogradeFactor = -1
)

// Equinoctial is the six-element (plus frame) orbital state the
// propagator core integrates.
type Equinoctial struct {
	A          float64 // semi-major axis, meters
	Ex, Ey     float64 // equinoctial eccentricity components
	Hx, Hy     float64 // equinoctial inclination components
	Lv         float64 // true longitude argument, radians
	I          RetrogradeFactor
	Frame      astroframe.Frame
}

// EccentricitySquared returns ex^2 + ey^2, which must stay below 1 for
// elliptical orbits (spec.md §3 invariant).
func (e Equinoctial) EccentricitySquared() float64 {
	return e.Ex*e.Ex + e.Ey*e.Ey
}

// IsElliptical reports whether A > 0 and the eccentricity invariant
// holds.
func (e Equinoctial) IsElliptical() bool {
	return e.A > 0 && e.EccentricitySquared() < 1
}

// normalizeAngle wraps an angle into (-pi, pi], the tie-break rule
// spec.md §4.1 requires before any linear combination of longitudes.
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// equinoctialFrame returns the (f, g, w) unit vectors of the
// equinoctial reference frame for the given (hx, hy, I), following
// Broucke & Cefola's construction: f and g span the orbital plane, w
// is the orbit normal. ToPV and ToEquinoctial share this basis so the
// two conversions are exact inverses of one another.
func equinoctialFrame(hx, hy float64, i RetrogradeFactor) (f, g, w [3]float64) {
	I := float64(i)
	hx2 := hx * hx
	hy2 := hy * hy
	factH := 1. / (1 + hx2 + hy2)

	f = [3]float64{
		(1 - hx2 + hy2) * factH,
		2 * hx * hy * factH,
		-2 * I * hx * factH,
	}
	g = [3]float64{
		2 * I * hx * hy * factH,
		I * (1 + hx2 - hy2) * factH,
		2 * hy * factH,
	}
	w = [3]float64{
		2 * hx * factH,
		-2 * hy * factH,
		I * (1 - hx2 - hy2) * factH,
	}
	return
}

func (e Equinoctial) frame() (f, g, w [3]float64) {
	return equinoctialFrame(e.Hx, e.Hy, e.I)
}

// String implements fmt.Stringer in the teacher's terse Orbit.String
// style.
func (e Equinoctial) String() string {
	return "equinoctial{a=" + ftoa(e.A) + " ex=" + ftoa(e.Ex) + " ey=" + ftoa(e.Ey) +
		" hx=" + ftoa(e.Hx) + " hy=" + ftoa(e.Hy) + " Lv=" + ftoa(e.Lv) + "}"
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
