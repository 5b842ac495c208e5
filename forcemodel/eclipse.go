// Eclipse/umbra switching function, grounded on dynamics/waypoints.go's
// Waypoint.Cleared() style of a continuous boolean-like condition
// (here a sign-changing scalar) paired with a discrete Action, which
// is the orbital-event half of the design the teacher never needed
// (the teacher has no event-driven integrator; ReachDistance.Cleared
// is polled, not root-found). The sun direction is accepted as a
// callback rather than computed, since celestial ephemerides are an
// external collaborator outside this core's scope (spec.md §1).
package forcemodel

import (
	"math"
	"time"

	"github.com/orbitcore/propagator/astroframe"
)

// SunDirectionFunc returns the unit vector from the occulted body to
// the Sun, in the propagation's working frame, at a given date.
type SunDirectionFunc func(astroframe.AbsoluteDate) [3]float64

// EclipseModel contributes no acceleration; it exists purely to
// register a shadow entry/exit switching function using a cylindrical
// shadow approximation of the occulting body.
type EclipseModel struct {
	BodyRadius  float64
	SunDirection SunDirectionFunc
	check       time.Duration
	threshold   float64
}

// NewEclipseModel returns an eclipse model for a body of the given
// radius, using the supplied sun-direction callback.
func NewEclipseModel(bodyRadius float64, sunDir SunDirectionFunc) *EclipseModel {
	return &EclipseModel{
		BodyRadius:   bodyRadius,
		SunDirection: sunDir,
		check:        5 * time.Minute,
		threshold:    1e-6,
	}
}

// AddContribution implements forcemodel.ForceModel: eclipse detection
// contributes no dynamics, only an event.
func (*EclipseModel) AddContribution(astroframe.AbsoluteDate, astroframe.PV, float64, Accumulator) error {
	return nil
}

// SwitchingFunctions implements forcemodel.ForceModel.
func (e *EclipseModel) SwitchingFunctions() []SwitchingFunction {
	return []SwitchingFunction{e}
}

func (e *EclipseModel) MaxCheckInterval() time.Duration { return e.check }
func (e *EclipseModel) Threshold() float64              { return e.threshold }
func (e *EclipseModel) MaxIterations() int              { return 100 }

// G implements the shadow switching function: positive while the
// spacecraft is outside the occulting body's shadow cone, negative
// while inside it. The cylindrical approximation uses the angular
// separation between the anti-sun direction and the spacecraft's
// position vector, adjusted by the apparent half-angle the body
// subtends at the spacecraft's radius.
func (e *EclipseModel) G(date astroframe.AbsoluteDate, pv astroframe.PV) float64 {
	r := pv.RNorm()
	if r <= e.BodyRadius {
		return -1 // inside the body itself; treat as deep shadow
	}
	sun := e.SunDirection(date)
	cosTheta := astroframe.Dot(astroframe.Unit(pv.P), astroframe.Unit(sun))
	theta := math.Acos(clamp(cosTheta, -1, 1))
	halfAngle := math.Asin(e.BodyRadius / r)
	return (math.Pi - theta) - halfAngle
}

// EventOccurred implements forcemodel.SwitchingFunction: a shadow
// entry or exit forces a derivative recomputation (solar-radiation
// force models, if any, depend on illumination state) but never stops
// the propagation on its own.
func (e *EclipseModel) EventOccurred(astroframe.AbsoluteDate, astroframe.PV) (Action, error) {
	return ResetDerivatives, nil
}

// ResetState implements forcemodel.SwitchingFunction; eclipse
// transitions never mutate the state directly.
func (e *EclipseModel) ResetState(_ astroframe.AbsoluteDate, pv astroframe.PV) astroframe.PV {
	return pv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
