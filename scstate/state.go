// Package scstate defines the spacecraft state the propagator core
// carries through a propagation: an orbit, a mass, and any additional
// named scalar states, which the driver carries through unchanged
// rather than integrating them. Grounded on the teacher's
// spacecraft.go (Spacecraft.Mass, the go-kit logger construction) but
// trimmed to exactly what the core needs: waypoints, thrusters and
// EPS/cargo bookkeeping belong to a mission-design layer outside this
// propagator core (see DESIGN.md).
package scstate

import (
	"os"

	"github.com/go-kit/kit/log"

	"github.com/orbitcore/propagator/astroframe"
	"github.com/orbitcore/propagator/equinoctial"
)

// SpacecraftState is the tuple (orbit, mass, additional states) the
// driver propagates.
type SpacecraftState struct {
	Date       astroframe.AbsoluteDate
	Orbit      equinoctial.Equinoctial
	Mass       float64
	Additional map[string][]float64
}

// NewSpacecraftState validates and builds a spacecraft state. Mass
// must be strictly positive; a non-positive mass is a fatal
// ArgumentError raised before any integrator step (spec.md §4.3, S5).
func NewSpacecraftState(date astroframe.AbsoluteDate, orbit equinoctial.Equinoctial, mass float64, additional map[string][]float64) (SpacecraftState, error) {
	if !(mass > 0) {
		return SpacecraftState{}, &ArgumentError{Reason: "mass must be strictly positive"}
	}
	if additional == nil {
		additional = make(map[string][]float64)
	}
	return SpacecraftState{Date: date, Orbit: orbit, Mass: mass, Additional: additional}, nil
}

// PV returns the position-velocity pair of the orbit at this state's
// date, in the orbit's own frame.
func (s SpacecraftState) PV(mu float64) astroframe.PV {
	p, v := s.Orbit.ToPV(mu)
	return astroframe.NewPV(p, v, s.Orbit.Frame)
}

// Logger returns a go-kit logger tagged with the spacecraft's
// propagation lifecycle fields, the same construction the teacher's
// SCLogInit uses for mission-level logging.
func Logger(component string) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	l = log.With(l, "component", component, "ts", log.DefaultTimestampUTC)
	return l
}
