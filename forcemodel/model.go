// Package forcemodel defines the capability interface perturbing
// forces implement to plug into the propagator core, plus the
// write-only accumulator they populate. The teacher repo dispatches
// perturbations through a single closed struct (perturbations.go's
// Perturbations.Perturb, switched on Propagator method); spec.md §9
// asks for that inheritance-shaped dispatch to be replaced with a
// capability interface and a tagged sum for the contribution frame,
// which is what ForceModel/LocalFrame/Accumulator below do.
package forcemodel

import (
	"time"

	"github.com/orbitcore/propagator/astroframe"
)

// LocalFrame tags which local frame an acceleration contribution is
// expressed in. This is the tagged sum spec.md §9 asks for in place of
// per-frame subclasses.
type LocalFrame uint8

const (
	// Inertial accelerations are expressed directly in the
	// propagation's working frame.
	Inertial LocalFrame = iota
	// TNW: T along velocity, N = W x T, W along orbital angular
	// momentum.
	TNW
	// QSW: Q radial outward, S in-plane perpendicular (prograde
	// side), W cross-track. Also known as RSW.
	QSW
)

func (f LocalFrame) String() string {
	switch f {
	case Inertial:
		return "inertial"
	case TNW:
		return "TNW"
	case QSW:
		return "QSW"
	default:
		return "unknown"
	}
}

// Accumulator is the write-only interface a ForceModel populates
// during one derivative evaluation. It is reset by the driver at the
// start of each evaluation and finalized with the Kepler contribution
// after all force models have contributed (spec.md §3).
type Accumulator interface {
	// AddAcceleration accepts a 3-vector acceleration expressed in the
	// declared local frame.
	AddAcceleration(frame LocalFrame, a [3]float64)
	// AddMassRate adds to the mass derivative, in kg/s (negative for
	// depletion).
	AddMassRate(dmdt float64)
	// AddAdditionalStateRate adds a named additional-state derivative.
	// Additional states are carried along but not coupled to the
	// dynamics by the core (spec.md §3).
	AddAdditionalStateRate(name string, d []float64)
}

// ForceModel is the capability interface a perturbing force
// implements. Force models are borrowed, non-owning references for
// the duration of one propagation call (spec.md §3, Ownership).
type ForceModel interface {
	// AddContribution is called once per integrator derivative
	// evaluation. It must not retain pv or acc beyond the call.
	AddContribution(date astroframe.AbsoluteDate, pv astroframe.PV, mass float64, acc Accumulator) error
	// SwitchingFunctions returns the event functions this force model
	// registers with the integrator, or nil if it has none.
	SwitchingFunctions() []SwitchingFunction
}

// Action is the orbital-event action a SwitchingFunction's
// EventOccurred callback returns; see spec.md §3 and §9 for the fixed
// translation into the integrator's own action codes.
type Action uint8

const (
	// Continue advances the integration with no side effect.
	Continue Action = iota
	// Stop terminates the integration cleanly at the event date.
	Stop
	// ResetDerivatives forces recomputation of yDot without changing y.
	ResetDerivatives
	// ResetState replaces y through ResetState's mutator.
	ResetState
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case ResetDerivatives:
		return "reset-derivatives"
	case ResetState:
		return "reset-state"
	default:
		return "unknown"
	}
}

// SwitchingFunction is a continuous scalar function of date and PV,
// plus the root-finding policy the integrator needs to locate its
// sign changes (spec.md §3).
type SwitchingFunction interface {
	// MaxCheckInterval bounds how far apart in time the integrator may
	// sample G before it risks missing a sign change.
	MaxCheckInterval() time.Duration
	// Threshold is the convergence tolerance for root location.
	Threshold() float64
	// MaxIterations bounds the bisection/root-finding budget.
	MaxIterations() int
	// G is the switching function itself.
	G(date astroframe.AbsoluteDate, pv astroframe.PV) float64
	// EventOccurred is called once a root has been located to within
	// Threshold.
	EventOccurred(date astroframe.AbsoluteDate, pv astroframe.PV) (Action, error)
	// ResetState is only invoked when EventOccurred returned
	// ResetState; it returns the replacement PV.
	ResetState(date astroframe.AbsoluteDate, pv astroframe.PV) astroframe.PV
}
