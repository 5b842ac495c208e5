// Package integrator provides a generic, capability-interface-based
// first-order ODE solver: an adaptive embedded Runge-Kutta stepper
// with dense (Hermite) output and event/switching-function detection,
// plus a fixed-step resampling layer over any variable-step
// integrator.
//
// Grounded on src/integrator/integrable.go and src/integrator/rk4.go
// in the teacher repo, which define a fixed-step-only Integrable
// interface with no adaptivity, no dense output, and no events. This
// package keeps that interface's shape (state-vector-in,
// derivative-vector-out) but generalizes the stepper itself.
package integrator

// ODEFunc evaluates dy/dt at (t, y), writing into a freshly allocated
// slice of the same length as y. An error aborts the current step;
// the caller (propagation.Driver) is responsible for turning it into
// a sticky propagation failure.
type ODEFunc func(t float64, y []float64) ([]float64, error)

// Action is the disposition an EventFunction returns once its root
// has been localized. The four values are a direct generalization of
// the teacher's waypoints.go Waypoint.Action() (Cleared()/ReachXXX),
// which only ever meant "do something, then keep going" — this adds
// the two derivative-recomputation variants an adaptive dense-output
// stepper needs to resume cleanly across a discontinuity.
type Action uint8

const (
	// ActionContinue: the event fired but nothing about the ODE
	// changed; the step is accepted as-is and integration continues
	// past the root unmodified.
	ActionContinue Action = iota
	// ActionStop halts integration at the event's root.
	ActionStop
	// ActionRecomputeF re-evaluates the derivative at the event's root
	// without mutating the state (a force model's applicability
	// changed, e.g. a shadow crossing).
	ActionRecomputeF
	// ActionMutateThenRecomputeF replaces the state at the event's
	// root via ResetState, then re-evaluates the derivative (e.g. a
	// maneuver's thrust direction switches discontinuously).
	ActionMutateThenRecomputeF
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionStop:
		return "Stop"
	case ActionRecomputeF:
		return "RecomputeF"
	case ActionMutateThenRecomputeF:
		return "MutateThenRecomputeF"
	default:
		return "Unknown"
	}
}

// EventFunction is the integrator-level adaptation of
// forcemodel.SwitchingFunction: a scalar function of (t, y) whose
// sign change the stepper locates by bisection within an accepted
// step, without requiring the integrator package to know anything
// about orbital mechanics.
type EventFunction interface {
	// MaxCheckInterval bounds, in integrator time units, how coarse the
	// step can get before the stepper forces a check even without a
	// detected sign change (a fast event could otherwise hide inside a
	// single large accepted step).
	MaxCheckInterval() float64
	// Threshold is the convergence bound on |G| for bisection.
	Threshold() float64
	// MaxIterations bounds the bisection loop.
	MaxIterations() int
	// G is the switching function itself; a sign change between two
	// evaluations brackets a root.
	G(t float64, y []float64) float64
	// EventOccurred is called once the root is localized to within
	// Threshold, and returns what the stepper should do next.
	EventOccurred(t float64, y []float64) (Action, error)
	// ResetState returns the (possibly mutated) state to resume
	// integration from; called only when EventOccurred returned
	// ActionMutateThenRecomputeF.
	ResetState(t float64, y []float64) []float64
}
