// Package propagation implements the propagation driver: the state
// machine that drives a DormandPrince54 adaptive integrator across a
// spacecraft's equinoctial state vector, funneling force-model
// contributions through a gauss.Assembler each derivative evaluation
// and bridging switching functions into integrator events.
//
// Grounded on mission.go's Mission type in the teacher repo — the
// struct that owned the force-accumulation loop and drove the
// teacher's fixed-step RK4 — generalized to drive the adaptive,
// event-aware stepper in package integrator instead.
package propagation

import (
	"math"

	kitlog "github.com/go-kit/kit/log"

	"github.com/orbitcore/propagator/astroframe"
	"github.com/orbitcore/propagator/ephemeris"
	"github.com/orbitcore/propagator/equinoctial"
	"github.com/orbitcore/propagator/forcemodel"
	"github.com/orbitcore/propagator/gauss"
	"github.com/orbitcore/propagator/integrator"
	"github.com/orbitcore/propagator/scstate"
)

// State is the driver's lifecycle state machine (spec.md §4.3):
// Idle before the first Propagate* call and again once a call has
// returned, Running for the duration of a call, Terminal while a
// finished call (successful or not) records and logs its outcome,
// after which the driver returns to Idle.
type State uint8

const (
	Idle State = iota
	Running
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Driver owns the force model list and the adaptive stepper
// configuration for one propagator core instance. Force models are
// borrowed references (spec.md §3, Ownership); the driver never
// mutates them, and keeps them registered until RemoveAllForceModels.
type Driver struct {
	Mu      float64
	Stepper *integrator.DormandPrince54

	forceModels []forcemodel.ForceModel
	state       State
	err         error
	logger      kitlog.Logger
}

// NewDriver returns a driver for the given gravitational parameter,
// using the supplied adaptive stepper (its tolerances and step-size
// bounds are the caller's to configure). Lifecycle events (start, stop,
// sticky-error capture) are logged through the same go-kit logfmt
// construction as scstate.Logger; use SetLogger to redirect it.
func NewDriver(mu float64, stepper *integrator.DormandPrince54) *Driver {
	return &Driver{Mu: mu, Stepper: stepper, state: Idle, logger: scstate.Logger("propagation.driver")}
}

// SetLogger replaces the driver's lifecycle logger.
func (d *Driver) SetLogger(logger kitlog.Logger) {
	d.logger = logger
}

// AddForceModel registers a force model to contribute during every
// subsequent Propagate* call.
func (d *Driver) AddForceModel(fm forcemodel.ForceModel) {
	d.forceModels = append(d.forceModels, fm)
}

// RemoveAllForceModels clears the registered force model list,
// reverting to pure two-body (Keplerian) dynamics.
func (d *Driver) RemoveAllForceModels() {
	d.forceModels = nil
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Err returns the sticky error from the most recent Propagate* call,
// if it failed.
func (d *Driver) Err() error {
	return d.err
}

func (d *Driver) beginRun() error {
	if d.state == Running {
		return &ArgumentError{Reason: "propagation already running on this driver"}
	}
	d.state = Running
	d.err = nil
	if d.logger != nil {
		d.logger.Log("event", "propagation_start", "forceModels", len(d.forceModels))
	}
	return nil
}

func (d *Driver) endRun(err error) error {
	d.state = Terminal
	d.err = err
	if d.logger != nil {
		if err != nil {
			d.logger.Log("event", "propagation_error", "err", err)
		} else {
			d.logger.Log("event", "propagation_stop")
		}
	}
	d.state = Idle
	return err
}

func stateVector(s scstate.SpacecraftState) []float64 {
	return []float64{s.Orbit.A, s.Orbit.Ex, s.Orbit.Ey, s.Orbit.Hx, s.Orbit.Hy, s.Orbit.Lv, s.Mass}
}

// validateInitial enforces spec.md §4.3's entry precondition
// (initial.Mass > 0) as an ArgumentError raised before any integrator
// step, regardless of how initial was built. scstate.NewSpacecraftState
// already rejects a non-positive mass, but SpacecraftState's fields are
// all exported, so a caller can construct one with a struct literal and
// reach the driver without going through that constructor; the mass
// check at derivativeFunc's first evaluation is too late; it raises a
// PropagationError mid-integration rather than rejecting the call
// up front. A non-finite element anywhere in the seven-vector would
// otherwise reach the integrator too and fail there just as late.
func validateInitial(initial scstate.SpacecraftState) error {
	if !(initial.Mass > 0) {
		return &ArgumentError{Reason: "initial spacecraft mass must be strictly positive"}
	}
	for _, x := range stateVector(initial) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &ArgumentError{Reason: "initial spacecraft state contains a non-finite element"}
		}
	}
	return nil
}

func (d *Driver) derivativeFunc(epoch astroframe.AbsoluteDate, i equinoctial.RetrogradeFactor, frame astroframe.Frame) integrator.ODEFunc {
	return func(t float64, y []float64) ([]float64, error) {
		if y[6] <= 0 {
			return nil, &PropagationError{Reason: "spacecraft mass depleted mid-propagation"}
		}
		eq := equinoctial.Equinoctial{A: y[0], Ex: y[1], Ey: y[2], Hx: y[3], Hy: y[4], Lv: y[5], I: i, Frame: frame}
		if !eq.IsElliptical() {
			return nil, &PropagationError{Reason: "state left the bound-orbit regime this core supports"}
		}

		asm := gauss.NewAssembler(eq, y[6], d.Mu)
		date := epoch.Shift(t)
		pv := asm.PV()

		for _, fm := range d.forceModels {
			if err := fm.AddContribution(date, pv, y[6], asm); err != nil {
				return nil, &PropagationError{Reason: "force model contribution failed", Cause: err}
			}
		}
		asm.AddKeplerContribution()
		if err := asm.Err(); err != nil {
			return nil, &PropagationError{Reason: "accumulator reported a non-finite contribution", Cause: err}
		}

		deriv, err := asm.Derivatives()
		if err != nil {
			return nil, &PropagationError{Reason: "derivative assembly failed", Cause: err}
		}
		return deriv[:], nil
	}
}

func (d *Driver) eventAdapters(epoch astroframe.AbsoluteDate, i equinoctial.RetrogradeFactor, frame astroframe.Frame) []integrator.EventFunction {
	var out []integrator.EventFunction
	for _, fm := range d.forceModels {
		for _, sf := range fm.SwitchingFunctions() {
			out = append(out, newEventAdapter(sf, epoch, i, frame, d.Mu))
		}
	}
	return out
}

// PropagateTo advances initial to target and returns the spacecraft
// state there, retaining no dense-output history. Per spec.md §4.3, a
// target equal to initial's date returns initial unchanged without
// touching the integrator or the driver's state machine.
func (d *Driver) PropagateTo(initial scstate.SpacecraftState, target astroframe.AbsoluteDate) (scstate.SpacecraftState, error) {
	if target.Sub(initial.Date) == 0 {
		return initial, nil
	}
	if err := validateInitial(initial); err != nil {
		return scstate.SpacecraftState{}, err
	}
	if err := d.beginRun(); err != nil {
		return scstate.SpacecraftState{}, err
	}

	f := d.derivativeFunc(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	events := d.eventAdapters(initial.Date, initial.Orbit.I, initial.Orbit.Frame)

	tEnd := target.Sub(initial.Date)
	_, yFinal, err := d.Stepper.Integrate(f, 0, stateVector(initial), tEnd, events, nil)
	if err != nil {
		return scstate.SpacecraftState{}, d.endRun(&PropagationError{Reason: "integration failed", Cause: err})
	}

	out, err := toState(target, initial.Orbit.I, initial.Orbit.Frame, initial.Additional, yFinal)
	if err != nil {
		return scstate.SpacecraftState{}, d.endRun(err)
	}
	d.endRun(nil)
	return out, nil
}

// PropagateDuration is PropagateTo with the target expressed as a
// duration in seconds from initial's date (negative for backward
// propagation).
func (d *Driver) PropagateDuration(initial scstate.SpacecraftState, durationSeconds float64) (scstate.SpacecraftState, error) {
	return d.PropagateTo(initial, initial.Date.Shift(durationSeconds))
}

// PropagateToWithEphemeris advances initial to target exactly like
// PropagateTo, but retains the integrator's full dense-output history
// in the returned Ephemeris so any intermediate date can be queried
// afterward without re-integrating.
func (d *Driver) PropagateToWithEphemeris(initial scstate.SpacecraftState, target astroframe.AbsoluteDate) (*ephemeris.Ephemeris, error) {
	if err := validateInitial(initial); err != nil {
		return nil, err
	}
	if err := d.beginRun(); err != nil {
		return nil, err
	}

	f := d.derivativeFunc(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	events := d.eventAdapters(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	tEnd := target.Sub(initial.Date)
	eph := ephemeris.NewEphemeris(initial.Date, initial.Orbit.I, initial.Orbit.Frame, d.Mu, tEnd >= 0, initial.Additional)

	if _, _, err := d.Stepper.Integrate(f, 0, stateVector(initial), tEnd, events, eph); err != nil {
		return nil, d.endRun(&PropagationError{Reason: "integration failed", Cause: err})
	}
	d.endRun(nil)
	return eph, nil
}

// PropagateFixedStep advances initial to target and returns the
// spacecraft state resampled onto a uniform grid of the given step
// size, layering integrator.FixedStepNormalizer over the adaptive
// stepper rather than integrating with a fixed step directly
// (spec.md §4.5).
func (d *Driver) PropagateFixedStep(initial scstate.SpacecraftState, target astroframe.AbsoluteDate, stepSeconds float64) ([]scstate.SpacecraftState, error) {
	if stepSeconds == 0 {
		return nil, &ArgumentError{Reason: "stepSeconds must be non-zero"}
	}
	if err := validateInitial(initial); err != nil {
		return nil, err
	}
	if err := d.beginRun(); err != nil {
		return nil, err
	}

	f := d.derivativeFunc(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	events := d.eventAdapters(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	tEnd := target.Sub(initial.Date)

	signedStep := stepSeconds
	if (tEnd >= 0) != (stepSeconds > 0) {
		signedStep = -stepSeconds
	}

	var collector sampleCollector
	norm := integrator.NewFixedStepNormalizer(signedStep, &collector)

	tFinal, yFinal, err := d.Stepper.Integrate(f, 0, stateVector(initial), tEnd, events, norm)
	if err != nil {
		return nil, d.endRun(&PropagationError{Reason: "integration failed", Cause: err})
	}

	// spec.md §4.3: the handler always samples finalDate too, even when
	// it does not fall on the uniform Δt grid (an event may also have
	// truncated the integration short of the requested target).
	if len(collector.samples) == 0 || collector.samples[len(collector.samples)-1].t != tFinal {
		collector.samples = append(collector.samples, timedSample{t: tFinal, y: yFinal})
	}

	out := make([]scstate.SpacecraftState, 0, len(collector.samples))
	for _, s := range collector.samples {
		st, err := toState(initial.Date.Shift(s.t), initial.Orbit.I, initial.Orbit.Frame, initial.Additional, s.y)
		if err != nil {
			return nil, d.endRun(err)
		}
		out = append(out, st)
	}
	d.endRun(nil)
	return out, nil
}

// StepHandler is notified after every successful native integrator
// step (spec.md §4.3's fourth propagate form, §6's StepHandler
// contract), in contrast to PropagateFixedStep's uniform resampling.
// isLast is true exactly once, on the step that reaches target (or
// that a registered event truncated the propagation at).
type StepHandler interface {
	Handle(state scstate.SpacecraftState, isLast bool) error
}

type stepHandlerAdapter struct {
	epoch      astroframe.AbsoluteDate
	i          equinoctial.RetrogradeFactor
	frame      astroframe.Frame
	additional map[string][]float64
	sh         StepHandler
	err        error
	pending    *scstate.SpacecraftState
}

// HandleStep holds back the most recent accepted step and reports the
// one before it with isLast=false: whether a step is truly the final
// one is only known once Integrate returns (an event may still
// truncate the run short of tEnd), so the held-back final step is
// delivered once, with isLast=true, by PropagateWithHandler after
// Integrate completes.
func (a *stepHandlerAdapter) HandleStep(step integrator.DenseStep) error {
	st, err := toState(a.epoch.Shift(step.T1), a.i, a.frame, a.additional, step.Y1)
	if err != nil {
		a.err = err
		return err
	}
	if a.pending != nil {
		if err := a.sh.Handle(*a.pending, false); err != nil {
			a.err = err
			return err
		}
	}
	a.pending = &st
	return nil
}

// PropagateWithHandler advances initial to target, invoking
// handler.Handle after each native integrator step (irregular spacing,
// the integrator's own accepted-step cadence) rather than resampling
// onto a uniform grid. handler.Handle is called with isLast true on
// the step that reaches target, including one truncated early by a
// Stop event.
func (d *Driver) PropagateWithHandler(initial scstate.SpacecraftState, target astroframe.AbsoluteDate, handler StepHandler) (scstate.SpacecraftState, error) {
	if target.Sub(initial.Date) == 0 {
		return initial, nil
	}
	if err := validateInitial(initial); err != nil {
		return scstate.SpacecraftState{}, err
	}
	if err := d.beginRun(); err != nil {
		return scstate.SpacecraftState{}, err
	}

	f := d.derivativeFunc(initial.Date, initial.Orbit.I, initial.Orbit.Frame)
	events := d.eventAdapters(initial.Date, initial.Orbit.I, initial.Orbit.Frame)

	tEnd := target.Sub(initial.Date)
	adapter := &stepHandlerAdapter{epoch: initial.Date, i: initial.Orbit.I, frame: initial.Orbit.Frame, additional: initial.Additional, sh: handler}

	tFinal, yFinal, err := d.Stepper.Integrate(f, 0, stateVector(initial), tEnd, events, adapter)
	if err != nil {
		if adapter.err != nil {
			return scstate.SpacecraftState{}, d.endRun(&PropagationError{Reason: "step handler failed", Cause: adapter.err})
		}
		return scstate.SpacecraftState{}, d.endRun(&PropagationError{Reason: "integration failed", Cause: err})
	}

	out, err := toState(initial.Date.Shift(tFinal), initial.Orbit.I, initial.Orbit.Frame, initial.Additional, yFinal)
	if err != nil {
		return scstate.SpacecraftState{}, d.endRun(err)
	}
	// The last accepted step was held back by the adapter; deliver the
	// terminal state now as the single isLast=true call, regardless of
	// whether the run reached target or an event truncated it short.
	if err := handler.Handle(out, true); err != nil {
		return scstate.SpacecraftState{}, d.endRun(&PropagationError{Reason: "step handler failed", Cause: err})
	}
	d.endRun(nil)
	return out, nil
}

type timedSample struct {
	t float64
	y []float64
}

type sampleCollector struct {
	samples []timedSample
}

func (c *sampleCollector) HandleStep(step integrator.DenseStep) error {
	c.samples = append(c.samples, timedSample{t: step.T0, y: step.Y0})
	return nil
}

// toState rebuilds a SpacecraftState from the integrated seven-vector.
// additional is carried through unchanged from the run's initial state:
// the core integrates only the fixed orbit/mass vector (spec.md §4.2),
// but spec.md §3 requires named additional states to survive a
// propagation rather than being silently dropped, so whatever the
// caller supplied on entry reappears on the returned state.
func toState(date astroframe.AbsoluteDate, i equinoctial.RetrogradeFactor, frame astroframe.Frame, additional map[string][]float64, y []float64) (scstate.SpacecraftState, error) {
	eq := equinoctial.Equinoctial{A: y[0], Ex: y[1], Ey: y[2], Hx: y[3], Hy: y[4], Lv: y[5], I: i, Frame: frame}
	return scstate.NewSpacecraftState(date, eq, y[6], additional)
}
