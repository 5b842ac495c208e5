// Package ephemeris stores the dense-output history of a propagation
// run and answers random-access state queries anywhere within the
// interval it covers, without re-integrating. Grounded on mission.go's
// MissionState/history idiom in the teacher repo (there, a slice of
// states is appended every fixed step and streamed out by
// export.go:StreamStates); this generalizes that history into a
// continuously-interpolable container instead of a fixed-grid log,
// per spec.md §4.6.
package ephemeris

import (
	"sort"

	"github.com/orbitcore/propagator/astroframe"
	"github.com/orbitcore/propagator/equinoctial"
	"github.com/orbitcore/propagator/integrator"
	"github.com/orbitcore/propagator/scstate"
)

// OutOfRangeError reports a query date outside [MinDate, MaxDate].
type OutOfRangeError struct {
	Requested        astroframe.AbsoluteDate
	MinDate, MaxDate astroframe.AbsoluteDate
}

func (e *OutOfRangeError) Error() string {
	return "ephemeris: date " + e.Requested.String() + " outside covered range [" + e.MinDate.String() + ", " + e.MaxDate.String() + "]"
}

// Ephemeris accumulates a propagation's dense-output steps as they
// are produced and offers Evaluate for random-access queries anywhere
// within the covered span. It implements integrator.DenseOutputHandler
// directly, so a Driver can hand it straight to
// integrator.DormandPrince54.Integrate as the step sink.
type Ephemeris struct {
	epoch   astroframe.AbsoluteDate
	i       equinoctial.RetrogradeFactor
	frame   astroframe.Frame
	mu      float64
	forward bool

	// additional carries the run's initial named additional states
	// through to every Evaluate call: the core integrates only the
	// fixed orbit/mass vector (spec.md §4.2), but spec.md §3 requires
	// additional states to survive a propagation rather than vanish.
	additional map[string][]float64

	steps []integrator.DenseStep
}

// NewEphemeris returns an empty ephemeris anchored at epoch, ready to
// receive dense-output steps via HandleStep. forward indicates the
// propagation's time direction (true for forward, false for
// backward), since MinDate/MaxDate must know how to order the
// accumulated steps either way. additional is the initial state's
// named additional states, echoed back unchanged by every Evaluate.
func NewEphemeris(epoch astroframe.AbsoluteDate, i equinoctial.RetrogradeFactor, frame astroframe.Frame, mu float64, forward bool, additional map[string][]float64) *Ephemeris {
	return &Ephemeris{epoch: epoch, i: i, frame: frame, mu: mu, forward: forward, additional: additional}
}

// HandleStep implements integrator.DenseOutputHandler.
func (e *Ephemeris) HandleStep(step integrator.DenseStep) error {
	e.steps = append(e.steps, step)
	return nil
}

// MinDate returns the earliest date this ephemeris can evaluate.
func (e *Ephemeris) MinDate() astroframe.AbsoluteDate {
	if len(e.steps) == 0 {
		return e.epoch
	}
	if e.forward {
		return e.epoch.Shift(e.steps[0].T0)
	}
	return e.epoch.Shift(e.steps[len(e.steps)-1].T1)
}

// MaxDate returns the latest date this ephemeris can evaluate.
func (e *Ephemeris) MaxDate() astroframe.AbsoluteDate {
	if len(e.steps) == 0 {
		return e.epoch
	}
	if e.forward {
		return e.epoch.Shift(e.steps[len(e.steps)-1].T1)
	}
	return e.epoch.Shift(e.steps[0].T0)
}

// Evaluate returns the spacecraft state at date, interpolated from the
// step whose span contains it. Evaluation is idempotent: calling it
// twice with the same date returns bit-identical results, since it
// only ever reads the stored steps (spec.md §8, ephemeris idempotence).
func (e *Ephemeris) Evaluate(date astroframe.AbsoluteDate) (scstate.SpacecraftState, error) {
	if len(e.steps) == 0 {
		return scstate.SpacecraftState{}, &OutOfRangeError{Requested: date, MinDate: e.epoch, MaxDate: e.epoch}
	}
	minDate, maxDate := e.MinDate(), e.MaxDate()
	if date.Before(minDate) || date.After(maxDate) {
		return scstate.SpacecraftState{}, &OutOfRangeError{Requested: date, MinDate: minDate, MaxDate: maxDate}
	}

	t := date.Sub(e.epoch)
	idx := e.findStep(t)
	y := e.steps[idx].Interpolate(t)

	eq := equinoctial.Equinoctial{A: y[0], Ex: y[1], Ey: y[2], Hx: y[3], Hy: y[4], Lv: y[5], I: e.i, Frame: e.frame}
	return scstate.NewSpacecraftState(date, eq, y[6], e.additional)
}

// findStep locates the index of the step whose [T0, T1] (in either
// time direction) contains t, via binary search over the monotonic
// step sequence an adaptive integrator produces.
func (e *Ephemeris) findStep(t float64) int {
	n := len(e.steps)
	if e.forward {
		idx := sort.Search(n, func(i int) bool { return e.steps[i].T1 >= t })
		if idx == n {
			idx = n - 1
		}
		return idx
	}
	idx := sort.Search(n, func(i int) bool { return e.steps[i].T1 <= t })
	if idx == n {
		idx = n - 1
	}
	return idx
}
