// Event-function adapter bridging forcemodel.SwitchingFunction (date,
// PV) to integrator.EventFunction (float64 seconds, state vector), per
// spec.md §4.4's fixed action-code translation table. Grounded on the
// teacher's waypoints.go Waypoint.Cleared()/Action() pairing, which is
// the same idea (a continuous condition plus a discrete response)
// without an integrator to drive it.
package propagation

import (
	"github.com/orbitcore/propagator/astroframe"
	"github.com/orbitcore/propagator/equinoctial"
	"github.com/orbitcore/propagator/forcemodel"
	"github.com/orbitcore/propagator/integrator"
)

type eventAdapter struct {
	sf    forcemodel.SwitchingFunction
	epoch astroframe.AbsoluteDate
	i     equinoctial.RetrogradeFactor
	frame astroframe.Frame
	mu    float64
}

func newEventAdapter(sf forcemodel.SwitchingFunction, epoch astroframe.AbsoluteDate, i equinoctial.RetrogradeFactor, frame astroframe.Frame, mu float64) *eventAdapter {
	return &eventAdapter{sf: sf, epoch: epoch, i: i, frame: frame, mu: mu}
}

func (e *eventAdapter) MaxCheckInterval() float64 {
	return e.sf.MaxCheckInterval().Seconds()
}

func (e *eventAdapter) Threshold() float64 {
	return e.sf.Threshold()
}

func (e *eventAdapter) MaxIterations() int {
	return e.sf.MaxIterations()
}

func (e *eventAdapter) pv(y []float64) astroframe.PV {
	eq := equinoctial.Equinoctial{A: y[0], Ex: y[1], Ey: y[2], Hx: y[3], Hy: y[4], Lv: y[5], I: e.i, Frame: e.frame}
	return eq.ToPVPair(e.mu)
}

func (e *eventAdapter) G(t float64, y []float64) float64 {
	return e.sf.G(e.epoch.Shift(t), e.pv(y))
}

func (e *eventAdapter) EventOccurred(t float64, y []float64) (integrator.Action, error) {
	action, err := e.sf.EventOccurred(e.epoch.Shift(t), e.pv(y))
	if err != nil {
		return integrator.ActionContinue, err
	}
	return translateAction(action), nil
}

// translateAction is the fixed table spec.md §4.4/§9 specifies:
// Continue -> Continue, Stop -> Stop, ResetDerivatives -> RecomputeF,
// ResetState -> MutateThenRecomputeF.
func translateAction(a forcemodel.Action) integrator.Action {
	switch a {
	case forcemodel.Stop:
		return integrator.ActionStop
	case forcemodel.ResetDerivatives:
		return integrator.ActionRecomputeF
	case forcemodel.ResetState:
		return integrator.ActionMutateThenRecomputeF
	default:
		return integrator.ActionContinue
	}
}

func (e *eventAdapter) ResetState(t float64, y []float64) []float64 {
	pv := e.sf.ResetState(e.epoch.Shift(t), e.pv(y))
	eq, err := equinoctial.ToEquinoctial(pv, e.mu)
	if err != nil {
		// A switching function's ResetState is expected to return a
		// physically valid PV; if it doesn't, leave the state
		// untouched rather than propagate a degenerate orbit.
		return y
	}
	out := make([]float64, len(y))
	copy(out, y)
	out[0], out[1], out[2], out[3], out[4], out[5] = eq.A, eq.Ex, eq.Ey, eq.Hx, eq.Hy, eq.Lv
	return out
}
