package integrator

import "math"

// Dormand-Prince 5(4) Butcher tableau coefficients (Dormand & Prince,
// 1980), the same coefficients used by most production adaptive RK45
// implementations. c1 = 0 and the seventh stage is the FSAL
// (first-same-as-last) evaluation: since c7 = 1 and the a7 row equals
// the 5th-order weights b, k7 at the end of an accepted step is
// reused as k1 of the next step.
const (
	c2, c3, c4, c5, c6, c7 = 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1.0, 1.0

	a21 = 1.0 / 5

	a31 = 3.0 / 40
	a32 = 9.0 / 40

	a41 = 44.0 / 45
	a42 = -56.0 / 15
	a43 = 32.0 / 9

	a51 = 19372.0 / 6561
	a52 = -25360.0 / 2187
	a53 = 64448.0 / 6561
	a54 = -212.0 / 729

	a61 = 9017.0 / 3168
	a62 = -355.0 / 33
	a63 = 46732.0 / 5247
	a64 = 49.0 / 176
	a65 = -5103.0 / 18656

	a71 = 35.0 / 384
	a73 = 500.0 / 1113
	a74 = 125.0 / 192
	a75 = -2187.0 / 6784
	a76 = 11.0 / 84

	// b is the 5th-order solution weights, identical to the a7 row
	// (the FSAL property).
	b1, b3, b4, b5, b6 = a71, a73, a74, a75, a76

	// bStar is the embedded 4th-order solution's weights, used only to
	// form the error estimate b - bStar.
	bs1 = 5179.0 / 57600
	bs3 = 7571.0 / 16695
	bs4 = 393.0 / 640
	bs5 = -92097.0 / 339200
	bs6 = 187.0 / 2100
	bs7 = 1.0 / 40
)

// DormandPrince54 is an adaptive, embedded 5(4)-order Runge-Kutta
// integrator with cubic Hermite dense output and event localization
// by bisection. Grounded on src/integrator/rk4.go's Solve loop (the
// k-buffer-reuse idiom is carried over directly) generalized from a
// fixed step to an error-controlled one, per spec.md §4.5.
type DormandPrince54 struct {
	AbsTol, RelTol   float64
	MinStep, MaxStep float64
	SafetyFactor     float64
	MaxStepAttempts  int
}

// NewDormandPrince54 returns an adaptive stepper with the given
// absolute and relative error tolerances and reasonable defaults for
// the remaining step-size control parameters.
func NewDormandPrince54(absTol, relTol float64) *DormandPrince54 {
	return &DormandPrince54{
		AbsTol:          absTol,
		RelTol:          relTol,
		MinStep:         1e-6,
		MaxStep:         math.Inf(1),
		SafetyFactor:    0.9,
		MaxStepAttempts: 100,
	}
}

// Integrate advances the ODE defined by f from (t0, y0) to tEnd,
// which may be less than t0 for backward propagation. events are
// checked and localized within every accepted step; handler, if
// non-nil, receives every accepted step in order (including steps
// truncated early by a Stop or a recompute event).
func (dp *DormandPrince54) Integrate(f ODEFunc, t0 float64, y0 []float64, tEnd float64, events []EventFunction, handler DenseOutputHandler) (float64, []float64, error) {
	dim := len(y0)
	forward := tEnd >= t0
	direction := 1.0
	if !forward {
		direction = -1.0
	}
	if t0 == tEnd {
		return t0, append([]float64{}, y0...), nil
	}

	t := t0
	y := append([]float64{}, y0...)
	k1, err := f(t, y)
	if err != nil {
		return t, y, err
	}

	lastCheck := make(map[EventFunction]float64, len(events))
	for _, ev := range events {
		lastCheck[ev] = t0
	}

	// spec.md §3: maxCheckInterval bounds how coarsely G may be sampled,
	// so no accepted step may span more than the tightest registered
	// event's interval — otherwise two roots within one step could
	// cancel the sign change and go undetected.
	maxCheck := math.Inf(1)
	for _, ev := range events {
		if mc := ev.MaxCheckInterval(); mc > 0 && mc < maxCheck {
			maxCheck = mc
		}
	}

	h := dp.initialStep(t, tEnd, direction)
	if !math.IsInf(maxCheck, 0) && math.Abs(h) > maxCheck {
		h = direction * maxCheck
	}

	for (forward && t < tEnd) || (!forward && t > tEnd) {
		if !math.IsInf(maxCheck, 0) && math.Abs(h) > maxCheck {
			h = direction * maxCheck
		}
		if forward && t+h > tEnd {
			h = tEnd - t
		} else if !forward && t+h < tEnd {
			h = tEnd - t
		}

		var y5, y4, k7 []float64
		hUsed := h
		accepted := false
		for attempt := 0; attempt < dp.MaxStepAttempts; attempt++ {
			y5, y4, k7, err = dp.trialStep(f, t, y, k1, h)
			if err != nil {
				return t, y, err
			}
			errNorm := dp.errorNorm(y, y5, y4, dim)
			factor := dp.stepFactor(errNorm)
			if errNorm <= 1 {
				accepted = true
				hUsed = h
				h *= factor
				break
			}
			h *= factor
			if math.Abs(h) < dp.MinStep {
				return t, y, &IntegratorError{Reason: "step size underflow below MinStep"}
			}
		}
		if !accepted {
			return t, y, &IntegratorError{Reason: "step rejected repeatedly without converging within MaxStepAttempts"}
		}

		step := DenseStep{T0: t, T1: t + hUsed, Y0: y, Y1: y5, F0: k1, F1: k7}

		truncT, truncY, truncF, fired, evErr := dp.checkEvents(step, events, lastCheck, f)
		if evErr != nil {
			return t, y, evErr
		}

		if handler != nil {
			emit := step
			if fired {
				emit = DenseStep{T0: step.T0, T1: truncT, Y0: step.Y0, Y1: truncY, F0: step.F0, F1: truncF}
			}
			if err := handler.HandleStep(emit); err != nil {
				return t, y, err
			}
		}

		if fired {
			_, stop, newT, newY, newF, err := dp.resolveEvent(events, truncT, truncY, truncF, f)
			if err != nil {
				return t, y, err
			}
			t, y, k1 = newT, newY, newF
			if stop {
				return t, y, nil
			}
			continue
		}

		t = step.T1
		y = y5
		k1 = k7
	}

	return t, y, nil
}

func (dp *DormandPrince54) initialStep(t0, tEnd, direction float64) float64 {
	span := math.Abs(tEnd - t0)
	guess := span / 100
	if guess == 0 {
		guess = 1
	}
	if !math.IsInf(dp.MaxStep, 0) && guess > dp.MaxStep {
		guess = dp.MaxStep
	}
	if guess < dp.MinStep {
		guess = dp.MinStep
	}
	return direction * guess
}

// trialStep computes the six additional stages and the 5th/4th order
// solution estimates for a candidate step h starting at (t, y) with
// precomputed k1.
func (dp *DormandPrince54) trialStep(f ODEFunc, t float64, y, k1 []float64, h float64) (y5, y4, k7 []float64, err error) {
	dim := len(y)
	tmp := make([]float64, dim)

	for i := range tmp {
		tmp[i] = y[i] + h*a21*k1[i]
	}
	k2, err := f(t+c2*h, tmp)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range tmp {
		tmp[i] = y[i] + h*(a31*k1[i]+a32*k2[i])
	}
	k3, err := f(t+c3*h, tmp)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range tmp {
		tmp[i] = y[i] + h*(a41*k1[i]+a42*k2[i]+a43*k3[i])
	}
	k4, err := f(t+c4*h, tmp)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range tmp {
		tmp[i] = y[i] + h*(a51*k1[i]+a52*k2[i]+a53*k3[i]+a54*k4[i])
	}
	k5, err := f(t+c5*h, tmp)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range tmp {
		tmp[i] = y[i] + h*(a61*k1[i]+a62*k2[i]+a63*k3[i]+a64*k4[i]+a65*k5[i])
	}
	k6, err := f(t+c6*h, tmp)
	if err != nil {
		return nil, nil, nil, err
	}

	y5 = make([]float64, dim)
	for i := range y5 {
		y5[i] = y[i] + h*(a71*k1[i]+a73*k3[i]+a74*k4[i]+a75*k5[i]+a76*k6[i])
	}
	k7, err = f(t+c7*h, y5)
	if err != nil {
		return nil, nil, nil, err
	}

	y4 = make([]float64, dim)
	for i := range y4 {
		y4[i] = y[i] + h*(bs1*k1[i]+bs3*k3[i]+bs4*k4[i]+bs5*k5[i]+bs6*k6[i]+bs7*k7[i])
	}

	return y5, y4, k7, nil
}

func (dp *DormandPrince54) errorNorm(y0, y5, y4 []float64, dim int) float64 {
	sum := 0.0
	for i := 0; i < dim; i++ {
		scale := dp.AbsTol + dp.RelTol*math.Max(math.Abs(y0[i]), math.Abs(y5[i]))
		if scale == 0 {
			scale = dp.AbsTol
		}
		if scale == 0 {
			scale = 1
		}
		e := (y5[i] - y4[i]) / scale
		sum += e * e
	}
	return math.Sqrt(sum / float64(dim))
}

func (dp *DormandPrince54) stepFactor(errNorm float64) float64 {
	if errNorm == 0 {
		return 5
	}
	factor := dp.SafetyFactor * math.Pow(errNorm, -0.2)
	if factor < 0.1 {
		factor = 0.1
	}
	if factor > 5 {
		factor = 5
	}
	return factor
}

// checkEvents scans every registered event against the just-completed
// step and returns the earliest localized root, if any fired.
func (dp *DormandPrince54) checkEvents(step DenseStep, events []EventFunction, lastCheck map[EventFunction]float64, f ODEFunc) (t float64, y, fy []float64, fired bool, err error) {
	earliestT := math.NaN()
	var earliestEv EventFunction
	for _, ev := range events {
		g0 := ev.G(step.T0, step.Y0)
		g1 := ev.G(step.T1, step.Y1)
		if g0 == 0 && step.T0 == lastCheck[ev] {
			// avoid re-triggering on the exact point an earlier
			// iteration already resolved.
			continue
		}
		if !signChange(g0, g1) {
			continue
		}
		root, err := dp.bisect(step, ev)
		if err != nil {
			return 0, nil, nil, false, err
		}
		if math.IsNaN(earliestT) || (step.T1 >= step.T0 && root < earliestT) || (step.T1 < step.T0 && root > earliestT) {
			earliestT, earliestEv = root, ev
		}
	}
	if earliestEv == nil {
		return 0, nil, nil, false, nil
	}
	y = step.Interpolate(earliestT)
	fy, err = f(earliestT, y)
	if err != nil {
		return 0, nil, nil, false, err
	}
	lastCheck[earliestEv] = earliestT
	return earliestT, y, fy, true, nil
}

func (dp *DormandPrince54) resolveEvent(events []EventFunction, t float64, y, fy []float64, f ODEFunc) (Action, bool, float64, []float64, []float64, error) {
	for _, ev := range events {
		g := ev.G(t, y)
		if math.Abs(g) > ev.Threshold()*10 {
			continue
		}
		action, err := ev.EventOccurred(t, y)
		if err != nil {
			return action, false, t, y, fy, err
		}
		switch action {
		case ActionStop:
			return action, true, t, y, fy, nil
		case ActionMutateThenRecomputeF:
			newY := ev.ResetState(t, y)
			newF, err := f(t, newY)
			if err != nil {
				return action, false, t, newY, fy, err
			}
			return action, false, t, newY, newF, nil
		case ActionRecomputeF:
			newF, err := f(t, y)
			if err != nil {
				return action, false, t, y, fy, err
			}
			return action, false, t, y, newF, nil
		default: // ActionContinue
			return action, false, t, y, fy, nil
		}
	}
	return ActionContinue, false, t, y, fy, nil
}

// bisect localizes the root of ev.G within step by bisection on the
// step's Hermite interpolant, per spec.md §4.5 (bisection, not a
// higher-order root finder, since G is only guaranteed continuous,
// not smooth, across a force model's own discontinuities).
func (dp *DormandPrince54) bisect(step DenseStep, ev EventFunction) (float64, error) {
	lo, hi := step.T0, step.T1
	gLo := ev.G(lo, step.Y0)
	maxIter := ev.MaxIterations()
	if maxIter <= 0 {
		maxIter = 100
	}
	threshold := ev.Threshold()
	for i := 0; i < maxIter; i++ {
		mid := lo + (hi-lo)/2
		yMid := step.Interpolate(mid)
		gMid := ev.G(mid, yMid)
		if math.Abs(gMid) <= threshold {
			return mid, nil
		}
		if signChange(gLo, gMid) {
			hi = mid
		} else {
			lo, gLo = mid, gMid
		}
	}
	return 0, &ConvergenceError{Operation: "event bisection", Iterations: maxIter}
}

func signChange(a, b float64) bool {
	if a == 0 || b == 0 {
		return a != b
	}
	return (a < 0) != (b < 0)
}
