package integrator

// DenseStep carries everything needed to interpolate the solution
// anywhere within one accepted integration step: the endpoint states
// and derivatives, which is all a cubic Hermite interpolant needs.
type DenseStep struct {
	T0, T1 float64
	Y0, Y1 []float64
	F0, F1 []float64
}

// DenseOutputHandler receives every accepted step as it happens. The
// propagation driver's ephemeris container and the FixedStepNormalizer
// both implement this to consume the stepper's internal, irregular
// step sequence.
type DenseOutputHandler interface {
	HandleStep(step DenseStep) error
}

// Interpolate evaluates the cubic Hermite interpolant of this step at
// t, which must lie within [T0, T1] (or [T1, T0] for a
// negative-time-direction step). This is the same construction most
// variable-step ODE codes use for dense output (e.g. MATLAB's ode45);
// it reuses the two derivative evaluations already computed for the
// step instead of requiring extra ODEFunc calls.
func (s DenseStep) Interpolate(t float64) []float64 {
	h := s.T1 - s.T0
	theta := (t - s.T0) / h
	out := make([]float64, len(s.Y0))
	for i := range out {
		dy := s.Y1[i] - s.Y0[i]
		out[i] = (1-theta)*s.Y0[i] + theta*s.Y1[i] +
			theta*(theta-1)*((1-2*theta)*dy+(theta-1)*h*s.F0[i]+theta*h*s.F1[i])
	}
	return out
}
