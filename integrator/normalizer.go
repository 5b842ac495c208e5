package integrator

// FixedStepNormalizer wraps a DenseOutputHandler and resamples the
// variable-width steps an adaptive integrator produces into a
// uniform grid, using each step's Hermite interpolant rather than
// re-running the ODE at the sample points. This is the layering
// spec.md §4.5 calls for: fixed-step output is a consumer of the
// adaptive stepper's dense output, never a second integration mode.
type FixedStepNormalizer struct {
	step float64
	sink DenseOutputHandler

	next    float64
	started bool
}

// NewFixedStepNormalizer returns a normalizer that forwards samples
// spaced step time units apart (matching the direction of travel; a
// negative step normalizes a backward propagation) to sink.
func NewFixedStepNormalizer(step float64, sink DenseOutputHandler) *FixedStepNormalizer {
	return &FixedStepNormalizer{step: step, sink: sink}
}

// HandleStep implements DenseOutputHandler.
func (n *FixedStepNormalizer) HandleStep(step DenseStep) error {
	if !n.started {
		n.next = step.T0
		n.started = true
	}

	forward := n.step > 0
	for (forward && n.next <= step.T1) || (!forward && n.next >= step.T1) {
		if forward && (n.next < step.T0 || n.next > step.T1) {
			break
		}
		if !forward && (n.next > step.T0 || n.next < step.T1) {
			break
		}
		sample := DenseStep{T0: n.next, T1: n.next, Y0: step.Interpolate(n.next), Y1: step.Interpolate(n.next), F0: step.F0, F1: step.F1}
		if err := n.sink.HandleStep(sample); err != nil {
			return err
		}
		n.next += n.step
	}
	return nil
}
