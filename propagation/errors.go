package propagation

// PropagationError wraps a failure raised during integration: either
// a sticky error a force model or switching function returned, or one
// surfaced by the integrator itself. The driver never panics across
// the integrator boundary; every failure funnels through here.
type PropagationError struct {
	Reason string
	Cause  error
}

func (e *PropagationError) Error() string {
	if e.Cause != nil {
		return "propagation: " + e.Reason + ": " + e.Cause.Error()
	}
	return "propagation: " + e.Reason
}

func (e *PropagationError) Unwrap() error {
	return e.Cause
}

// ArgumentError reports an invalid call into the driver: a zero
// fixed-step size, a non-positive mass or non-finite initial state
// element, or a call made while the driver is already running.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return "propagation: " + e.Reason
}
