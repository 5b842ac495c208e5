package equinoctial

import "fmt"

// OrbitError reports a degenerate or otherwise invalid orbital
// configuration detected while converting between representations.
type OrbitError struct {
	Reason string
}

func (e *OrbitError) Error() string {
	return fmt.Sprintf("equinoctial: %s", e.Reason)
}

// ConvergenceError reports that an iterative solve (Kepler's equation,
// mean/eccentric longitude conversion) exceeded its iteration budget.
type ConvergenceError struct {
	Operation  string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("equinoctial: %s did not converge after %d iterations (residual %.3e)", e.Operation, e.Iterations, e.Residual)
}
