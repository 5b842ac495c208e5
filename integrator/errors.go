package integrator

import "fmt"

// IntegratorError reports a failure internal to the step-size control
// or event machinery (as opposed to ConvergenceError, which reports a
// root-finding failure during event localization).
type IntegratorError struct {
	Reason string
}

func (e *IntegratorError) Error() string {
	return "integrator: " + e.Reason
}

// ConvergenceError reports that event bisection exhausted its
// iteration budget without reaching a point where |G| is within the
// switching function's threshold. Grounded on tools.go's Lambert-solver
// "did not converge after N iterations" idiom in the teacher repo.
type ConvergenceError struct {
	Operation  string
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("integrator: %s did not converge after %d iterations", e.Operation, e.Iterations)
}
