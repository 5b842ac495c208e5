package scstate

import "fmt"

// ArgumentError reports an invalid input detected before integration
// starts. It is raised synchronously and is never captured by the
// driver's sticky error slot (see propagation.Driver).
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("scstate: invalid argument: %s", e.Reason)
}
