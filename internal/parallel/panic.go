package parallel

import "fmt"

// PanicError wraps a value recovered from a panicking job.
type PanicError struct {
	Job   int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: job %d panicked: %v", e.Job, e.Value)
}
