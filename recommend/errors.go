package recommend

import "fmt"

// InferenceError is any failure while assembling the record or running the
// model. It is reported to the caller; the service keeps serving.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
