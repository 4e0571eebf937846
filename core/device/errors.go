package device

import "fmt"

// Error reports a communication or hardware failure of the load device.
// Any Error observed mid-run is treated as unsafe to continue.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("device: %s failed", e.Op)
	}
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a device Error for operation op.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
