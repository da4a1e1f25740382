package errors

import "fmt"

// Revert is raised when guest code requests deliberate termination with a
// status code. It is not an infrastructure failure: callers are expected to
// detect it with errors.As and surface the code to the user.
type Revert struct {
	Code uint32
}

func (e *Revert) Error() string {
	return fmt.Sprintf("contract reverted with code %d", e.Code)
}

// Is reports whether target is a Revert with the same code.
func (e *Revert) Is(target error) bool {
	t, ok := target.(*Revert)
	return ok && e.Code == t.Code
}

// HostError carries a typed host failure across a backend trap boundary.
// Host dispatch stores the original error and raises an opaque backend
// fault; the invoke path unwraps the carrier so callers see the original
// error instead of the backend's trap text.
type HostError struct {
	Function string
	Err      error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host function %s failed: %v", e.Function, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}
