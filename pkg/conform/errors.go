package conform

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned by Evaluate when the message or rules are nil.
var ErrMissingInput = errors.New("conform: message and rules are required")

// CheckInternalError wraps an error or panic raised inside a check.
type CheckInternalError struct {
	Code  string
	Err   error
	Panic bool
}

func (e *CheckInternalError) Error() string {
	if e.Panic {
		return fmt.Sprintf("check %s panicked: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("check %s failed: %v", e.Code, e.Err)
}

func (e *CheckInternalError) Unwrap() error { return e.Err }

// Finding converts the error into the FAIL finding recorded for the check.
func (e *CheckInternalError) Finding() Finding {
	return Fail(e.Code, "Check could not be completed: internal error.", map[string]any{
		"error": e.Err.Error(),
		"panic": e.Panic,
	})
}
