package structure

import (
	"errors"
	"fmt"

	"edeco/internal/closure"
)

var ErrStructuring = errors.New("structure: cannot structurize")

// StructuringError reports a region that could not be nested. Node is the
// closure being processed when structuring stopped, Label its printable
// form. Err, when set, is the underlying cause (order.ErrBudget or a
// closure.InvalidCodeError).
type StructuringError struct {
	Node   closure.ID
	Label  string
	Reason string
	Err    error
}

func (e *StructuringError) Error() string {
	msg := "structure: " + e.Reason
	if e.Label != "" {
		msg = fmt.Sprintf("structure: %s at %s", e.Reason, e.Label)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructuringError) Is(target error) bool { return target == ErrStructuring }

func (e *StructuringError) Unwrap() error { return e.Err }
