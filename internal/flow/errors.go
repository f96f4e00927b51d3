package flow

import (
	"errors"
	"fmt"
)

var (
	ErrBounds          = errors.New("flow: function bounds")
	ErrUnsupportedFlow = errors.New("flow: unsupported flow")
)

// BoundsError reports a function that escapes its start or never
// terminates within the instruction stream.
type BoundsError struct {
	Addr   uint64
	Reason string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("flow: bounds at 0x%x: %s", e.Addr, e.Reason)
}

func (e *BoundsError) Is(target error) bool { return target == ErrBounds }

// UnsupportedFlowError reports a jump whose target is not static.
type UnsupportedFlowError struct {
	Addr uint64
	Text string
}

func (e *UnsupportedFlowError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("flow: dynamic jump at 0x%x (%s)", e.Addr, e.Text)
	}
	return fmt.Sprintf("flow: dynamic jump at 0x%x", e.Addr)
}

func (e *UnsupportedFlowError) Is(target error) bool { return target == ErrUnsupportedFlow }
