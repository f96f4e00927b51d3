package config

import (
	"errors"
	"fmt"

	"edeco/internal/closure"
	"edeco/internal/flow"
	"edeco/internal/listing"
	"edeco/internal/order"
	"edeco/internal/structure"
)

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagBounds      DiagKind = "bounds"      // boundary finder failed
	DiagFlow        DiagKind = "flow"        // flow graph could not be built
	DiagStructuring DiagKind = "structuring" // region could not be nested
	DiagInvalidCode DiagKind = "invalid_code"
	DiagBudget      DiagKind = "budget" // step budget exhausted
	DiagParse       DiagKind = "parse"  // malformed listing line
	DiagOther       DiagKind = "error"
)

// Diag records a non-fatal issue met while processing one function.
type Diag struct {
	Addr uint64   `json:"addr"`
	Kind DiagKind `json:"kind"`
	Msg  string   `json:"msg"`
}

// KindOf classifies a pipeline error. Budget exhaustion is checked before
// the structuring family it is wrapped in.
func KindOf(err error) DiagKind {
	switch {
	case errors.Is(err, order.ErrBudget):
		return DiagBudget
	case errors.Is(err, closure.ErrInvalidCode):
		return DiagInvalidCode
	case errors.Is(err, structure.ErrStructuring):
		return DiagStructuring
	case errors.Is(err, flow.ErrUnsupportedFlow):
		return DiagFlow
	case errors.Is(err, flow.ErrBounds):
		return DiagBounds
	case errors.Is(err, listing.ErrParse):
		return DiagParse
	}
	return DiagOther
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Addr, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(addr uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Addr: addr, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(addr uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Addr: addr, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode string

const (
	ModeStrict     Mode = "strict"      // first failing function fails the command
	ModeBestEffort Mode = "best-effort" // record a Diag and continue
)

// DefaultMaxSteps is the default path-enumeration budget per function.
const DefaultMaxSteps = 1 << 20

// EffectiveMaxSteps resolves the zero value to DefaultMaxSteps. Negative
// values mean unlimited and are passed through.
func (c Config) EffectiveMaxSteps() int {
	if c.MaxSteps == 0 {
		return DefaultMaxSteps
	}
	return c.MaxSteps
}
