package structure

import (
	"github.com/rs/zerolog"

	"edeco/internal/closure"
)

// DefaultMaxSteps bounds path enumeration when Options.MaxSteps is zero.
const DefaultMaxSteps = 1 << 20

// Options controls a structuring run.
type Options struct {
	// MaxSteps caps the ordered-path steps spent on dominator queries
	// across the whole function. Zero means DefaultMaxSteps, negative
	// means unlimited.
	MaxSteps int

	Name     string           // function name, for logs
	Logger   *zerolog.Logger  // nil: no logging
	Observer closure.Observer // nil: no snapshots
}

// EffectiveMaxSteps resolves the zero value to DefaultMaxSteps.
func (o Options) EffectiveMaxSteps() int {
	switch {
	case o.MaxSteps == 0:
		return DefaultMaxSteps
	case o.MaxSteps < 0:
		return 0
	}
	return o.MaxSteps
}

func (o Options) logger() zerolog.Logger {
	l := zerolog.Nop()
	if o.Logger != nil {
		l = *o.Logger
	}
	if o.Name != "" {
		l = l.With().Str("func", o.Name).Logger()
	}
	return l
}
