package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"edeco/internal/closure"
)

// DOTObserver writes one numbered DOT file per structurizer event:
// <dir>/<prefix>NNN-<stage>.dot. Write errors are logged once and stop
// further output; they never reach the structurizer.
type DOTObserver struct {
	Dir    string
	Prefix string
	Theme  Theme
	Logger *zerolog.Logger

	n   int
	err error
}

// NewDOTObserver creates dir and returns an observer writing into it.
func NewDOTObserver(dir, prefix string, log *zerolog.Logger) (*DOTObserver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("render: mkdir %s: %w", dir, err)
	}
	return &DOTObserver{Dir: dir, Prefix: prefix, Theme: NASA, Logger: log}, nil
}

// Observe implements closure.Observer.
func (o *DOTObserver) Observe(ev closure.Event) {
	if o.err != nil || ev.Graph == nil {
		return
	}
	o.n++
	name := fmt.Sprintf("%s%03d-%s.dot", o.Prefix, o.n, ev.Stage)
	title := fmt.Sprintf("%s #%d", ev.Stage, o.n)
	if ev.Node != closure.None {
		title += " " + ev.Graph.Label(ev.Node)
	}
	dot := TreeDOT(ev.Graph, ev.Node, title, o.Theme)
	if err := os.WriteFile(filepath.Join(o.Dir, name), []byte(dot), 0644); err != nil {
		o.err = err
		if o.Logger != nil {
			o.Logger.Warn().Err(err).Str("dir", o.Dir).Msg("dot snapshots disabled")
		}
	}
}

// Written returns the number of files written so far.
func (o *DOTObserver) Written() int {
	if o.err != nil {
		return o.n - 1
	}
	return o.n
}

// Err returns the first write error, if any.
func (o *DOTObserver) Err() error { return o.err }
