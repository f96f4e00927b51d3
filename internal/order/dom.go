package order

import (
	"errors"

	"github.com/bits-and-blooms/bitset"

	"edeco/internal/closure"
)

// ErrBudget is returned when path enumeration exceeds its step budget.
var ErrBudget = errors.New("order: step budget exhausted")

// Walker enumerates simple paths over an ordered view. A pathological graph
// has exponentially many of them, so every walk draws from a shared budget.
type Walker struct {
	g     *closure.Graph
	rev   EdgeSet
	max   int
	steps int
}

// NewWalker returns a walker over g with reverse edges rev. maxSteps <= 0
// disables the budget.
func NewWalker(g *closure.Graph, rev EdgeSet, maxSteps int) *Walker {
	return &Walker{g: g, rev: rev, max: maxSteps}
}

// Steps reports how much of the budget has been used.
func (w *Walker) Steps() int { return w.steps }

// Charge draws one step from the budget.
func (w *Walker) Charge() error {
	w.steps++
	if w.max > 0 && w.steps > w.max {
		return ErrBudget
	}
	return nil
}

// Reset swaps in a new reverse edge set, keeping the step count.
func (w *Walker) Reset(rev EdgeSet) { w.rev = rev }

func (w *Walker) Next(n closure.ID) []closure.ID { return Next(w.g, w.rev, n) }
func (w *Walker) Prev(n closure.ID) []closure.ID { return Prev(w.g, w.rev, n) }

// Paths calls fn for every simple path from -> to over next. Paths that
// dead-end before reaching to are not reported. fn returning false stops
// the walk.
func (w *Walker) Paths(from, to closure.ID, next func(closure.ID) []closure.ID, fn func(path []closure.ID) bool) error {
	on := bitset.New(uint(w.g.Len()))
	path := []closure.ID{from}
	on.Set(uint(from))
	type level struct {
		succs []closure.ID
		i     int
	}
	stack := []level{{succs: next(from)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.i >= len(top.succs) {
			stack = stack[:len(stack)-1]
			on.Clear(uint(path[len(path)-1]))
			path = path[:len(path)-1]
			continue
		}
		s := top.succs[top.i]
		top.i++
		if on.Test(uint(s)) {
			continue
		}
		w.steps++
		if w.max > 0 && w.steps > w.max {
			return ErrBudget
		}
		if s == to {
			full := append(append([]closure.ID(nil), path...), s)
			if !fn(full) {
				return nil
			}
			continue
		}
		path = append(path, s)
		on.Set(uint(s))
		stack = append(stack, level{succs: next(s)})
	}
	return nil
}

// dominators intersects the node sets of every path from n to limit and
// returns the members of the intersection in the order they appear on the
// first path. n itself is excluded. No path yields nil.
func (w *Walker) dominators(n, limit closure.ID, next func(closure.ID) []closure.ID) ([]closure.ID, error) {
	var common *bitset.BitSet
	var first []closure.ID
	err := w.Paths(n, limit, next, func(path []closure.ID) bool {
		set := bitset.New(uint(w.g.Len()))
		for _, x := range path[1:] {
			set.Set(uint(x))
		}
		if common == nil {
			common = set
			first = path
		} else {
			common.InPlaceIntersection(set)
		}
		return true
	})
	if err != nil || common == nil {
		return nil, err
	}
	var out []closure.ID
	for _, x := range first[1:] {
		if common.Test(uint(x)) {
			out = append(out, x)
		}
	}
	return out, nil
}

// PostDominators lists the nodes on every ordered path from n to exit,
// earliest first. exit itself is always last when any path exists.
func (w *Walker) PostDominators(n, exit closure.ID) ([]closure.ID, error) {
	return w.dominators(n, exit, w.Next)
}

// EarliestPostDominator returns the first node after n that lies on every
// ordered path from n to exit, or None when no path reaches exit.
func (w *Walker) EarliestPostDominator(n, exit closure.ID) (closure.ID, error) {
	doms, err := w.PostDominators(n, exit)
	if err != nil || len(doms) == 0 {
		return closure.None, err
	}
	return doms[0], nil
}

// PreDominators lists the nodes on every reversed ordered path from n back
// to entry, nearest first.
func (w *Walker) PreDominators(n, entry closure.ID) ([]closure.ID, error) {
	return w.dominators(n, entry, w.Prev)
}
