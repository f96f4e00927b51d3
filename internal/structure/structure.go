// Package structure nests a flat flow graph into a tree of closures.
//
// The walk follows the ordered view of each region from its entry to its
// exit. Straight runs become chain items. A branch or loop head opens a mesh
// reaching up to the earliest post-dominator, and the mesh is resolved
// recursively: to a Chain when it has a single begin, otherwise by
// collapsing mutually dominating spans and settling what is left into a
// Bulge.
package structure

import (
	"fmt"

	"github.com/rs/zerolog"

	"edeco/internal/closure"
	"edeco/internal/order"
)

// Tree is the result of structuring one function.
type Tree struct {
	Flat   *closure.Graph // input graph, untouched
	Graph  *closure.Graph // arena holding the nesting
	Root   closure.ID     // outermost Chain
	Ghosts int            // ghosts inserted during structuring
	Steps  int            // ordered-path steps spent
}

// Shape renders the nesting, see closure.Graph.Shape.
func (t *Tree) Shape() string { return t.Graph.Shape(t.Root) }

// Leaves returns the flow nodes of the tree in content order.
func (t *Tree) Leaves() []closure.ID {
	var out []closure.ID
	t.Graph.Walk(t.Root, func(id closure.ID, _ int) bool {
		if t.Graph.Kind(id) == closure.KindLeaf {
			out = append(out, id)
		}
		return true
	})
	return out
}

type structurizer struct {
	g    *closure.Graph
	w    *order.Walker
	opts Options
	log  zerolog.Logger
}

// Structurize nests flat, a graph produced by flow.Build. flat itself is
// not modified. Failure is all-or-nothing: any region that cannot be
// nested fails the whole function with a *StructuringError, or a
// *closure.InvalidCodeError when bulge bookkeeping turns out ambiguous.
func Structurize(flat *closure.Graph, opts Options) (*Tree, error) {
	g := flat.Clone()
	s := &structurizer{
		g:    g,
		w:    order.NewWalker(g, nil, opts.EffectiveMaxSteps()),
		opts: opts,
		log:  opts.logger(),
	}
	s.observe(closure.StageFlat, closure.None)

	// A node whose only successor is itself turns every edge leading to it
	// reverse, leaving no ordered path to report it from later.
	for _, n := range g.Nodes() {
		if f := g.Following(n); len(f) == 1 && f[0] == n {
			return nil, s.fail(n, "unsupported self jump", nil)
		}
	}

	ghosts := order.InsertGhosts(g)
	for _, gh := range ghosts {
		s.log.Debug().
			Strs("begin", s.labels(g.Preceding(gh))).
			Strs("end", s.labels(g.Following(gh))).
			Strs("members", []string{g.Label(gh)}).
			Msg("ghost inserted")
	}
	if len(ghosts) > 0 {
		s.observe(closure.StageGhosts, closure.None)
	}
	rev := order.MarkReverse(g, g.Start())
	fwd, err := order.ForwardOrder(g, rev, g.Start())
	if err != nil {
		return nil, s.fail(g.Start(), "no forward order", err)
	}

	// fwd holds every live node, so it doubles as the top-level member set.
	var top []closure.ID
	for _, n := range fwd {
		if !g.Sentinel(n) {
			top = append(top, n)
		}
	}
	if len(top) == 0 {
		return nil, s.fail(closure.None, "empty graph", nil)
	}
	root := g.Enclose(top)
	items, err := s.region(g.Entry(root), g.Exit(root))
	if err != nil {
		return nil, err
	}
	chain := g.Linearize(root, items)
	if err := s.stripGhosts(chain); err != nil {
		return nil, err
	}
	if err := g.Check(chain); err != nil {
		return nil, s.fail(chain, "malformed tree", err)
	}
	s.observe(closure.StageDone, chain)

	counts := g.Count(chain)
	s.log.Debug().
		Int("chains", counts[closure.KindChain]).
		Int("bulges", counts[closure.KindBulge]).
		Int("steps", s.w.Steps()).
		Msg("structured")
	return &Tree{Flat: flat, Graph: g, Root: chain, Ghosts: len(ghosts), Steps: s.w.Steps()}, nil
}

func (s *structurizer) observe(stage closure.Stage, id closure.ID) {
	if s.opts.Observer != nil {
		s.opts.Observer.Observe(s.g.Snapshot(stage, id))
	}
}

func (s *structurizer) fail(n closure.ID, reason string, err error) error {
	e := &StructuringError{Node: n, Reason: reason, Err: err}
	if n != closure.None {
		e.Label = s.g.Label(n)
	}
	s.log.Debug().Str("at", e.Label).Str("reason", reason).Msg("structuring failed")
	return e
}

func (s *structurizer) labels(ids []closure.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = s.g.Label(id)
	}
	return out
}

// mark recomputes the reverse edges of the region below entry.
func (s *structurizer) mark(entry closure.ID) order.EdgeSet {
	rev := order.MarkReverse(s.g, entry)
	s.w.Reset(rev)
	return rev
}

// region walks the ordered view from entry to exit and returns the
// closures of the walk in order, splicing a resolved mesh wherever the
// walk branches or meets a loop head.
func (s *structurizer) region(entry, exit closure.ID) ([]closure.ID, error) {
	g := s.g
	rev := s.mark(entry)
	first := order.Next(g, rev, entry)
	if len(first) == 0 {
		if f := g.Following(entry); len(f) > 0 {
			return nil, s.fail(f[0], "no path to region exit", nil)
		}
	}
	if len(first) != 1 {
		return nil, s.fail(entry, fmt.Sprintf("region has %d ordered entries", len(first)), nil)
	}

	var items []closure.ID
	for n := first[0]; n != exit; {
		if err := s.w.Charge(); err != nil {
			return nil, s.fail(n, "step budget exhausted", err)
		}
		next := order.Next(g, rev, n)
		join := order.LoopJoin(g, rev, n)
		switch {
		case len(next) == 0:
			return nil, s.fail(n, "no path to region exit", nil)
		case len(next) == 1 && next[0] == n:
			return nil, s.fail(n, "unsupported self jump", nil)
		case len(next) == 1 && !join:
			items = append(items, n)
			n = next[0]
			continue
		}

		d, err := s.w.EarliestPostDominator(n, exit)
		if err != nil {
			return nil, s.fail(n, "step budget exhausted", err)
		}
		if d == closure.None {
			return nil, s.fail(n, "no post-dominator", nil)
		}
		members := s.between(rev, n, d, join)
		if !join {
			items = append(items, n)
		}
		if len(members) == 0 {
			n = d
			continue
		}
		mesh := s.splice(rev, members, n, join)
		c, err := s.resolve(mesh)
		if err != nil {
			return nil, err
		}
		n = c
		rev = s.mark(entry)
	}
	return items, nil
}

// between collects the members of the mesh opened at n: everything the
// ordered view reaches from n before d. n belongs to it only when it is a
// loop head, d only when it closes a loop.
func (s *structurizer) between(rev order.EdgeSet, n, d closure.ID, join bool) []closure.ID {
	g := s.g
	reach := order.Reach(n, d, s.w.Next)
	if !join {
		delete(reach, n)
	}
	if order.LoopSplit(g, rev, d) {
		reach[d] = true
	}
	var out []closure.ID
	for m := range reach {
		if !g.Sentinel(m) {
			out = append(out, m)
		}
	}
	return g.Sorted(out)
}

// splice encloses members in a Mesh. When head is a loop head inside the
// mesh, the reverse edges back to it are continuation edges: they are
// redirected to the mesh exit and the mesh is flagged as a loop.
func (s *structurizer) splice(rev order.EdgeSet, members []closure.ID, head closure.ID, join bool) closure.ID {
	g := s.g
	mesh := g.Enclose(members)
	if join {
		exit := g.Exit(mesh)
		for _, m := range members {
			if rev.Has(m, head) && g.Linked(m, head) {
				g.ReplaceFollowing(m, head, exit)
				g.SetLoop(mesh)
			}
		}
	}
	s.log.Debug().
		Str("mesh", g.Label(mesh)).
		Strs("begin", s.labels(g.Begins(mesh))).
		Strs("end", s.labels(g.Ends(mesh))).
		Strs("members", s.labels(members)).
		Bool("loop", g.Loop(mesh)).
		Msg("mesh spliced")
	s.observe(closure.StageMesh, mesh)
	return mesh
}

// resolve replaces mesh by the closure it reduces to.
func (s *structurizer) resolve(mesh closure.ID) (closure.ID, error) {
	g := s.g
	if len(g.Begins(mesh)) == 1 {
		items, err := s.region(g.Entry(mesh), g.Exit(mesh))
		if err != nil {
			return closure.None, err
		}
		return s.resolved(g.Linearize(mesh, items)), nil
	}

	if err := s.collapse(mesh); err != nil {
		return closure.None, err
	}
	conns, err := g.Survey(mesh)
	if err != nil {
		return closure.None, err
	}
	if conns.Resolved() {
		if items, ok := s.path(mesh); ok {
			return s.resolved(g.Linearize(mesh, items)), nil
		}
	}
	b := g.Settle(mesh, conns)
	s.log.Debug().
		Str("bulge", g.Label(b)).
		Strs("begin", s.labels(conns.Begins)).
		Strs("end", s.labels(g.Ends(b))).
		Strs("members", s.labels(g.Members(b))).
		Int("joins", len(conns.Joins)).
		Msg("mesh left unresolved")
	s.observe(closure.StageBulge, b)
	return b, nil
}

func (s *structurizer) resolved(c closure.ID) closure.ID {
	g := s.g
	items := g.Items(c)
	begin := items
	if len(begin) > 1 {
		begin = begin[:1]
	}
	s.log.Debug().
		Str("chain", g.Label(c)).
		Strs("begin", s.labels(begin)).
		Strs("end", s.labels(g.Ends(c))).
		Strs("members", s.labels(items)).
		Bool("loop", g.Loop(c)).
		Msg("mesh resolved")
	s.observe(closure.StageResolved, c)
	return c
}

// path lists the members of a resolved mesh from its begin to its exit.
func (s *structurizer) path(mesh closure.ID) ([]closure.ID, bool) {
	g := s.g
	begins, exit := g.Begins(mesh), g.Exit(mesh)
	if len(begins) != 1 {
		return nil, false
	}
	var items []closure.ID
	for x := begins[0]; x != exit; {
		f := g.Following(x)
		if len(f) != 1 || len(items) > len(g.Members(mesh)) {
			return nil, false
		}
		items = append(items, x)
		x = f[0]
	}
	return items, true
}
