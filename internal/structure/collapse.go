package structure

import (
	"edeco/internal/closure"
	"edeco/internal/order"
)

// collapse encloses and resolves every single-entry single-exit span inside
// a multi-begin mesh, repeating until none is left. A span runs from a
// member a to the farthest post-dominator z of a that a also pre-dominates.
func (s *structurizer) collapse(mesh closure.ID) error {
	g := s.g
	entry := g.Entry(mesh)
	for {
		rev := s.mark(entry)
		a, span, err := s.findSpan(mesh)
		if err != nil {
			return err
		}
		if span == nil {
			return nil
		}
		sub := s.splice(rev, span, a, order.LoopJoin(g, rev, a))
		if _, err := s.resolve(sub); err != nil {
			return err
		}
	}
}

func (s *structurizer) findSpan(mesh closure.ID) (closure.ID, []closure.ID, error) {
	g := s.g
	entry, exit := g.Entry(mesh), g.Exit(mesh)
	members := g.Members(mesh)
	for _, a := range members {
		pdoms, err := s.w.PostDominators(a, exit)
		if err != nil {
			return closure.None, nil, s.fail(a, "step budget exhausted", err)
		}
		for i := len(pdoms) - 1; i >= 0; i-- {
			z := pdoms[i]
			if g.Sentinel(z) {
				continue
			}
			predoms, err := s.w.PreDominators(z, entry)
			if err != nil {
				return closure.None, nil, s.fail(z, "step budget exhausted", err)
			}
			if !has(predoms, a) {
				continue
			}
			span := s.span(a, z)
			if len(span) < 2 || len(span) >= len(members) {
				continue
			}
			return a, span, nil
		}
	}
	return closure.None, nil, nil
}

// span picks the nodes between a and z. The backward sweep misses members
// that lead nowhere in the ordered view, such as a loop body turned around
// at its head, so the forward sweep is used, and only if it is closed.
func (s *structurizer) span(a, z closure.ID) []closure.ID {
	fwd := order.Reach(a, z, s.w.Next)
	fwd[z] = true
	bwd := order.Reach(z, a, s.w.Prev)
	bwd[a] = true
	if !sameSet(fwd, bwd) {
		s.log.Debug().
			Str("from", s.g.Label(a)).
			Str("to", s.g.Label(z)).
			Int("forward", len(fwd)).
			Int("backward", len(bwd)).
			Msg("span sweeps disagree")
	}
	if !s.closed(fwd, a, z) {
		return nil
	}
	var out []closure.ID
	for m := range fwd {
		out = append(out, m)
	}
	return s.g.Sorted(out)
}

// closed reports whether set is entered only at a and left only from z.
func (s *structurizer) closed(set map[closure.ID]bool, a, z closure.ID) bool {
	g := s.g
	for m := range set {
		if g.Sentinel(m) {
			return false
		}
		if m != a {
			for _, p := range g.Preceding(m) {
				if !set[p] {
					return false
				}
			}
		}
		if m != z {
			for _, f := range g.Following(m) {
				if !set[f] {
					return false
				}
			}
		}
	}
	return true
}

func sameSet(a, b map[closure.ID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func has(ids []closure.ID, id closure.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
