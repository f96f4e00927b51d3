// Package order classifies the edges of a flow graph against a stretched
// linear order and answers dominance questions over that order.
//
// Picture pulling a region's entry and exit apart until the graph forms a
// string: a reverse edge is one that runs from the exit side back toward
// the entry. The ordered view treats every reverse edge as pointing the
// other way, so a loop body hangs "ahead" of its header.
package order

import (
	"sort"

	"edeco/internal/closure"
)

// EdgeSet is a set of directed edges.
type EdgeSet map[closure.Edge]struct{}

// Has reports whether from→to is in the set.
func (s EdgeSet) Has(from, to closure.ID) bool {
	_, ok := s[closure.Edge{From: from, To: to}]
	return ok
}

func (s EdgeSet) add(from, to closure.ID) {
	s[closure.Edge{From: from, To: to}] = struct{}{}
}

// Sorted lists the edges by (From, To) in the graph's address order.
func (s EdgeSet) Sorted(g *closure.Graph) []closure.Edge {
	out := make([]closure.Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return g.Less(out[i].From, out[j].From)
		}
		return g.Less(out[i].To, out[j].To)
	})
	return out
}

type frame struct {
	id    closure.ID
	succs []closure.ID
	next  int
}

// MarkReverse classifies the edges reachable from root. The traversal is
// depth first with successors taken in address order, so the result is
// fixed for a fixed graph.
//
// An edge to a node on the active path is reverse. When a node is left and
// it has successors that are all reverse, the edge from its parent on the
// path is reverse too: everything past it lies behind us.
func MarkReverse(g *closure.Graph, root closure.ID) EdgeSet {
	rev := make(EdgeSet)
	onPath := map[closure.ID]bool{root: true}
	visited := map[closure.ID]bool{root: true}
	stack := []frame{{id: root, succs: g.Sorted(g.Following(root))}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.succs) {
			s := top.succs[top.next]
			top.next++
			switch {
			case onPath[s]:
				rev.add(top.id, s)
			case !visited[s]:
				visited[s] = true
				onPath[s] = true
				stack = append(stack, frame{id: s, succs: g.Sorted(g.Following(s))})
			}
			continue
		}

		if len(top.succs) > 0 && len(stack) > 1 {
			all := true
			for _, s := range top.succs {
				if !rev.Has(top.id, s) {
					all = false
					break
				}
			}
			if all {
				rev.add(stack[len(stack)-2].id, top.id)
			}
		}
		onPath[top.id] = false
		stack = stack[:len(stack)-1]
	}
	return rev
}

// Next returns the ordered successors of n: its successors over non-reverse
// edges plus its predecessors over reverse edges, in address order.
func Next(g *closure.Graph, rev EdgeSet, n closure.ID) []closure.ID {
	var out []closure.ID
	for _, f := range g.Following(n) {
		if !rev.Has(n, f) {
			out = appendUnique(out, f)
		}
	}
	for _, p := range g.Preceding(n) {
		if rev.Has(p, n) {
			out = appendUnique(out, p)
		}
	}
	return g.Sorted(out)
}

// Prev mirrors Next.
func Prev(g *closure.Graph, rev EdgeSet, n closure.ID) []closure.ID {
	var out []closure.ID
	for _, f := range g.Following(n) {
		if rev.Has(n, f) {
			out = appendUnique(out, f)
		}
	}
	for _, p := range g.Preceding(n) {
		if !rev.Has(p, n) {
			out = appendUnique(out, p)
		}
	}
	return g.Sorted(out)
}

// LoopJoin reports whether n is the target of a reverse edge.
func LoopJoin(g *closure.Graph, rev EdgeSet, n closure.ID) bool {
	for _, p := range g.Preceding(n) {
		if rev.Has(p, n) {
			return true
		}
	}
	return false
}

// LoopSplit reports whether n is the source of a reverse edge.
func LoopSplit(g *closure.Graph, rev EdgeSet, n closure.ID) bool {
	for _, f := range g.Following(n) {
		if rev.Has(n, f) {
			return true
		}
	}
	return false
}

// Reach returns the nodes reachable from n over next without passing stop.
// n itself is included; stop is not.
func Reach(n, stop closure.ID, next func(closure.ID) []closure.ID) map[closure.ID]bool {
	seen := map[closure.ID]bool{n: true}
	work := []closure.ID{n}
	for len(work) > 0 {
		x := work[len(work)-1]
		work = work[:len(work)-1]
		for _, y := range next(x) {
			if y == stop || seen[y] {
				continue
			}
			seen[y] = true
			work = append(work, y)
		}
	}
	return seen
}

func appendUnique(ids []closure.ID, id closure.ID) []closure.ID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
