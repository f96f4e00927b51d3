package closure

import (
	"fmt"
	"sort"
	"strings"
)

// Walk visits root and every closure nested in it, depth first in content
// order. Returning false from fn skips the children of id.
func (g *Graph) Walk(root ID, fn func(id ID, depth int) bool) {
	var visit func(id ID, depth int)
	visit = func(id ID, depth int) {
		if !fn(id, depth) {
			return
		}
		for _, c := range g.Contents(id) {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
}

// Contents returns the closures directly nested in id: chain items in list
// order, or mesh/bulge members from the entry sentinel outwards (depth
// first, address order) followed by any member not reachable that way.
func (g *Graph) Contents(id ID) []ID {
	n := g.at(id)
	switch n.kind {
	case KindChain:
		return clone(n.items)
	case KindMesh, KindBulge:
	default:
		return nil
	}
	member := make(map[ID]bool, len(n.members))
	for _, m := range n.members {
		member[m] = true
	}
	var out []ID
	seen := make(map[ID]bool)
	var visit func(x ID)
	visit = func(x ID) {
		for _, y := range g.Sorted(g.at(x).following) {
			if member[y] && !seen[y] {
				seen[y] = true
				out = append(out, y)
				visit(y)
			}
		}
	}
	if n.entry != None {
		visit(n.entry)
	}
	for _, m := range n.members {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
			visit(m)
		}
	}
	return out
}

// Flatten lists the instruction indices covered by the tree under root in
// content order.
func (g *Graph) Flatten(root ID) []int {
	var out []int
	g.Walk(root, func(id ID, _ int) bool {
		if n := g.at(id); n.kind == KindLeaf {
			for i := n.lo; i < n.hi; i++ {
				out = append(out, i)
			}
		}
		return true
	})
	return out
}

// Count tallies the kinds of every closure under root, root included.
func (g *Graph) Count(root ID) map[Kind]int {
	m := make(map[Kind]int)
	g.Walk(root, func(id ID, _ int) bool {
		m[g.at(id).kind]++
		return true
	})
	return m
}

// Shape renders the nesting under root with instruction ranges but no
// handles, so two passes over the same input compare equal.
// A loop chain is marked with a trailing '*'.
func (g *Graph) Shape(root ID) string {
	var b strings.Builder
	var visit func(id ID)
	visit = func(id ID) {
		n := g.at(id)
		switch n.kind {
		case KindLeaf, KindGhost:
			b.WriteString(g.Label(id))
			return
		}
		b.WriteString(n.kind.String())
		if n.loop {
			b.WriteByte('*')
		}
		b.WriteByte('(')
		for i, c := range g.Contents(id) {
			if i > 0 {
				b.WriteByte(' ')
			}
			visit(c)
		}
		b.WriteByte(')')
	}
	visit(root)
	return b.String()
}

// Check verifies the structural invariants of the tree under root: chain
// adjacency matches list order, parent links agree with containment, and
// leaf ranges do not overlap.
func (g *Graph) Check(root ID) error {
	var errs []string
	var leaves [][2]int
	g.Walk(root, func(id ID, _ int) bool {
		n := g.at(id)
		switch n.kind {
		case KindLeaf:
			leaves = append(leaves, [2]int{n.lo, n.hi})
		case KindChain:
			prev := n.entry
			for _, it := range n.items {
				if g.at(it).parent != id {
					errs = append(errs, fmt.Sprintf("%s: item %s has parent %d", g.Label(id), g.Label(it), g.at(it).parent))
				}
				if f := g.at(prev).following; len(f) != 1 || f[0] != it {
					errs = append(errs, fmt.Sprintf("%s: %s does not lead to %s", g.Label(id), g.Label(prev), g.Label(it)))
				}
				prev = it
			}
			if f := g.at(prev).following; len(f) != 1 || f[0] != n.exit {
				errs = append(errs, fmt.Sprintf("%s: last item does not reach exit", g.Label(id)))
			}
		case KindMesh, KindBulge:
			for _, m := range n.members {
				if g.at(m).parent != id {
					errs = append(errs, fmt.Sprintf("%s: member %s has parent %d", g.Label(id), g.Label(m), g.at(m).parent))
				}
			}
		}
		return true
	})
	sort.Slice(leaves, func(i, j int) bool { return leaves[i][0] < leaves[j][0] })
	for i := 1; i < len(leaves); i++ {
		if leaves[i][0] < leaves[i-1][1] {
			errs = append(errs, fmt.Sprintf("leaf [%d,%d) overlaps [%d,%d)",
				leaves[i][0], leaves[i][1], leaves[i-1][0], leaves[i-1][1]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closure: %s", strings.Join(errs, "; "))
	}
	return nil
}
