package render

import (
	"fmt"
	"strings"

	"edeco/internal/closure"
	"edeco/internal/flow"
)

// Outline renders the tree under root as an indented text outline, one
// closure per line. insts, when given, adds the address span of each leaf.
//
//	chain
//	  leaf [0,1) 0x0
//	  loop
//	    leaf [1,5) 0x4..0x10
//	  leaf [5,6) 0x14
func Outline(g *closure.Graph, root closure.ID, insts []flow.Inst) string {
	var b strings.Builder
	g.Walk(root, func(id closure.ID, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(outlineLine(g, id, insts))
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

func outlineLine(g *closure.Graph, id closure.ID, insts []flow.Inst) string {
	switch g.Kind(id) {
	case closure.KindLeaf:
		lo, hi := g.Range(id)
		s := fmt.Sprintf("leaf [%d,%d)", lo, hi)
		if hi > lo && hi <= len(insts) {
			first, last := insts[lo].Addr, insts[hi-1].Addr
			if first == last {
				s += fmt.Sprintf(" 0x%x", first)
			} else {
				s += fmt.Sprintf(" 0x%x..0x%x", first, last)
			}
		}
		return s
	case closure.KindGhost:
		return fmt.Sprintf("ghost @%d", g.Addr(id))
	case closure.KindChain:
		if g.Loop(id) {
			return "loop"
		}
		return "chain"
	case closure.KindMesh:
		return fmt.Sprintf("mesh begins=%s ends=%s", labels(g, g.Sorted(g.Begins(id))), labels(g, g.Sorted(g.Ends(id))))
	case closure.KindBulge:
		c, _ := g.Connections(id)
		return fmt.Sprintf("bulge begins=%s joins=%d collisions=%d branches=%d",
			labels(g, c.Begins), len(c.Joins), len(c.Collisions), len(c.Branches))
	}
	return g.Label(id)
}

func labels(g *closure.Graph, ids []closure.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = g.Label(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
