package render

import (
	"fmt"
	"strings"

	"edeco/internal/closure"
)

// TreeDOT renders every closure reachable from the graph's Start. Leaves
// and ghosts are nodes; chains, meshes and bulges are nested clusters.
// Each level draws only the edges between its own closures. focus, when
// not None, is outlined.
func TreeDOT(g *closure.Graph, focus closure.ID, title string, t Theme) string {
	r := &treeRenderer{g: g, t: t, focus: focus}
	header(&r.b, "tree", title, t)
	r.b.WriteString("  compound=true;\n\n")

	top := g.Nodes()
	for _, n := range top {
		r.node(n, "  ")
	}
	r.b.WriteByte('\n')
	r.edges(top)
	for _, n := range top {
		g.Walk(n, func(id closure.ID, _ int) bool {
			if g.Kind(id).Composite() {
				r.edges(g.Contents(id))
				if g.Kind(id) == closure.KindChain && g.Loop(id) {
					r.loopEdge(id)
				}
			}
			return true
		})
	}
	r.b.WriteString("}\n")
	return r.b.String()
}

type treeRenderer struct {
	g     *closure.Graph
	t     Theme
	focus closure.ID
	b     strings.Builder
}

func (r *treeRenderer) node(id closure.ID, indent string) {
	g, t := r.g, r.t
	focus := ""
	if id == r.focus {
		focus = fmt.Sprintf(", penwidth=1.5, color=%q", t.FocusBorder)
	}

	switch k := g.Kind(id); k {
	case closure.KindStart, closure.KindEnd:
		fmt.Fprintf(&r.b, "%sn%d [shape=circle, width=0.15, label=\"\", fillcolor=%q, tooltip=%q];\n",
			indent, id, t.SentinelFill, k.String())
	case closure.KindGhost:
		fmt.Fprintf(&r.b, "%sn%d [label=%q, style=\"filled,dashed\", fillcolor=%q%s];\n",
			indent, id, g.Label(id), t.GhostFill, focus)
	case closure.KindLeaf:
		fmt.Fprintf(&r.b, "%sn%d [label=%q%s];\n", indent, id, g.Label(id), focus)
	default:
		color, width := t.clusterColor(g, id), 0.7
		if id == r.focus {
			color, width = t.FocusBorder, 2
		}
		fmt.Fprintf(&r.b, "%ssubgraph cluster_%d {\n", indent, id)
		fmt.Fprintf(&r.b, "%s  color=%q;\n%s  penwidth=%g;\n", indent, color, indent, width)
		fmt.Fprintf(&r.b, "%s  label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			indent, t.ClusterText, dotEscape(clusterLabel(g, id)))
		contents := g.Contents(id)
		if len(contents) == 0 {
			fmt.Fprintf(&r.b, "%s  n%d [shape=point, style=invis];\n", indent, id)
		}
		for _, c := range contents {
			r.node(c, indent+"  ")
		}
		fmt.Fprintf(&r.b, "%s}\n", indent)
	}
}

func clusterLabel(g *closure.Graph, id closure.ID) string {
	label := g.Kind(id).String()
	if g.Loop(id) {
		label += "*"
	}
	if c, ok := g.Connections(id); ok {
		label += fmt.Sprintf(" joins=%d collisions=%d", len(c.Joins), len(c.Collisions))
	}
	return label
}

// anchor returns the DOT node an edge to (first) or from (!first) id
// attaches to.
func (r *treeRenderer) anchor(id closure.ID, first bool) closure.ID {
	if !r.g.Kind(id).Composite() {
		return id
	}
	contents := r.g.Contents(id)
	if len(contents) == 0 {
		return id
	}
	if first {
		return r.anchor(contents[0], true)
	}
	return r.anchor(contents[len(contents)-1], false)
}

func (r *treeRenderer) edges(level []closure.ID) {
	g := r.g
	in := make(map[closure.ID]bool, len(level))
	for _, n := range level {
		in[n] = true
	}
	for _, m := range level {
		for _, f := range g.Sorted(g.Following(m)) {
			if !in[f] {
				continue
			}
			backward := !g.Sentinel(m) && !g.Sentinel(f) && (f == m || g.Less(f, m))
			r.edge(m, f, backward)
		}
	}
}

func (r *treeRenderer) loopEdge(chain closure.ID) {
	items := r.g.Items(chain)
	if len(items) == 0 {
		return
	}
	r.edge(items[len(items)-1], items[0], true)
}

func (r *treeRenderer) edge(from, to closure.ID, backward bool) {
	g, t := r.g, r.t
	var attrs []string
	if g.Kind(from).Composite() {
		attrs = append(attrs, fmt.Sprintf("ltail=cluster_%d", from))
	}
	if g.Kind(to).Composite() {
		attrs = append(attrs, fmt.Sprintf("lhead=cluster_%d", to))
	}
	if backward {
		attrs = append(attrs, fmt.Sprintf("color=%q", t.EdgeReverse), "style=dashed", "constraint=false")
	} else {
		attrs = append(attrs, fmt.Sprintf("color=%q", t.EdgeFlow))
	}
	fmt.Fprintf(&r.b, "  n%d -> n%d [%s];\n", r.anchor(from, false), r.anchor(to, true), strings.Join(attrs, ", "))
}
