package order

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"edeco/internal/closure"
)

// InsertGhosts puts an empty ghost in front of every leaf that is both a
// join (more than one predecessor) and a split (more than one successor).
// The ghost takes over all incoming edges and leads to the leaf, so no node
// is a join and a split at once. It returns the ghosts in address order.
func InsertGhosts(g *closure.Graph) []closure.ID {
	var ghosts []closure.ID
	for _, n := range g.Nodes() {
		if g.Kind(n) != closure.KindLeaf || g.InDegree(n) < 2 || g.OutDegree(n) < 2 {
			continue
		}
		lo, _ := g.Range(n)
		gh := g.NewGhost(lo)
		// a self loop of n re-enters through the ghost as well
		for _, p := range g.Preceding(n) {
			g.ReplaceFollowing(p, n, gh)
		}
		g.Link(gh, n)
		ghosts = append(ghosts, gh)
	}
	return g.Sorted(ghosts)
}

// ForwardOrder topologically sorts the nodes reachable from root using only
// non-reverse edges. An error means rev does not break every cycle.
func ForwardOrder(g *closure.Graph, rev EdgeSet, root closure.ID) ([]closure.ID, error) {
	dg := simple.NewDirectedGraph()
	seen := map[closure.ID]bool{root: true}
	work := []closure.ID{root}
	dg.AddNode(simple.Node(root))
	for len(work) > 0 {
		x := work[len(work)-1]
		work = work[:len(work)-1]
		for _, y := range g.Following(x) {
			if !seen[y] {
				seen[y] = true
				dg.AddNode(simple.Node(y))
				work = append(work, y)
			}
			if rev.Has(x, y) {
				continue
			}
			if x == y {
				return nil, fmt.Errorf("order: self edge at %s is not reverse", g.Label(x))
			}
			dg.SetEdge(simple.Edge{F: simple.Node(x), T: simple.Node(y)})
		}
	}
	sorted, err := topo.SortStabilized(dg, func(nodes []graph.Node) {
		sortNodes(g, nodes)
	})
	if err != nil {
		return nil, fmt.Errorf("order: forward edges are cyclic: %w", err)
	}
	out := make([]closure.ID, len(sorted))
	for i, n := range sorted {
		out[i] = closure.ID(n.ID())
	}
	return out, nil
}

func sortNodes(g *closure.Graph, nodes []graph.Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && g.Less(closure.ID(nodes[j].ID()), closure.ID(nodes[j-1].ID())); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}
