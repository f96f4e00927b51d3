package closure

import "fmt"

// Link adds the edge from→to. Adding an existing edge is a no-op.
func (g *Graph) Link(from, to ID) {
	f := g.at(from)
	if contains(f.following, to) {
		return
	}
	f.following = append(f.following, to)
	t := g.at(to)
	t.preceding = append(t.preceding, from)
}

// Unlink removes the edge from→to if present.
func (g *Graph) Unlink(from, to ID) {
	f := g.at(from)
	f.following = remove(f.following, to)
	t := g.at(to)
	t.preceding = remove(t.preceding, from)
}

// Linked reports whether the edge from→to exists.
func (g *Graph) Linked(from, to ID) bool {
	return contains(g.at(from).following, to)
}

// ReplaceFollowing retargets the edge id→old to id→new.
func (g *Graph) ReplaceFollowing(id, old, new ID) {
	if !g.Linked(id, old) || old == new {
		return
	}
	g.Unlink(id, old)
	g.Link(id, new)
}

// ReplacePreceding re-sources the edge old→id to new→id.
func (g *Graph) ReplacePreceding(id, old, new ID) {
	if !g.Linked(old, id) || old == new {
		return
	}
	g.Unlink(old, id)
	g.Link(new, id)
}

// SplitBefore cuts leaf id in two at instruction index at. A new front leaf
// covering [lo, at) takes over every predecessor of id, id keeps [at, hi)
// together with its successors, and a single edge front→id joins the halves.
// A self edge of id therefore becomes id→front.
func (g *Graph) SplitBefore(id ID, at int) ID {
	n := g.at(id)
	if n.kind != KindLeaf {
		panic(fmt.Sprintf("closure: split of %s", n.kind))
	}
	if at <= n.lo || at >= n.hi {
		panic(fmt.Sprintf("closure: split at %d outside (%d,%d)", at, n.lo, n.hi))
	}
	front := g.add(node{kind: KindLeaf, lo: n.lo, hi: at})
	g.at(front).parent = g.at(id).parent
	for _, p := range g.Preceding(id) {
		g.ReplaceFollowing(p, id, front)
	}
	g.Link(front, id)
	g.at(id).lo = at
	return front
}

// Enclose gathers members into a new Mesh. Edges wholly inside or wholly
// outside members are untouched; every edge crossing the boundary is split
// into an outer edge to/from the mesh and an inner edge from/to its sentinel.
func (g *Graph) Enclose(members []ID) ID {
	if len(members) == 0 {
		panic("closure: empty mesh")
	}
	parent := g.at(members[0]).parent
	set := make(map[ID]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	id := g.newComposite(KindMesh, members)
	n := g.at(id)
	n.parent = parent
	n.members = g.Sorted(members)
	if parent != None {
		p := g.at(parent)
		for _, m := range members {
			p.members = remove(p.members, m)
		}
		p.members = g.Sorted(append(p.members, id))
	}
	entry, exit := n.entry, n.exit
	for _, m := range g.at(id).members {
		for _, f := range g.Following(m) {
			if set[f] {
				continue
			}
			g.ReplaceFollowing(m, f, exit)
			g.Link(id, f)
		}
		for _, p := range g.Preceding(m) {
			if set[p] {
				continue
			}
			g.ReplacePreceding(m, p, entry)
			g.Link(p, id)
		}
	}
	return id
}

// SetLoop flags a composite as closing a loop.
func (g *Graph) SetLoop(id ID) {
	if !g.at(id).kind.Composite() {
		panic("closure: loop flag on " + g.at(id).kind.String())
	}
	g.at(id).loop = true
}

// Linearize replaces the composite comp by a Chain of items. Edges among
// items and comp's sentinels are dropped and rebuilt to follow list order;
// edges of comp itself move to the chain. comp is left detached.
func (g *Graph) Linearize(comp ID, items []ID) ID {
	old := g.at(comp)
	if !old.kind.Composite() {
		panic("closure: linearize " + old.kind.String())
	}
	entry, exit := old.entry, old.exit
	region := append([]ID{entry, exit}, items...)
	for _, x := range region {
		for _, f := range g.Following(x) {
			g.Unlink(x, f)
		}
	}
	chain := g.add(node{kind: KindChain, lo: old.lo, hi: old.hi, loop: old.loop})
	g.takeOver(comp, chain)
	c := g.at(chain)
	c.items = clone(items)
	prev := entry
	for _, it := range items {
		g.at(it).parent = chain
		g.Link(prev, it)
		prev = it
	}
	g.Link(prev, exit)
	return chain
}

// Settle replaces the Mesh comp by a Bulge with the same members and edges,
// recording conns as its bookkeeping.
func (g *Graph) Settle(comp ID, conns Connections) ID {
	old := g.at(comp)
	if old.kind != KindMesh {
		panic("closure: settle " + old.kind.String())
	}
	members := clone(old.members)
	bulge := g.add(node{kind: KindBulge, lo: old.lo, hi: old.hi, loop: old.loop})
	g.takeOver(comp, bulge)
	b := g.at(bulge)
	b.members = members
	b.conns = &conns
	for _, m := range members {
		g.at(m).parent = bulge
	}
	return bulge
}

// takeOver moves sentinels, parent and outer edges from old to new.
func (g *Graph) takeOver(old, new ID) {
	o := g.at(old)
	entry, exit, parent := o.entry, o.exit, o.parent
	for _, p := range g.Preceding(old) {
		g.ReplaceFollowing(p, old, new)
	}
	for _, f := range g.Following(old) {
		g.ReplacePreceding(f, old, new)
	}
	o = g.at(old)
	o.entry, o.exit = None, None
	n := g.at(new)
	n.entry, n.exit, n.parent = entry, exit, parent
	g.at(entry).parent = new
	g.at(exit).parent = new
	if parent != None {
		p := g.at(parent)
		for i, m := range p.members {
			if m == old {
				p.members[i] = new
			}
		}
		for i, it := range p.items {
			if it == old {
				p.items[i] = new
			}
		}
	}
}

// Bypass detaches id, linking each of its predecessors to each of its
// successors.
func (g *Graph) Bypass(id ID) {
	succs := g.Following(id)
	preds := g.Preceding(id)
	for _, s := range succs {
		g.Unlink(id, s)
	}
	for _, p := range preds {
		g.Unlink(p, id)
		for _, s := range succs {
			if p != id && s != id {
				g.Link(p, s)
			}
		}
	}
}

// RemoveItem bypasses id and drops it from chain.
func (g *Graph) RemoveItem(chain, id ID) {
	c := g.at(chain)
	if c.kind != KindChain || !contains(c.items, id) {
		panic(fmt.Sprintf("closure: %d is not an item of %d", id, chain))
	}
	g.Bypass(id)
	c = g.at(chain)
	c.items = remove(c.items, id)
	g.at(id).parent = None
}

// RemoveMember bypasses id and drops it from a Mesh or Bulge.
func (g *Graph) RemoveMember(comp, id ID) {
	c := g.at(comp)
	if !contains(c.members, id) {
		panic(fmt.Sprintf("closure: %d is not a member of %d", id, comp))
	}
	g.Bypass(id)
	c = g.at(comp)
	c.members = remove(c.members, id)
	g.at(id).parent = None
}

// SetConnections replaces the bookkeeping of a Bulge.
func (g *Graph) SetConnections(id ID, conns Connections) {
	n := g.at(id)
	if n.kind != KindBulge {
		panic("closure: connections on " + n.kind.String())
	}
	n.conns = &conns
}
