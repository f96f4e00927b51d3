// Package closure models a function's control flow at every level of nesting.
//
// All nodes of one function live in a single Graph arena and are addressed by
// ID. Adjacency lists hold IDs, never node values, so cycles in the control
// flow never become ownership cycles. A node is one of a closed set of kinds:
// the Start/End sentinels, a Leaf (a straight-line instruction range), a Ghost
// (an empty placeholder leaf), or one of the composites Chain, Mesh and Bulge.
//
// Every composite owns a pair of sentinel nodes (Entry/Exit). Edges of its
// members that leave the composite are attached to those sentinels, so each
// nesting level has its own following/preceding relation.
package closure

import (
	"fmt"
	"math"
	"sort"
)

// ID is a stable handle into a Graph.
type ID int32

// None is the zero handle: no node.
const None ID = -1

// Kind enumerates the closure variants.
type Kind uint8

const (
	KindStart Kind = iota // entry sentinel
	KindEnd               // exit sentinel
	KindGhost
	KindLeaf
	KindChain
	KindMesh
	KindBulge
)

var kindNames = [...]string{
	KindStart: "start",
	KindEnd:   "end",
	KindGhost: "ghost",
	KindLeaf:  "leaf",
	KindChain: "chain",
	KindMesh:  "mesh",
	KindBulge: "bulge",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Composite reports whether nodes of this kind contain other closures.
func (k Kind) Composite() bool {
	return k == KindChain || k == KindMesh || k == KindBulge
}

type node struct {
	kind      Kind
	lo, hi    int // instruction index range [lo, hi); composites span their members
	following []ID
	preceding []ID
	parent    ID

	entry, exit ID   // composites only
	items       []ID // chain order
	loop        bool // chain or mesh closes a loop
	members     []ID // mesh, bulge
	conns       *Connections
}

// Graph is the node arena for one function.
type Graph struct {
	nodes []node
	start ID
	end   ID
}

// New returns an empty graph holding only the Start and End sentinels.
func New() *Graph {
	g := &Graph{}
	g.start = g.add(node{kind: KindStart, lo: -1, hi: -1})
	g.end = g.add(node{kind: KindEnd, lo: math.MaxInt, hi: math.MaxInt})
	return g
}

func (g *Graph) add(n node) ID {
	n.parent = None
	if !n.kind.Composite() {
		n.entry, n.exit = None, None
	}
	g.nodes = append(g.nodes, n)
	return ID(len(g.nodes) - 1)
}

func (g *Graph) at(id ID) *node {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("closure: invalid id %d", id))
	}
	return &g.nodes[id]
}

// Start returns the function-level entry sentinel.
func (g *Graph) Start() ID { return g.start }

// End returns the function-level exit sentinel.
func (g *Graph) End() ID { return g.end }

// Len returns the number of nodes ever allocated, detached ones included.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Kind(id ID) Kind { return g.at(id).kind }

// Range returns the instruction index range covered by id. Sentinels report
// an empty range placed before (Start) or after (End) every instruction.
func (g *Graph) Range(id ID) (lo, hi int) {
	n := g.at(id)
	return n.lo, n.hi
}

// Sentinel reports whether id is a Start/End node at any nesting level.
func (g *Graph) Sentinel(id ID) bool {
	k := g.at(id).kind
	return k == KindStart || k == KindEnd
}

// Following returns a copy of the successors of id at its nesting level.
func (g *Graph) Following(id ID) []ID { return clone(g.at(id).following) }

// Preceding returns a copy of the predecessors of id at its nesting level.
func (g *Graph) Preceding(id ID) []ID { return clone(g.at(id).preceding) }

// OutDegree and InDegree avoid the copy made by Following/Preceding.
func (g *Graph) OutDegree(id ID) int { return len(g.at(id).following) }
func (g *Graph) InDegree(id ID) int  { return len(g.at(id).preceding) }

// Parent returns the composite that contains id, or None at top level.
// It is a lookup relation only and carries no ownership.
func (g *Graph) Parent(id ID) ID { return g.at(id).parent }

// Entry returns the entry sentinel of a composite.
func (g *Graph) Entry(id ID) ID { return g.at(id).entry }

// Exit returns the exit sentinel of a composite.
func (g *Graph) Exit(id ID) ID { return g.at(id).exit }

// Items returns the ordered contents of a Chain.
func (g *Graph) Items(id ID) []ID { return clone(g.at(id).items) }

// Loop reports whether a Chain or Mesh was built around a loop back edge.
func (g *Graph) Loop(id ID) bool { return g.at(id).loop }

// Members returns the contents of a Mesh or Bulge in address order.
func (g *Graph) Members(id ID) []ID { return clone(g.at(id).members) }

// Begins returns the members of a composite entered from outside it.
func (g *Graph) Begins(id ID) []ID { return g.Following(g.at(id).entry) }

// Ends returns the members of a composite that leave it.
func (g *Graph) Ends(id ID) []ID { return g.Preceding(g.at(id).exit) }

// GetFollowing returns the successors of member c inside composite id. Edges
// leaving the composite appear as the composite's Exit sentinel.
func (g *Graph) GetFollowing(id, c ID) []ID {
	if g.at(c).parent != id {
		return nil
	}
	return g.Following(c)
}

// GetPreceding mirrors GetFollowing, substituting the Entry sentinel.
func (g *Graph) GetPreceding(id, c ID) []ID {
	if g.at(c).parent != id {
		return nil
	}
	return g.Preceding(c)
}

// Connections returns a copy of the bookkeeping of a Bulge.
func (g *Graph) Connections(id ID) (Connections, bool) {
	n := g.at(id)
	if n.conns == nil {
		return Connections{}, false
	}
	return n.conns.clone(), true
}

// NewLeaf allocates a flow node covering instructions [lo, hi).
func (g *Graph) NewLeaf(lo, hi int) ID {
	if hi <= lo {
		panic(fmt.Sprintf("closure: empty leaf [%d,%d)", lo, hi))
	}
	return g.add(node{kind: KindLeaf, lo: lo, hi: hi})
}

// NewGhost allocates an empty placeholder positioned at instruction at.
func (g *Graph) NewGhost(at int) ID {
	return g.add(node{kind: KindGhost, lo: at, hi: at})
}

func (g *Graph) newComposite(kind Kind, contents []ID) ID {
	lo, hi := math.MaxInt, math.MinInt
	for _, c := range contents {
		n := g.at(c)
		if n.lo < lo {
			lo = n.lo
		}
		if n.hi > hi {
			hi = n.hi
		}
	}
	if len(contents) == 0 {
		lo, hi = 0, 0
	}
	id := g.add(node{kind: kind, lo: lo, hi: hi})
	entry := g.add(node{kind: KindStart, lo: lo, hi: lo})
	exit := g.add(node{kind: KindEnd, lo: hi, hi: hi})
	n := g.at(id)
	n.entry, n.exit = entry, exit
	g.at(entry).parent = id
	g.at(exit).parent = id
	for _, c := range contents {
		g.at(c).parent = id
	}
	return id
}

// Addr is the ordering key of id: the first instruction index it covers.
func (g *Graph) Addr(id ID) int { return g.at(id).lo }

// Less orders nodes by instruction index, then kind, then handle. A ghost
// sorts before the node it was inserted in front of.
func (g *Graph) Less(a, b ID) bool {
	na, nb := g.at(a), g.at(b)
	if na.lo != nb.lo {
		return na.lo < nb.lo
	}
	if na.kind != nb.kind {
		return na.kind < nb.kind
	}
	return a < b
}

// Sorted returns ids in Less order. The input is not modified.
func (g *Graph) Sorted(ids []ID) []ID {
	out := clone(ids)
	sort.Slice(out, func(i, j int) bool { return g.Less(out[i], out[j]) })
	return out
}

// Clone returns a deep copy. Handles are preserved.
func (g *Graph) Clone() *Graph {
	c := &Graph{nodes: make([]node, len(g.nodes)), start: g.start, end: g.end}
	for i, n := range g.nodes {
		n.following = clone(n.following)
		n.preceding = clone(n.preceding)
		n.items = clone(n.items)
		n.members = clone(n.members)
		if n.conns != nil {
			cc := n.conns.clone()
			n.conns = &cc
		}
		c.nodes[i] = n
	}
	return c
}

// Nodes returns every live (non-detached) handle at the top level, that is
// the nodes reachable from Start over following edges, in Less order.
func (g *Graph) Nodes() []ID {
	seen := make(map[ID]bool)
	stack := []ID{g.start}
	var out []ID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		stack = append(stack, g.at(id).following...)
	}
	return g.Sorted(out)
}

func (g *Graph) String() string {
	return fmt.Sprintf("closure.Graph{%d nodes}", len(g.nodes))
}

// Label renders id as a short human-readable token, e.g. "leaf[3,5)".
func (g *Graph) Label(id ID) string {
	n := g.at(id)
	switch n.kind {
	case KindLeaf:
		return fmt.Sprintf("leaf[%d,%d)", n.lo, n.hi)
	case KindGhost:
		return fmt.Sprintf("ghost@%d", n.lo)
	case KindStart, KindEnd:
		if n.parent == None {
			return n.kind.String()
		}
		return fmt.Sprintf("%s#%d", n.kind, n.parent)
	}
	return fmt.Sprintf("%s#%d", n.kind, id)
}

func clone(ids []ID) []ID {
	if ids == nil {
		return nil
	}
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}

func contains(ids []ID, id ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func remove(ids []ID, id ID) []ID {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
