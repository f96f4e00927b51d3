package closure

import (
	"errors"
	"fmt"
)

// ErrInvalidCode matches InvalidCodeError.
var ErrInvalidCode = errors.New("invalid code")

// InvalidCodeError reports an ambiguous input: the same source collides
// twice with one join point.
type InvalidCodeError struct {
	At   ID
	From ID
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("closure: ambiguous collision %d->%d", e.From, e.At)
}

func (e *InvalidCodeError) Is(target error) bool { return target == ErrInvalidCode }

// Edge is a directed closure-to-closure connection.
type Edge struct {
	From ID `json:"from"`
	To   ID `json:"to"`
}

// Join is a point inside a Bulge reached from more than one source.
// Sources is a multiset in arrival order; the first entry claimed the point.
type Join struct {
	At      ID   `json:"at"`
	Sources []ID `json:"sources"`
}

// Collision is an arrival at an already claimed point.
type Collision struct {
	From ID `json:"from"`
	At   ID `json:"at"`
}

// Connections is the bookkeeping of a partially resolved region.
type Connections struct {
	Begins     []ID        `json:"begins"`
	Internal   []Edge      `json:"internal,omitempty"`
	Branches   []Edge      `json:"branches,omitempty"` // To is the exit sentinel, or None for a dead end
	Joins      []Join      `json:"joins,omitempty"`
	Collisions []Collision `json:"collisions,omitempty"`
}

func (c Connections) clone() Connections {
	out := Connections{Begins: clone(c.Begins)}
	out.Internal = append([]Edge(nil), c.Internal...)
	out.Branches = append([]Edge(nil), c.Branches...)
	out.Collisions = append([]Collision(nil), c.Collisions...)
	for _, j := range c.Joins {
		out.Joins = append(out.Joins, Join{At: j.At, Sources: clone(j.Sources)})
	}
	return out
}

// Resolved reports whether the region has collapsed to a straight line:
// one begin, no outstanding joins and a single remaining branch.
func (c Connections) Resolved() bool {
	return len(c.Begins) == 1 && len(c.Joins) == 0 && len(c.Branches) == 1
}

// Join returns the join record at id.
func (c Connections) Join(at ID) (Join, bool) {
	for _, j := range c.Joins {
		if j.At == at {
			return j, true
		}
	}
	return Join{}, false
}

// AddArrival records that from reaches at. The first arrival claims the
// point; later ones add a Collision and extend the Join multiset.
func (c *Connections) AddArrival(from, at ID) error {
	for i := range c.Joins {
		if c.Joins[i].At == at {
			c.Joins[i].Sources = append(c.Joins[i].Sources, from)
			return c.AddCollision(from, at)
		}
	}
	c.Joins = append(c.Joins, Join{At: at, Sources: []ID{from}})
	return nil
}

// AddCollision records from colliding with at. A second identical
// collision is ambiguous and rejected.
func (c *Connections) AddCollision(from, at ID) error {
	for _, x := range c.Collisions {
		if x.From == from && x.At == at {
			return &InvalidCodeError{At: at, From: from}
		}
	}
	c.Collisions = append(c.Collisions, Collision{From: from, At: at})
	return nil
}

// DropJoin forgets the join at id together with its collisions.
func (c *Connections) DropJoin(at ID) {
	joins := c.Joins[:0]
	for _, j := range c.Joins {
		if j.At != at {
			joins = append(joins, j)
		}
	}
	c.Joins = joins
	cols := c.Collisions[:0]
	for _, x := range c.Collisions {
		if x.At != at {
			cols = append(cols, x)
		}
	}
	c.Collisions = cols
}

// prune drops single-source join records; they are claims, not joins.
func (c *Connections) prune() {
	joins := c.Joins[:0]
	for _, j := range c.Joins {
		if len(j.Sources) > 1 {
			joins = append(joins, j)
		}
	}
	c.Joins = joins
}

// Retarget rewrites every record mentioning old to mention new instead,
// merging join multisets. Used when a transparent node is bypassed.
func (c *Connections) Retarget(old, new ID) error {
	var begins []ID
	for _, b := range c.Begins {
		if b == old {
			b = new
		}
		if !contains(begins, b) {
			begins = append(begins, b)
		}
	}
	c.Begins = begins

	var internal []Edge
	for _, e := range c.Internal {
		if e.From == old && e.To == new {
			continue
		}
		if e.From == old {
			e.From = new
		}
		if e.To == old {
			e.To = new
		}
		internal = append(internal, e)
	}
	c.Internal = internal
	for i := range c.Branches {
		if c.Branches[i].From == old {
			c.Branches[i].From = new
		}
	}

	var merged []ID
	joins := c.Joins[:0]
	for _, j := range c.Joins {
		for k, s := range j.Sources {
			if s == old {
				j.Sources[k] = new
			}
		}
		if j.At == old || j.At == new {
			merged = append(merged, j.Sources...)
			continue
		}
		joins = append(joins, j)
	}
	c.Joins = joins

	cols := c.Collisions
	c.Collisions = nil
	for _, x := range cols {
		if x.From == old {
			x.From = new
		}
		if x.At == old {
			x.At = new
		}
		if err := c.AddCollision(x.From, x.At); err != nil {
			return err
		}
	}
	if len(merged) > 1 {
		c.Joins = append(c.Joins, Join{At: new, Sources: merged})
	}
	return nil
}

// Survey computes the bookkeeping of composite id from its current edges.
// Edges are visited depth first from the entry sentinel with successors in
// address order, which fixes which arrival claims each point.
func (g *Graph) Survey(id ID) (Connections, error) {
	n := g.at(id)
	entry, exit := n.entry, n.exit
	c := Connections{Begins: g.Sorted(g.at(entry).following)}

	visited := map[ID]bool{entry: true}
	stack := []ID{entry}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		succs := g.Sorted(g.at(x).following)
		if len(succs) == 0 && x != entry {
			c.Branches = append(c.Branches, Edge{From: x, To: None})
		}
		var next []ID
		for _, y := range succs {
			if y == exit {
				c.Branches = append(c.Branches, Edge{From: x, To: exit})
				continue
			}
			if x != entry {
				c.Internal = append(c.Internal, Edge{From: x, To: y})
			}
			if err := c.AddArrival(x, y); err != nil {
				return Connections{}, err
			}
			if !visited[y] {
				visited[y] = true
				next = append(next, y)
			}
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	c.prune()
	return c, nil
}
