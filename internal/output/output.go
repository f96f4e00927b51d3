// Package output writes structuring results to JSON files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"edeco/internal/closure"
	"edeco/internal/flow"
	"edeco/internal/structure"
)

// Node is the JSON form of one closure. Leaves carry their instruction
// range; composites their contents. Begins, ends and bulge bookkeeping
// refer to other nodes by ID.
type Node struct {
	ID    closure.ID `json:"id"`
	Kind  string     `json:"kind"`
	Lo    int        `json:"lo"`
	Hi    int        `json:"hi"`
	Start uint64     `json:"start,omitempty"` // address of the first instruction
	Loop  bool       `json:"loop,omitempty"`

	Items      []*Node             `json:"items,omitempty"`
	Members    []*Node             `json:"members,omitempty"`
	Begins     []closure.ID        `json:"begins,omitempty"`
	Ends       []closure.ID        `json:"ends,omitempty"`
	Joins      []closure.Join      `json:"joins,omitempty"`
	Collisions []closure.Collision `json:"collisions,omitempty"`
	Branches   []closure.Edge      `json:"branches,omitempty"`
}

// Func is the structuring result of one function.
type Func struct {
	Name   string     `json:"name"`
	Entry  uint64     `json:"entry"`
	Bounds flow.Range `json:"bounds"`
	Shape  string     `json:"shape"`
	Ghosts int        `json:"ghosts"`
	Steps  int        `json:"steps"`
	Tree   *Node      `json:"tree"`
}

// NewFunc converts a tree. insts is the function's instruction slice, the
// one the leaf ranges index.
func NewFunc(name string, entry uint64, bounds flow.Range, t *structure.Tree, insts []flow.Inst) *Func {
	return &Func{
		Name:   name,
		Entry:  entry,
		Bounds: bounds,
		Shape:  t.Shape(),
		Ghosts: t.Ghosts,
		Steps:  t.Steps,
		Tree:   TreeNode(t.Graph, t.Root, insts),
	}
}

// TreeNode converts the tree under root.
func TreeNode(g *closure.Graph, root closure.ID, insts []flow.Inst) *Node {
	lo, hi := g.Range(root)
	n := &Node{ID: root, Kind: g.Kind(root).String(), Lo: lo, Hi: hi, Loop: g.Loop(root)}
	if lo >= 0 && lo < len(insts) {
		n.Start = insts[lo].Addr
	}
	switch g.Kind(root) {
	case closure.KindChain:
		for _, it := range g.Items(root) {
			n.Items = append(n.Items, TreeNode(g, it, insts))
		}
	case closure.KindMesh, closure.KindBulge:
		for _, m := range g.Contents(root) {
			n.Members = append(n.Members, TreeNode(g, m, insts))
		}
		n.Begins = g.Sorted(g.Begins(root))
		n.Ends = g.Sorted(g.Ends(root))
		if c, ok := g.Connections(root); ok {
			n.Joins = c.Joins
			n.Collisions = c.Collisions
			n.Branches = c.Branches
		}
	}
	return n
}

// Bounds is one boundary-finder result.
type Bounds struct {
	Name      string `json:"name,omitempty"`
	Entry     uint64 `json:"entry"`
	First     int    `json:"first"`
	Last      int    `json:"last"`
	FirstAddr uint64 `json:"first_addr"`
	LastAddr  uint64 `json:"last_addr"`
	Error     string `json:"error,omitempty"`
}

// NewBounds describes r over insts.
func NewBounds(name string, r flow.Range, insts []flow.Inst) Bounds {
	b := Bounds{Name: name, First: r.First, Last: r.Last}
	if r.First >= 0 && r.Last < len(insts) && r.First <= r.Last {
		b.Entry = insts[r.First].Addr
		b.FirstAddr = insts[r.First].Addr
		b.LastAddr = insts[r.Last].Addr
	}
	return b
}

// WriteTreeJSON writes structuring results to path, creating its directory.
func WriteTreeJSON(path string, funcs []*Func) error {
	return writeJSON(path, funcs)
}

// WriteBoundsJSON writes boundary results to path.
func WriteBoundsJSON(path string, bounds []Bounds) error {
	return writeJSON(path, bounds)
}

// Encode writes v as indented JSON.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
