// Package callgraph harvests function entries from an instruction stream
// and converts flow data to lattice graphs for rendering.
package callgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"

	"edeco/internal/flow"
)

// FuncInfo holds the data needed to build call graph and CFG for one function.
type FuncInfo struct {
	Name  string
	Entry uint64
	Insts []flow.Inst // the function's own instructions
}

// Namer resolves an address to a function name.
type Namer func(addr uint64) (string, bool)

// Name returns the name of addr, falling back to sub_<hex>.
func (n Namer) Name(addr uint64) string {
	if n != nil {
		if name, ok := n(addr); ok {
			return name
		}
	}
	return fmt.Sprintf("sub_%x", addr)
}

// Entries collects candidate function entry addresses: static call targets
// that land on an instruction of the stream, symbol addresses, and xtensa
// "entry" instructions. The result is deduplicated and sorted.
func Entries(insts []flow.Inst, syms map[uint64]string) []uint64 {
	index := flow.Index(insts)
	seen := make(map[uint64]bool)
	add := func(addr uint64) {
		if _, ok := index[addr]; ok {
			seen[addr] = true
		}
	}
	for _, in := range insts {
		if t, ok := in.Callee(); ok {
			add(t)
		}
		if strings.HasPrefix(in.Text, "entry ") || in.Text == "entry" {
			add(in.Addr)
		}
	}
	for addr := range syms {
		add(addr)
	}

	out := make([]uint64, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BuildCallGraph constructs a lattice.Graph from functions.
// Each function becomes a node. Each static call becomes an edge.
// Calls through a register are skipped.
func BuildCallGraph(funcs []FuncInfo, names Namer) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, in := range f.Insts {
			target, ok := in.Callee()
			if !ok {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: names.Name(target),
			})
		}
	}
	g.Dedup()
	return g
}
