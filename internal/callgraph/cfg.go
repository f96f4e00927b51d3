package callgraph

import (
	"github.com/zboralski/lattice"

	"edeco/internal/closure"
	"edeco/internal/flow"
)

// FlatCFG maps the leaves of a flat flow graph to a lattice.FuncCFG. Leaf
// ranges index insts. Block IDs follow address order; a leaf that reaches
// End is terminal. Of two successors, the taken branch is marked "T" and
// the fall-through "F".
func FlatCFG(name string, g *closure.Graph, insts []flow.Inst, names Namer) *lattice.FuncCFG {
	ids := make(map[closure.ID]int)
	var leaves []closure.ID
	for _, n := range g.Nodes() {
		if g.Kind(n) == closure.KindLeaf {
			ids[n] = len(leaves)
			leaves = append(leaves, n)
		}
	}

	lcfg := &lattice.FuncCFG{Name: name}
	for _, n := range leaves {
		lo, hi := g.Range(n)
		lb := &lattice.BasicBlock{ID: ids[n], Start: lo, End: hi}

		succs := g.Sorted(g.Following(n))
		for _, s := range succs {
			if s == g.End() {
				lb.Term = true
				continue
			}
			succ := lattice.Successor{BlockID: ids[s]}
			if len(succs) > 1 {
				if slo, _ := g.Range(s); slo == hi {
					succ.Cond = "F"
				} else {
					succ.Cond = "T"
				}
			}
			lb.Succs = append(lb.Succs, succ)
		}

		for idx := lo; idx < hi && idx < len(insts); idx++ {
			if target, ok := insts[idx].Callee(); ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: names.Name(target),
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// BuildCFG builds the flat graph of every function and collects the CFGs.
// Functions whose graph cannot be built are returned in failed with their
// error and left out of the result.
func BuildCFG(funcs []FuncInfo, names Namer, opts flow.Options) (cg *lattice.CFGGraph, failed map[string]error) {
	cg = &lattice.CFGGraph{}
	for _, f := range funcs {
		g, err := flow.Build(f.Insts, f.Entry, opts)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[f.Name] = err
			continue
		}
		cg.Funcs = append(cg.Funcs, FlatCFG(f.Name, g, f.Insts, names))
	}
	return cg, failed
}
