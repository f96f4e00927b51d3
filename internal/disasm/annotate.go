package disasm

import (
	"fmt"

	"edeco/internal/closure"
	"edeco/internal/flow"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst flow.Inst) string

// StoreAnnotator marks instructions that write memory.
func StoreAnnotator() Annotator {
	return func(inst flow.Inst) string {
		if inst.Stores {
			return "store"
		}
		return ""
	}
}

// LeafAnnotator marks the first instruction of every leaf in a flat graph
// built over insts. Leaf ranges index into insts.
func LeafAnnotator(g *closure.Graph, insts []flow.Inst) Annotator {
	starts := make(map[uint64]string)
	for _, id := range g.Nodes() {
		if g.Kind(id) != closure.KindLeaf {
			continue
		}
		lo, hi := g.Range(id)
		if lo < 0 || lo >= len(insts) {
			continue
		}
		starts[insts[lo].Addr] = fmt.Sprintf("leaf [%d,%d)", lo, hi)
	}
	return func(inst flow.Inst) string {
		return starts[inst.Addr]
	}
}
