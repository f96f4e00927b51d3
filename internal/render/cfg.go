package render

import (
	"fmt"
	"strings"

	"github.com/zboralski/lattice"

	"edeco/internal/flow"
)

const maxInstText = 60

// CFGDOT renders a per-function basic-block CFG as DOT with the instruction
// text of each block. Block ranges index insts. Blocks without
// predecessors are highlighted as entries; edges carry the T/F labels of
// their successor.
func CFGDOT(cfg *lattice.FuncCFG, insts []flow.Inst, t Theme) string {
	if len(cfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	header(&b, "cfg", cfg.Name, t)

	preds := make(map[int]int)
	for _, blk := range cfg.Blocks {
		for _, s := range blk.Succs {
			preds[s.BlockID]++
		}
	}

	for _, blk := range cfg.Blocks {
		id := fmt.Sprintf("bb%d", blk.ID)

		var lines []string
		end := blk.End
		if end > len(insts) {
			end = len(insts)
		}
		for i := blk.Start; i < end; i++ {
			inst := insts[i]
			line := fmt.Sprintf("0x%x: %s", inst.Addr, truncLabel(inst.Text, maxInstText))
			lines = append(lines, dotEscape(line))
		}
		// Truncate long blocks.
		if len(lines) > 12 {
			kept := append(lines[:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}

		label := strings.Join(lines, "<br align=\"left\"/>")
		label += "<br align=\"left\"/>"

		attrs := ""
		if preds[blk.ID] == 0 {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EdgeTaken)
		}
		if blk.Term {
			attrs += fmt.Sprintf(", fillcolor=%q", t.GhostFill)
		}
		fmt.Fprintf(&b, "  %s [label=<%s>%s];\n", id, label, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		from := fmt.Sprintf("bb%d", blk.ID)
		for _, s := range blk.Succs {
			to := fmt.Sprintf("bb%d", s.BlockID)
			backward := s.BlockID <= blk.ID
			switch {
			case s.Cond == "T":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>%s];\n",
					from, to, t.EdgeTaken, t.EdgeTaken, backStyle(backward))
			case s.Cond == "F":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>%s];\n",
					from, to, t.EdgeFall, t.EdgeFall, backStyle(backward))
			case backward:
				fmt.Fprintf(&b, "  %s -> %s [color=%q%s];\n", from, to, t.EdgeReverse, backStyle(backward))
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeFlow)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func backStyle(backward bool) string {
	if backward {
		return ", style=dashed"
	}
	return ""
}
