package listing

import (
	"fmt"
	"strings"

	"edeco/internal/flow"
)

// Architectures with a mnemonic table.
const (
	ArchFuc    = "fuc"
	ArchXtensa = "xtensa"
)

const noTarget = -1

// rule is the flow effect of one mnemonic with its operands.
type rule struct {
	kind    flow.Kind
	target  int // operand index of the target, or noTarget
	dynamic bool
	stores  bool
}

type table func(mnemonic string, ops []string) rule

var tables = map[string]table{
	ArchFuc:    fucRule,
	ArchXtensa: xtensaRule,
}

func (t table) classify(l line) (flow.Inst, error) {
	r := t(l.mnemonic, l.operands)
	in := flow.Inst{
		Addr:   l.addr,
		Size:   l.size,
		Text:   l.text(),
		Kind:   r.kind,
		Stores: r.stores,
	}
	if r.kind == flow.Plain || r.kind == flow.Return {
		return in, nil
	}
	if r.dynamic {
		in.Dynamic = true
		return in, nil
	}
	if r.target < 0 || r.target >= len(l.operands) {
		return flow.Inst{}, fmt.Errorf("%s: missing target operand", l.mnemonic)
	}
	if v, ok := parseTarget(l.operands[r.target], l.hexBare); ok {
		in.Target = v
	} else {
		in.Dynamic = true
	}
	return in, nil
}

// fuc: bra [cond] target, call target, ret.
func fucRule(mnemonic string, ops []string) rule {
	switch mnemonic {
	case "bra":
		if len(ops) == 1 {
			return rule{kind: flow.Jump, target: 0}
		}
		return rule{kind: flow.Branch, target: len(ops) - 1}
	case "call":
		return rule{kind: flow.Call, target: 0}
	case "ret", "iret":
		return rule{kind: flow.Return, target: noTarget}
	case "st":
		return rule{target: noTarget, stores: true}
	}
	return rule{target: noTarget}
}

var xtensaBranches = map[string]bool{
	"beqz": true, "bnez": true, "bgez": true, "bltz": true,
	"beqi": true, "bnei": true, "bgei": true, "blti": true,
	"bgeui": true, "bltui": true, "bbci": true, "bbsi": true,
	"beq": true, "bne": true, "bge": true, "blt": true,
	"bgeu": true, "bltu": true, "bany": true, "bnone": true,
	"ball": true, "bnall": true, "bbc": true, "bbs": true,
	"bt": true, "bf": true,
}

var xtensaStores = map[string]bool{
	"s8i": true, "s16i": true, "s32i": true, "s32i.n": true,
	"s32c1i": true, "s32e": true, "s32ri": true,
	"ssi": true, "ssip": true, "ssx": true, "ssxu": true,
}

func xtensaRule(mnemonic string, ops []string) rule {
	base := strings.TrimSuffix(strings.TrimSuffix(mnemonic, ".n"), ".w18")
	switch {
	case xtensaBranches[base]:
		// beqz a2, target; beq a2, a3, target
		if strings.HasSuffix(base, "z") || base == "bt" || base == "bf" {
			return rule{kind: flow.Branch, target: 1}
		}
		return rule{kind: flow.Branch, target: 2}
	case base == "j":
		return rule{kind: flow.Jump, target: 0}
	case base == "jx":
		return rule{kind: flow.Jump, target: noTarget, dynamic: true}
	case base == "call0" || base == "call4" || base == "call8" || base == "call12" || base == "call":
		return rule{kind: flow.Call, target: len(ops) - 1}
	case strings.HasPrefix(base, "callx"):
		return rule{kind: flow.Call, target: noTarget, dynamic: true}
	case base == "ret" || base == "retw":
		return rule{kind: flow.Return, target: noTarget}
	case xtensaStores[mnemonic]:
		return rule{target: noTarget, stores: true}
	}
	return rule{target: noTarget}
}
