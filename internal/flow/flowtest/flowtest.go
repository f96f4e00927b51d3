// Package flowtest builds synthetic instruction streams for tests.
package flowtest

import (
	"fmt"

	"edeco/internal/flow"
)

// Stride is the address distance between consecutive instructions.
const Stride = 4

// Addr returns the address of instruction i.
func Addr(i int) uint64 { return uint64(i * Stride) }

// Prog is an editable stream of plain instructions.
type Prog []flow.Inst

// New returns n plain instructions at addresses 0, 4, 8, ...
func New(n int) Prog {
	p := make(Prog, n)
	for i := range p {
		p[i] = flow.Inst{Addr: Addr(i), Size: Stride, Text: "nop"}
	}
	return p
}

// Jmp makes instruction i an unconditional jump to instruction to.
func (p Prog) Jmp(i, to int) Prog {
	p[i].Kind, p[i].Target, p[i].Text = flow.Jump, Addr(to), fmt.Sprintf("j %d", to)
	return p
}

// Br makes instruction i a conditional branch to instruction to.
func (p Prog) Br(i, to int) Prog {
	p[i].Kind, p[i].Target, p[i].Text = flow.Branch, Addr(to), fmt.Sprintf("b %d", to)
	return p
}

// Ret makes instruction i a return.
func (p Prog) Ret(i int) Prog {
	p[i].Kind, p[i].Text = flow.Return, "ret"
	return p
}

// Call makes instruction i a call to address target.
func (p Prog) Call(i int, target uint64) Prog {
	p[i].Kind, p[i].Target, p[i].Text = flow.Call, target, fmt.Sprintf("call 0x%x", target)
	return p
}

// Dyn makes instruction i a jump through a register.
func (p Prog) Dyn(i int) Prog {
	p[i].Kind, p[i].Dynamic, p[i].Text = flow.Jump, true, "jx a0"
	return p
}

// Insts returns the stream.
func (p Prog) Insts() []flow.Inst { return []flow.Inst(p) }
