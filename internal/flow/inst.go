// Package flow turns a decoded instruction stream into a flat flow graph
// and finds the instruction range that belongs to one function.
package flow

import "fmt"

// Kind is the flow effect of one instruction.
type Kind uint8

const (
	Plain  Kind = iota // falls through
	Jump               // unconditional jump
	Branch             // conditional jump: target or fall-through
	Call               // calls Target and returns to the next instruction
	Return             // leaves the function
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Jump:
		return "jump"
	case Branch:
		return "branch"
	case Call:
		return "call"
	case Return:
		return "return"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Inst carries the flow facts of one decoded instruction. Decoders for each
// architecture fill it in; nothing in this package looks at Text.
type Inst struct {
	Addr    uint64
	Size    int
	Text    string
	Kind    Kind
	Target  uint64 // jump, branch or call target when !Dynamic
	Dynamic bool   // target only known at run time
	Stores  bool   // writes memory; consumed by value tracing only
}

// Jumps reports whether the instruction transfers control within the
// function (conditionally or not).
func (i Inst) Jumps() bool { return i.Kind == Jump || i.Kind == Branch }

// Conditional reports whether a jump may fall through.
func (i Inst) Conditional() bool { return i.Kind == Branch }

// Calls reports whether the instruction calls another function.
func (i Inst) Calls() bool { return i.Kind == Call }

// Breaks reports whether the instruction returns from the function.
func (i Inst) Breaks() bool { return i.Kind == Return }

// StaticTarget returns the jump target when it is known statically.
func (i Inst) StaticTarget() (uint64, bool) {
	if !i.Jumps() || i.Dynamic {
		return 0, false
	}
	return i.Target, true
}

// Callee returns the call target when it is known statically.
func (i Inst) Callee() (uint64, bool) {
	if !i.Calls() || i.Dynamic {
		return 0, false
	}
	return i.Target, true
}

func (i Inst) String() string {
	if i.Text != "" {
		return fmt.Sprintf("0x%x: %s", i.Addr, i.Text)
	}
	return fmt.Sprintf("0x%x: %s", i.Addr, i.Kind)
}

// Index maps instruction addresses to their position in insts.
func Index(insts []Inst) map[uint64]int {
	m := make(map[uint64]int, len(insts))
	for i, in := range insts {
		m[in.Addr] = i
	}
	return m
}
