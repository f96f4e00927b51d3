package disasm

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"edeco/internal/flow"
)

const x86Mode = 64

// DecodeX86 decodes x86-64 code linearly. A byte that does not start a
// valid instruction becomes a one-byte ".byte" instruction and decoding
// resumes after it. x86asm reports a truncated instruction as a bare
// prefix with Op 0; that counts as undecodable too.
func DecodeX86(data []byte, opts Options) []flow.Inst {
	limit := opts.effectiveMax()
	var result []flow.Inst
	for off := 0; off < len(data) && len(result) < limit; {
		addr := opts.BaseAddr + uint64(off)
		inst, err := x86asm.Decode(data[off:], x86Mode)
		if err != nil || inst.Len == 0 || inst.Op == 0 {
			result = append(result, flow.Inst{
				Addr: addr,
				Size: 1,
				Text: fmt.Sprintf(".byte 0x%02x", data[off]),
			})
			off++
			continue
		}
		in := flow.Inst{
			Addr: addr,
			Size: inst.Len,
			Text: x86asm.IntelSyntax(inst, addr, nil),
		}
		classifyX86(&in, inst)
		result = append(result, in)
		off += inst.Len
	}
	return result
}

func classifyX86(in *flow.Inst, inst x86asm.Inst) {
	switch inst.Op {
	case x86asm.RET, x86asm.LRET:
		in.Kind = flow.Return
		return
	case x86asm.JMP, x86asm.LJMP:
		in.Kind = flow.Jump
	case x86asm.CALL, x86asm.LCALL:
		in.Kind = flow.Call
	case x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE, x86asm.JECXZ, x86asm.JG, x86asm.JGE,
		x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS:
		in.Kind = flow.Branch
	default:
		_, mem := inst.Args[0].(x86asm.Mem)
		in.Stores = mem && inst.Op != x86asm.CMP && inst.Op != x86asm.TEST
		return
	}
	if rel, ok := inst.Args[0].(x86asm.Rel); ok {
		in.Target = uint64(int64(in.Addr) + int64(inst.Len) + int64(rel))
		return
	}
	in.Dynamic = true
}
