package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"edeco/internal/flow"
)

// DecodeARM64 decodes little-endian ARM64 words. Text comes from arm64asm;
// flow facts come from the raw encoding. Undecodable words become plain
// ".word" instructions.
func DecodeARM64(data []byte, opts Options) []flow.Inst {
	n := len(data) / 4
	if m := opts.effectiveMax(); n > m {
		n = m
	}

	result := make([]flow.Inst, 0, n)
	for i := 0; i < n; i++ {
		off := i * 4
		raw := binary.LittleEndian.Uint32(data[off : off+4])
		addr := opts.BaseAddr + uint64(off)

		in := flow.Inst{Addr: addr, Size: 4}
		if inst, err := arm64asm.Decode(data[off : off+4]); err != nil {
			in.Text = fmt.Sprintf(".word 0x%08x", raw)
		} else {
			in.Text = inst.String()
			in.Stores = storesARM64(inst.Op)
		}
		if bi := DecodeBranch(raw, addr); bi != nil {
			in.Target, in.Dynamic = bi.Target, bi.Dynamic
			switch {
			case bi.IsRet:
				in.Kind = flow.Return
			case bi.IsCall:
				in.Kind = flow.Call
			case bi.Cond:
				in.Kind = flow.Branch
			default:
				in.Kind = flow.Jump
			}
		}
		result = append(result, in)
	}
	return result
}

func storesARM64(op arm64asm.Op) bool {
	name := op.String()
	return strings.HasPrefix(name, "ST") && !strings.HasPrefix(name, "STADD")
}
