package disasm

// ARM64 control-flow detection from raw 32-bit encodings.

// BranchInfo describes a decoded control-flow instruction.
type BranchInfo struct {
	Target  uint64 // absolute target address (0 if RET or register form)
	Cond    bool   // true if conditional (has fallthrough)
	IsRet   bool   // RET
	IsCall  bool   // BL, BLR
	Dynamic bool   // BR, BLR: target in a register
}

// DecodeBranch attempts to decode a branch, call or return from raw encoding
// at the given PC. Returns nil for anything that simply falls through.
func DecodeBranch(raw uint32, pc uint64) *BranchInfo {
	// RET (0xD65F03C0 exactly, or RET Xn = 0xD65F0000 | Rn<<5)
	if raw&0xFFFFFC1F == 0xD65F0000 {
		return &BranchInfo{IsRet: true}
	}

	// BR Xn
	if raw&0xFFFFFC1F == 0xD61F0000 {
		return &BranchInfo{Dynamic: true}
	}

	// BLR Xn
	if raw&0xFFFFFC1F == 0xD63F0000 {
		return &BranchInfo{IsCall: true, Dynamic: true}
	}

	// B: 000101 imm26, BL: 100101 imm26
	if raw&0x7C000000 == 0x14000000 {
		offset := signExtend(raw&0x03FFFFFF, 26) * 4
		return &BranchInfo{
			Target: uint64(int64(pc) + int64(offset)),
			IsCall: raw&0x80000000 != 0,
		}
	}

	// B.cond: 01010100 imm19 0 cond
	if raw&0xFF000010 == 0x54000000 {
		return &BranchInfo{Target: rel19(raw, pc), Cond: true}
	}

	// CBZ / CBNZ: 0 sf 11010x imm19 Rt
	if raw&0x7E000000 == 0x34000000 {
		return &BranchInfo{Target: rel19(raw, pc), Cond: true}
	}

	// TBZ / TBNZ: 0 b5 11011x b40 imm14 Rt
	if raw&0x7E000000 == 0x36000000 {
		offset := signExtend((raw>>5)&0x3FFF, 14) * 4
		return &BranchInfo{Target: uint64(int64(pc) + int64(offset)), Cond: true}
	}

	return nil
}

func rel19(raw uint32, pc uint64) uint64 {
	offset := signExtend((raw>>5)&0x7FFFF, 19) * 4
	return uint64(int64(pc) + int64(offset))
}

// signExtend sign-extends a value from the given bit width to int32.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask) // negative
	}
	return int32(val & mask)
}
