package disasm

import (
	"encoding/binary"
	"strings"
	"testing"

	"edeco/internal/flow"
)

func words(ws ...uint32) []byte {
	data := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}

const nop = 0xd503201f

func TestDecodeARM64NOP(t *testing.T) {
	insts := DecodeARM64(words(nop, nop), Options{BaseAddr: 0x1000})
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Addr != 0x1000 || insts[1].Addr != 0x1004 {
		t.Errorf("addrs = 0x%x 0x%x, want 0x1000 0x1004", insts[0].Addr, insts[1].Addr)
	}
	if !strings.Contains(strings.ToLower(insts[0].Text), "nop") {
		t.Errorf("expected NOP, got: %s", insts[0].Text)
	}
	if insts[0].Kind != flow.Plain || insts[0].Size != 4 {
		t.Errorf("nop = %+v", insts[0])
	}
}

func TestDecodeARM64Flow(t *testing.T) {
	data := words(
		0x54000040, // b.eq +8
		0x94000010, // bl +0x40
		0xD61F0200, // br x16
		0x17FFFFFD, // b -12
		0xD65F03C0, // ret
		0xF9000020, // str x0, [x1]
	)
	insts := DecodeARM64(data, Options{BaseAddr: 0x2000})
	want := []struct {
		kind    flow.Kind
		target  uint64
		dynamic bool
	}{
		{flow.Branch, 0x2008, false},
		{flow.Call, 0x2044, false},
		{flow.Jump, 0, true},
		{flow.Jump, 0x2000, false},
		{flow.Return, 0, false},
		{flow.Plain, 0, false},
	}
	if len(insts) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(insts), len(want))
	}
	for i, w := range want {
		got := insts[i]
		if got.Kind != w.kind || got.Target != w.target || got.Dynamic != w.dynamic {
			t.Errorf("inst %d (%s) = %s/0x%x/%v, want %s/0x%x/%v",
				i, got.Text, got.Kind, got.Target, got.Dynamic, w.kind, w.target, w.dynamic)
		}
	}
	if !insts[5].Stores {
		t.Errorf("str not marked as a store")
	}
}

func TestDecodeARM64MaxSteps(t *testing.T) {
	ws := make([]uint32, 100)
	for i := range ws {
		ws[i] = nop
	}
	insts := DecodeARM64(words(ws...), Options{MaxSteps: 10})
	if len(insts) != 10 {
		t.Fatalf("got %d instructions, want 10", len(insts))
	}
}

func TestDecodeARM64Short(t *testing.T) {
	if insts := DecodeARM64(nil, Options{}); len(insts) != 0 {
		t.Fatalf("got %d instructions for nil data", len(insts))
	}
	if insts := DecodeARM64([]byte{0x01, 0x02}, Options{}); len(insts) != 0 {
		t.Fatalf("got %d instructions for 2 bytes", len(insts))
	}
}

func TestDecodeX86Flow(t *testing.T) {
	// nop; je +2; call +0x10; jmp rax; jmp self; ret
	data := []byte{
		0x90,
		0x74, 0x02,
		0xE8, 0x10, 0x00, 0x00, 0x00,
		0xFF, 0xE0,
		0xEB, 0xFE,
		0xC3,
	}
	insts := DecodeX86(data, Options{BaseAddr: 0x400000})
	if len(insts) != 6 {
		t.Fatalf("got %d instructions, want 6", len(insts))
	}
	checks := []struct {
		i      int
		kind   flow.Kind
		target uint64
	}{
		{0, flow.Plain, 0},
		{1, flow.Branch, 0x400005},
		{2, flow.Call, 0x400018},
		{4, flow.Jump, 0x40000A},
		{5, flow.Return, 0},
	}
	for _, c := range checks {
		if got := insts[c.i]; got.Kind != c.kind || got.Target != c.target {
			t.Errorf("inst %d (%s) = %s/0x%x, want %s/0x%x", c.i, got.Text, got.Kind, got.Target, c.kind, c.target)
		}
	}
	if !insts[3].Dynamic || insts[3].Kind != flow.Jump {
		t.Errorf("jmp rax = %+v, want dynamic jump", insts[3])
	}
	if insts[2].Size != 5 {
		t.Errorf("call size = %d, want 5", insts[2].Size)
	}
}

func TestDecodeX86Truncated(t *testing.T) {
	// ret, then a call cut off after one byte of its displacement.
	insts := DecodeX86([]byte{0xC3, 0xE8, 0x01}, Options{})
	if len(insts) != 3 {
		t.Fatalf("got %d instructions, want 3", len(insts))
	}
	if insts[0].Kind != flow.Return {
		t.Errorf("ret = %+v", insts[0])
	}
	for _, in := range insts[1:] {
		if !strings.HasPrefix(in.Text, ".byte") || in.Size != 1 {
			t.Errorf("truncated byte = %+v", in)
		}
	}
}

func TestDecodeX86TruncatedAtEnd(t *testing.T) {
	tests := [][]byte{
		{0xE8},       // call opcode only
		{0xE9, 0x00}, // jmp rel32 cut short
		{0x90, 0x0F}, // nop, then a lone two-byte escape
	}
	for _, data := range tests {
		for _, in := range DecodeX86(data, Options{}) {
			if in.Text == "nop" {
				continue
			}
			if !strings.HasPrefix(in.Text, ".byte") || in.Size != 1 || in.Kind != flow.Plain {
				t.Errorf("% x: got %+v, want a plain .byte", data, in)
			}
		}
	}
}

func TestDecodeUnknownArch(t *testing.T) {
	if _, err := Decode("mips", nil, Options{}); err == nil {
		t.Fatal("expected error for mips")
	}
	if !Supported(ARM64) || Supported("fuc") {
		t.Fatal("Supported disagrees with Decode")
	}
}

func TestFormat(t *testing.T) {
	insts := DecodeARM64(words(nop, 0x97FFFFFF), Options{BaseAddr: 0x1000})
	syms := map[uint64]string{0x1000: "nop_func"}
	text := Format(insts, PlaceholderLookup(syms))
	if !strings.Contains(text, "0x00001000") {
		t.Errorf("missing address in output: %s", text)
	}
	if !strings.Contains(text, "nop_func:") {
		t.Errorf("missing symbol header in output: %s", text)
	}
	if !strings.Contains(text, "call 0x1000 <nop_func>") {
		t.Errorf("missing call annotation in output: %s", text)
	}
	if Format(insts, nil) != Format(insts, nil) {
		t.Error("non-deterministic output")
	}
}
