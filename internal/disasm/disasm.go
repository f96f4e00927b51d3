// Package disasm decodes raw machine code into flow facts.
package disasm

import (
	"fmt"
	"strings"

	"edeco/internal/flow"
)

// Arch names an instruction set with a raw decoder.
type Arch string

const (
	ARM64 Arch = "arm64"
	X8664 Arch = "x86-64"
)

// SymbolLookup resolves an address to a symbolic name. Returns ("", false) if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Options controls disassembly behavior.
type Options struct {
	BaseAddr uint64 // VA of the first byte in Data
	MaxSteps int    // maximum instructions to decode; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Decode dispatches to the decoder for arch.
func Decode(arch Arch, data []byte, opts Options) ([]flow.Inst, error) {
	switch arch {
	case ARM64:
		return DecodeARM64(data, opts), nil
	case X8664:
		return DecodeX86(data, opts), nil
	}
	return nil, fmt.Errorf("disasm: no raw decoder for %q", arch)
}

// Supported reports whether arch has a raw decoder.
func Supported(arch Arch) bool {
	return arch == ARM64 || arch == X8664
}

// Format renders a slice of instructions as stable text output.
// Each line: <addr>  <disasm>  ; <comments>
func Format(insts []flow.Inst, lookup SymbolLookup, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		if lookup != nil {
			if name, ok := lookup(inst.Addr); ok {
				fmt.Fprintf(&b, "%s:\n", name)
			}
		}
		fmt.Fprintf(&b, "0x%08x  %-40s", inst.Addr, inst.Text)
		switch {
		case inst.Dynamic:
			fmt.Fprintf(&b, "  ; %s ?", inst.Kind)
		case inst.Kind != flow.Plain && inst.Kind != flow.Return:
			fmt.Fprintf(&b, "  ; %s 0x%x", inst.Kind, inst.Target)
			if lookup != nil {
				if name, ok := lookup(inst.Target); ok {
					fmt.Fprintf(&b, " <%s>", name)
				}
			}
		case inst.Kind == flow.Return:
			b.WriteString("  ; return")
		}
		for _, a := range annotators {
			if note := a(inst); note != "" {
				fmt.Fprintf(&b, "  ; %s", note)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PlaceholderLookup returns a SymbolLookup over a fixed name table.
func PlaceholderLookup(names map[uint64]string) SymbolLookup {
	return func(addr uint64) (string, bool) {
		name, ok := names[addr]
		return name, ok
	}
}
