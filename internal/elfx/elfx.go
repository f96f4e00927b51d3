// Package elfx loads executable code and symbols from ELF objects.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrNotELF         = errors.New("elfx: not an ELF file")
	ErrUnsupported    = errors.New("elfx: unsupported machine")
	ErrNoSymbol       = errors.New("elfx: symbol not found")
	ErrNoExecSections = errors.New("elfx: no executable section")
)

// Architecture names, matching the decoder names used elsewhere.
const (
	ArchARM64  = "arm64"
	ArchX8664  = "x86-64"
	ArchXtensa = "xtensa"
)

var machines = map[elf.Machine]string{
	elf.EM_AARCH64: ArchARM64,
	elf.EM_X86_64:  ArchX8664,
	elf.EM_XTENSA:  ArchXtensa,
}

// File wraps a debug/elf.File.
type File struct {
	ELF  *elf.File
	file *os.File
	arch string
	size int64
}

// Section is one executable section.
type Section struct {
	Name string
	Addr uint64
	Data []byte
}

// Open opens an ELF file (32- or 64-bit) for one of the supported machines.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}

	arch, ok := machines[ef.Machine]
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ef.Machine)
	}
	return &File{ELF: ef, file: f, arch: arch, size: info.Size()}, nil
}

// Close releases resources.
func (f *File) Close() error {
	return f.file.Close()
}

// Arch returns the architecture name of the file.
func (f *File) Arch() string { return f.arch }

// FileSize returns the size of the underlying file.
func (f *File) FileSize() int64 { return f.size }

// ExecSections returns the contents of every SHF_EXECINSTR section with
// file data, in address order.
func (f *File) ExecSections() ([]Section, error) {
	var out []Section
	for _, s := range f.ELF.Sections {
		if s.Flags&elf.SHF_EXECINSTR == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("elfx: section %s: %w", s.Name, err)
		}
		out = append(out, Section{Name: s.Name, Addr: s.Addr, Data: data})
	}
	if len(out) == 0 {
		return nil, ErrNoExecSections
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out, nil
}

// Containing returns the executable section covering va.
func (f *File) Containing(va uint64) (Section, error) {
	secs, err := f.ExecSections()
	if err != nil {
		return Section{}, err
	}
	for _, s := range secs {
		if va >= s.Addr && va < s.Addr+uint64(len(s.Data)) {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("elfx: VA 0x%x is not in an executable section", va)
}

// Symbols returns the function symbols of the static and dynamic symbol
// tables by address. A missing table is not an error.
func (f *File) Symbols() map[uint64]string {
	out := make(map[uint64]string)
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 || s.Name == "" {
				continue
			}
			if _, dup := out[s.Value]; !dup {
				out[s.Value] = s.Name
			}
		}
	}
	if syms, err := f.ELF.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := f.ELF.DynamicSymbols(); err == nil {
		add(syms)
	}
	return out
}

// Symbol looks up a function symbol by exact name.
// Returns the symbol's virtual address and size.
func (f *File) Symbol(name string) (addr, size uint64, err error) {
	for _, get := range []func() ([]elf.Symbol, error){f.ELF.Symbols, f.ELF.DynamicSymbols} {
		syms, err := get()
		if err != nil {
			continue
		}
		for _, s := range syms {
			if s.Name == name {
				return s.Value, s.Size, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrNoSymbol, name)
}
