package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeELF writes a minimal little-endian ELF64 relocatable-style file with
// a .text section at textAddr and one function symbol per entry of funcs.
func writeELF(t *testing.T, machine elf.Machine, textAddr uint64, text []byte, funcs map[string]uint64) string {
	t.Helper()

	shstr := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00")
	const (
		nameText     = 1
		nameSymtab   = 7
		nameStrtab   = 15
		nameShstrtab = 23
	)

	strtab := []byte{0}
	var syms bytes.Buffer
	binary.Write(&syms, binary.LittleEndian, elf.Sym64{})
	for name, addr := range funcs {
		binary.Write(&syms, binary.LittleEndian, elf.Sym64{
			Name:  uint32(len(strtab)),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
			Shndx: 1,
			Value: addr,
			Size:  4,
		})
		strtab = append(append(strtab, name...), 0)
	}

	var body bytes.Buffer
	off := func() uint64 { return 64 + uint64(body.Len()) }
	textOff := off()
	body.Write(text)
	symOff := off()
	body.Write(syms.Bytes())
	strOff := off()
	body.Write(strtab)
	shstrOff := off()
	body.Write(shstr)
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}
	shOff := off()

	sections := []elf.Section64{
		{},
		{Name: nameText, Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr: textAddr, Off: textOff, Size: uint64(len(text)), Addralign: 4},
		{Name: nameSymtab, Type: uint32(elf.SHT_SYMTAB), Off: symOff, Size: uint64(syms.Len()),
			Link: 3, Info: 1, Addralign: 8, Entsize: 24},
		{Name: nameStrtab, Type: uint32(elf.SHT_STRTAB), Off: strOff, Size: uint64(len(strtab)), Addralign: 1},
		{Name: nameShstrtab, Type: uint32(elf.SHT_STRTAB), Off: shstrOff, Size: uint64(len(shstr)), Addralign: 1},
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shOff,
		Ehsize:    64,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  4,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	for _, s := range sections {
		binary.Write(&out, binary.LittleEndian, s)
	}

	path := filepath.Join(t.TempDir(), "sample.elf")
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenValid(t *testing.T) {
	text := []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6}
	path := writeELF(t, elf.EM_AARCH64, 0x400000, text, map[string]uint64{"main": 0x400000})
	ef, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ef.Close()

	if ef.Arch() != ArchARM64 {
		t.Errorf("arch = %q, want %q", ef.Arch(), ArchARM64)
	}
	if ef.FileSize() == 0 {
		t.Error("file size is 0")
	}

	secs, err := ef.ExecSections()
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 1 || secs[0].Name != ".text" || secs[0].Addr != 0x400000 {
		t.Fatalf("sections = %+v", secs)
	}
	if !bytes.Equal(secs[0].Data, text) {
		t.Errorf("text = %x, want %x", secs[0].Data, text)
	}

	s, err := ef.Containing(0x400004)
	if err != nil || s.Name != ".text" {
		t.Errorf("Containing = %+v, %v", s, err)
	}
	if _, err := ef.Containing(0x500000); err == nil {
		t.Error("expected error outside .text")
	}
}

func TestOpenRejectsNonELF(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "notelf")
	if err := os.WriteFile(tmp, []byte("not an ELF file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(tmp)
	if !errors.Is(err, ErrNotELF) {
		t.Fatalf("err = %v, want ErrNotELF", err)
	}
}

func TestOpenRejectsMachine(t *testing.T) {
	path := writeELF(t, elf.EM_MIPS, 0x1000, []byte{0, 0, 0, 0}, nil)
	_, err := Open(path)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestSymbols(t *testing.T) {
	path := writeELF(t, elf.EM_X86_64, 0x1000, make([]byte, 16),
		map[string]uint64{"start": 0x1000, "helper": 0x1008})
	ef, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ef.Close()

	if ef.Arch() != ArchX8664 {
		t.Errorf("arch = %q", ef.Arch())
	}
	syms := ef.Symbols()
	if syms[0x1000] != "start" || syms[0x1008] != "helper" {
		t.Errorf("symbols = %v", syms)
	}

	va, size, err := ef.Symbol("helper")
	if err != nil {
		t.Fatal(err)
	}
	if va != 0x1008 || size != 4 {
		t.Errorf("helper = 0x%x/%d, want 0x1008/4", va, size)
	}

	_, _, err = ef.Symbol("missing")
	if !errors.Is(err, ErrNoSymbol) {
		t.Errorf("err = %v, want ErrNoSymbol", err)
	}
}
