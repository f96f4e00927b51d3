package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"edeco/internal/callgraph"
	"edeco/internal/disasm"
	"edeco/internal/elfx"
	"edeco/internal/flow"
	"edeco/internal/listing"
)

// program is a decoded input: one instruction stream in address order plus
// the names known for its addresses.
type program struct {
	arch  string
	insts []flow.Inst
	names map[uint64]string
	index map[uint64]int
}

func (p *program) namer() callgraph.Namer {
	return func(addr uint64) (string, bool) {
		name, ok := p.names[addr]
		return name, ok
	}
}

// load decodes path according to the configured format.
func (a *app) load(path string) (*program, error) {
	var (
		p   *program
		err error
	)
	switch a.cfg.Format {
	case "elf":
		p, err = a.loadELF(path)
	default:
		p, err = a.loadListing(path)
	}
	if err != nil {
		return nil, err
	}
	p.index = flow.Index(p.insts)
	a.log.Debug().Str("arch", p.arch).Int("insts", len(p.insts)).Int("names", len(p.names)).Msg("loaded")
	return p, nil
}

func (a *app) loadELF(path string) (*program, error) {
	ef, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	defer ef.Close()

	arch := ef.Arch()
	if a.cfg.Arch != "" {
		arch = a.cfg.Arch
	}
	if !disasm.Supported(disasm.Arch(arch)) {
		return nil, fmt.Errorf("no raw decoder for %s; use an objdump or envydis listing", arch)
	}
	secs, err := ef.ExecSections()
	if err != nil {
		return nil, err
	}

	p := &program{arch: arch, names: ef.Symbols()}
	for _, s := range secs {
		insts, err := disasm.Decode(disasm.Arch(arch), s.Data, disasm.Options{BaseAddr: s.Addr})
		if err != nil {
			return nil, err
		}
		// sections are address ordered; drop any overlap
		for len(insts) > 0 && len(p.insts) > 0 && insts[0].Addr <= p.insts[len(p.insts)-1].Addr {
			insts = insts[1:]
		}
		p.insts = append(p.insts, insts...)
	}
	return p, nil
}

func (a *app) loadListing(path string) (*program, error) {
	if a.cfg.Arch == "" {
		return nil, fmt.Errorf("--arch is required for %s listings", a.cfg.Format)
	}
	l, err := listing.ParseFile(path, listing.Options{
		Format: listing.Format(a.cfg.Format),
		Arch:   a.cfg.Arch,
		Strict: a.cfg.Strict(),
		Logger: &a.log,
	})
	if err != nil {
		return nil, err
	}
	if n := len(l.Skipped); n > 0 {
		a.log.Warn().Int("lines", n).Int("first", l.Skipped[0].Line).Msg("skipped malformed listing lines")
	}
	return &program{arch: a.cfg.Arch, insts: l.Insts, names: l.Funcs}, nil
}

// entry resolves an --entry value: a symbol name, 0x-prefixed hex or a
// bare hex address.
func (p *program) entry(s string) (uint64, error) {
	for addr, name := range p.names {
		if name == s {
			return addr, nil
		}
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("entry %q is neither a known symbol nor an address", s)
	}
	if _, ok := p.index[v]; !ok {
		return 0, fmt.Errorf("entry 0x%x is not an instruction address", v)
	}
	return v, nil
}

// entries resolves the --entry values, or harvests every candidate when
// all is set.
func (p *program) entries(values []string, all bool) ([]uint64, error) {
	if all {
		return callgraph.Entries(p.insts, p.names), nil
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("--entry or --all is required")
	}
	var out []uint64
	for _, v := range values {
		addr, err := p.entry(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// function is the instruction slice of one function.
type function struct {
	name   string
	entry  uint64
	bounds flow.Range
	insts  []flow.Inst
}

// function runs the boundary finder from entry.
func (p *program) function(entry uint64) (*function, error) {
	idx, ok := p.index[entry]
	if !ok {
		return nil, fmt.Errorf("entry 0x%x is not an instruction address", entry)
	}
	r, err := flow.Find(p.insts, idx)
	if err != nil {
		return nil, err
	}
	return &function{
		name:   p.namer().Name(entry),
		entry:  entry,
		bounds: r,
		insts:  p.insts[r.First : r.Last+1],
	}, nil
}
