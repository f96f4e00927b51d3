// Package listing parses text disassembly listings (objdump, envydis) into
// flow facts for the fuc and xtensa architectures.
package listing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"edeco/internal/flow"
)

// Format names a listing syntax.
type Format string

const (
	Objdump Format = "objdump"
	Envydis Format = "envydis"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("listing: malformed line")

// ErrUnknown is returned for an unknown format or architecture.
var ErrUnknown = errors.New("listing: unknown format or architecture")

// ParseError reports one line that looks like an instruction but could not
// be read.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("listing: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Options selects the syntax and instruction set of a listing.
type Options struct {
	Format Format
	Arch   string
	Strict bool // fail on the first malformed line instead of skipping it
	Logger *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Listing is a parsed listing.
type Listing struct {
	Insts   []flow.Inst
	Funcs   map[uint64]string // function headers by address
	Skipped []*ParseError
}

// line is one instruction before the mnemonic table is applied.
type line struct {
	addr     uint64
	size     int
	mnemonic string
	operands []string
	hexBare  bool // bare numeric operands are hex addresses
}

func (l line) text() string {
	if len(l.operands) == 0 {
		return l.mnemonic
	}
	return l.mnemonic + " " + strings.Join(l.operands, ", ")
}

// lineParser reads one trimmed, non-empty source line. It returns ok=false
// for lines that carry no instruction, and sets header for function labels.
type lineParser func(s string) (in line, header *funcHeader, ok bool, err error)

type funcHeader struct {
	addr uint64
	name string
}

var parsers = map[Format]lineParser{
	Objdump: parseObjdump,
	Envydis: parseEnvydis,
}

// Parse reads a listing from r.
func Parse(r io.Reader, opts Options) (*Listing, error) {
	parse, ok := parsers[opts.Format]
	if !ok {
		return nil, fmt.Errorf("%w: format %q", ErrUnknown, opts.Format)
	}
	table, ok := tables[opts.Arch]
	if !ok {
		return nil, fmt.Errorf("%w: arch %q", ErrUnknown, opts.Arch)
	}
	log := opts.logger()

	out := &Listing{Funcs: make(map[uint64]string)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "[") {
			continue
		}
		l, hdr, ok, err := parse(s)
		if err == nil && ok {
			var in flow.Inst
			in, err = table.classify(l)
			if err == nil {
				out.Insts = append(out.Insts, in)
			}
		}
		if err != nil {
			pe := &ParseError{Line: n, Text: s, Reason: err.Error()}
			if opts.Strict {
				return nil, pe
			}
			log.Debug().Int("line", n).Str("reason", pe.Reason).Msg("skipped listing line")
			out.Skipped = append(out.Skipped, pe)
			continue
		}
		if hdr != nil {
			out.Funcs[hdr.addr] = hdr.name
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("listing: read: %w", err)
	}
	if err := sorted(out.Insts); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string, opts Options) (*Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("listing: open: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// sorted checks that addresses strictly increase, which the flow builder
// relies on.
func sorted(insts []flow.Inst) error {
	for i := 1; i < len(insts); i++ {
		if insts[i].Addr <= insts[i-1].Addr {
			return fmt.Errorf("listing: address 0x%x follows 0x%x", insts[i].Addr, insts[i-1].Addr)
		}
	}
	return nil
}

// Supported reports whether arch has a mnemonic table.
func Supported(arch string) bool {
	_, ok := tables[arch]
	return ok
}
