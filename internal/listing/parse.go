package listing

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	objdumpHeader = regexp.MustCompile(`^([0-9a-fA-F]+) <([^>]+)>:$`)
	objdumpInst   = regexp.MustCompile(`^([0-9a-fA-F]+):\s*(.*)$`)
	symbolSuffix  = regexp.MustCompile(`<[^>]*>`)
)

var (
	errNoSeparator = errors.New("no opcode separator")
	errOpcode      = errors.New("bad opcode bytes")
	errMnemonic    = errors.New("missing mnemonic")
	errAddress     = errors.New("bad address")
)

// parseObjdump reads
//
//	1234 <name>:
//	1234:	36 41 00	entry	a1, 32
//
// Other lines (file banners, section titles, "...") carry no instruction.
func parseObjdump(s string) (line, *funcHeader, bool, error) {
	if m := objdumpHeader.FindStringSubmatch(s); m != nil {
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return line{}, nil, false, errAddress
		}
		return line{}, &funcHeader{addr: addr, name: m[2]}, false, nil
	}
	m := objdumpInst.FindStringSubmatch(s)
	if m == nil {
		return line{}, nil, false, nil
	}
	addr, err := strconv.ParseUint(m[1], 16, 64)
	if err != nil {
		return line{}, nil, false, errAddress
	}

	bytes, rest, ok := splitOpcode(m[2])
	if !ok {
		return line{}, nil, false, errNoSeparator
	}
	size := 0
	for _, f := range strings.Fields(bytes) {
		if !isHex(f) || len(f)%2 != 0 {
			return line{}, nil, false, errOpcode
		}
		size += len(f) / 2
	}

	rest = symbolSuffix.ReplaceAllString(rest, "")
	if i := strings.IndexAny(rest, "#;"); i >= 0 {
		rest = rest[:i]
	}
	mnemonic, ops := fields(rest)
	if mnemonic == "" {
		return line{}, nil, false, errMnemonic
	}
	return line{addr: addr, size: size, mnemonic: mnemonic, operands: ops, hexBare: true}, nil, true, nil
}

// parseEnvydis reads
//
//	000123: 0000f4bd  BC bra 0x123
//
// Uppercase tokens after the opcode are flags and are dropped.
func parseEnvydis(s string) (line, *funcHeader, bool, error) {
	a, rest, ok := strings.Cut(s, ":")
	if !ok {
		return line{}, nil, false, errNoSeparator
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(a), 16, 64)
	if err != nil {
		return line{}, nil, false, errAddress
	}
	opcode, rest, ok := strings.Cut(strings.TrimSpace(rest), "  ")
	if !ok {
		return line{}, nil, false, errNoSeparator
	}
	opcode = strings.TrimSpace(opcode)
	if !isHex(opcode) {
		return line{}, nil, false, errOpcode
	}

	var kept []string
	for _, tok := range strings.Fields(rest) {
		if !isFlag(tok) {
			kept = append(kept, tok)
		}
	}
	mnemonic, ops := fields(strings.Join(kept, " "))
	if mnemonic == "" {
		return line{}, nil, false, errMnemonic
	}
	return line{addr: addr, size: (len(opcode) + 1) / 2, mnemonic: mnemonic, operands: ops}, nil, true, nil
}

// splitOpcode separates the byte column from the instruction text, at the
// first tab or run of two spaces.
func splitOpcode(s string) (bytes, rest string, ok bool) {
	if b, r, found := strings.Cut(s, "\t"); found && strings.TrimSpace(b) != "" {
		return b, strings.TrimSpace(r), true
	}
	b, r, found := strings.Cut(strings.TrimSpace(s), "  ")
	return b, strings.TrimSpace(r), found
}

// fields splits instruction text into the mnemonic and its operands.
// Operands are separated by commas, whitespace or both.
func fields(s string) (string, []string) {
	toks := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(toks) == 0 {
		return "", nil
	}
	return toks[0], toks[1:]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func isFlag(tok string) bool {
	for _, r := range tok {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return tok != ""
}

// parseImm reads 0x.., -0x.. and decimal immediates.
func parseImm(s string) (int64, bool) {
	switch {
	case strings.HasPrefix(s, "0x"):
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return int64(v), err == nil
	case strings.HasPrefix(s, "-0x"):
		v, err := strconv.ParseUint(s[3:], 16, 64)
		return -int64(v), err == nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// parseTarget reads a jump or call target. objdump prints bare addresses
// in hex.
func parseTarget(s string, hexBare bool) (uint64, bool) {
	if hexBare && isHex(s) {
		v, err := strconv.ParseUint(s, 16, 64)
		return v, err == nil
	}
	v, ok := parseImm(s)
	return uint64(v), ok
}
