package flow

import (
	"fmt"

	"github.com/tidwall/btree"
)

// Range is the instruction slice of one function: indices First through
// Last, both inclusive.
type Range struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Len returns the number of instructions in the range.
func (r Range) Len() int { return r.Last - r.First + 1 }

// Find determines where the function entered at insts[entry] ends.
//
// It scans forward keeping the set of forward jump targets not reached yet.
// A jump before the entry escapes the function. At each return the targets
// already behind it are dropped; when none are left the function ends at
// that return.
func Find(insts []Inst, entry int) (Range, error) {
	if entry < 0 || entry >= len(insts) {
		return Range{}, &BoundsError{Reason: fmt.Sprintf("entry index %d outside stream of %d", entry, len(insts))}
	}
	base := insts[entry].Addr

	var pending btree.Set[uint64]
	for i := entry; i < len(insts); i++ {
		in := insts[i]
		if t, ok := in.StaticTarget(); ok {
			if t < base {
				return Range{}, &BoundsError{
					Addr:   in.Addr,
					Reason: fmt.Sprintf("jump to 0x%x escapes function start 0x%x", t, base),
				}
			}
			if t > in.Addr {
				pending.Insert(t)
			}
		}
		if !in.Breaks() {
			continue
		}
		var behind []uint64
		pending.Scan(func(t uint64) bool {
			if t > in.Addr {
				return false
			}
			behind = append(behind, t)
			return true
		})
		for _, t := range behind {
			pending.Delete(t)
		}
		if pending.Len() == 0 {
			return Range{First: entry, Last: i}, nil
		}
	}

	last := insts[len(insts)-1].Addr
	if pending.Len() > 0 {
		return Range{}, &BoundsError{
			Addr:   last,
			Reason: fmt.Sprintf("stream ends with %d jump targets outstanding", pending.Len()),
		}
	}
	return Range{}, &BoundsError{Addr: last, Reason: "stream ends before the function returns"}
}
