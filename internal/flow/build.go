package flow

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/btree"

	"edeco/internal/closure"
)

// Options controls graph construction.
type Options struct {
	Logger *zerolog.Logger // nil: no logging
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

type item struct {
	src closure.ID // node that transfers control
	idx int        // instruction it transfers to
}

type builder struct {
	insts []Inst
	index map[uint64]int
	g     *closure.Graph
	nodes btree.Map[int, closure.ID] // first instruction index -> leaf
	log   zerolog.Logger
}

// Build traces insts from the instruction at start and returns the flat
// flow graph: maximal straight-line leaves between the Start and End
// sentinels, with leaf ranges as indices into insts.
//
// The walk keeps a work list of (source, instruction) pairs. Scanning from
// an instruction closes a leaf at the first return, jump or branch, or
// where it runs into a leaf built earlier. A jump into the middle of an
// existing leaf splits it so that every edge lands on a leaf start.
//
// On error no graph is returned.
func Build(insts []Inst, start uint64, opts Options) (*closure.Graph, error) {
	b := &builder{
		insts: insts,
		index: Index(insts),
		g:     closure.New(),
		log:   opts.logger(),
	}
	first, ok := b.index[start]
	if !ok {
		return nil, &BoundsError{Addr: start, Reason: "start address not in instruction stream"}
	}

	work := []item{{src: b.g.Start(), idx: first}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		next, err := b.trace(it)
		if err != nil {
			return nil, err
		}
		work = append(work, next...)
	}
	b.log.Debug().
		Str("start", fmt.Sprintf("0x%x", start)).
		Int("leaves", b.nodes.Len()).
		Msg("flow graph built")
	return b.g, nil
}

// lookup finds the leaf whose range contains instruction idx.
func (b *builder) lookup(idx int) (closure.ID, bool) {
	found := closure.None
	b.nodes.Descend(idx, func(_ int, id closure.ID) bool {
		if _, hi := b.g.Range(id); idx < hi {
			found = id
		}
		return false
	})
	return found, found != closure.None
}

// join links src into the leaf holding idx, splitting it when idx is not
// its first instruction.
func (b *builder) join(src, n closure.ID, idx int) {
	if lo, _ := b.g.Range(n); idx > lo {
		front := b.g.SplitBefore(n, idx)
		b.nodes.Set(lo, front)
		b.nodes.Set(idx, n)
		b.log.Debug().Int("at", idx).Int("lo", lo).Msg("split flow node")
	}
	b.g.Link(src, n)
}

func (b *builder) close(src closure.ID, lo, hi int) closure.ID {
	id := b.g.NewLeaf(lo, hi)
	b.nodes.Set(lo, id)
	b.g.Link(src, id)
	return id
}

func (b *builder) trace(it item) ([]item, error) {
	if n, ok := b.lookup(it.idx); ok {
		b.join(it.src, n, it.idx)
		return nil, nil
	}

	lo := it.idx
	for i := lo; ; i++ {
		if i >= len(b.insts) {
			return nil, &BoundsError{
				Addr:   b.insts[len(b.insts)-1].Addr,
				Reason: "flow runs past the end of the instruction stream",
			}
		}
		if i > lo {
			if n, ok := b.nodes.Get(i); ok {
				cur := b.close(it.src, lo, i)
				b.g.Link(cur, n)
				return nil, nil
			}
		}

		in := b.insts[i]
		switch in.Kind {
		case Return:
			cur := b.close(it.src, lo, i+1)
			b.g.Link(cur, b.g.End())
			return nil, nil

		case Jump, Branch:
			if in.Dynamic {
				return nil, &UnsupportedFlowError{Addr: in.Addr, Text: in.Text}
			}
			t, ok := b.index[in.Target]
			if !ok {
				return nil, &BoundsError{
					Addr:   in.Target,
					Reason: fmt.Sprintf("jump at 0x%x leaves the instruction stream", in.Addr),
				}
			}
			cur := b.close(it.src, lo, i+1)
			next := []item{{src: cur, idx: t}}
			if in.Kind == Branch {
				if i+1 >= len(b.insts) {
					return nil, &BoundsError{
						Addr:   in.Addr,
						Reason: "branch falls through past the end of the instruction stream",
					}
				}
				// popped first: the fall-through grows before the target
				next = append(next, item{src: cur, idx: i + 1})
			}
			return next, nil
		}
	}
}
