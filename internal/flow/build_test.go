package flow_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"edeco/internal/closure"
	"edeco/internal/flow"
	"edeco/internal/flow/flowtest"
)

// edges lists every edge reachable from Start as "from->to" labels.
func edges(g *closure.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		for _, f := range g.Following(n) {
			out = append(out, g.Label(n)+"->"+g.Label(f))
		}
	}
	sort.Strings(out)
	return out
}

func mustBuild(t *testing.T, p flowtest.Prog) *closure.Graph {
	t.Helper()
	g, err := flow.Build(p.Insts(), 0, flow.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuildStraightLine(t *testing.T) {
	g := mustBuild(t, flowtest.New(3).Ret(2))
	want := []string{"leaf[0,3)->end", "start->leaf[0,3)"}
	if diff := cmp.Diff(want, edges(g)); diff != "" {
		t.Fatalf("edges (-want +got):\n%s", diff)
	}
}

func TestBuildIfThen(t *testing.T) {
	// 1 branches over 2 to 3; 4 returns.
	g := mustBuild(t, flowtest.New(5).Br(1, 3).Ret(4))
	want := []string{
		"leaf[0,2)->leaf[2,3)",
		"leaf[0,2)->leaf[3,5)",
		"leaf[2,3)->leaf[3,5)",
		"leaf[3,5)->end",
		"start->leaf[0,2)",
	}
	if diff := cmp.Diff(want, edges(g)); diff != "" {
		t.Fatalf("edges (-want +got):\n%s", diff)
	}
}

func TestBuildBackwardBranchSplits(t *testing.T) {
	// 4 branches back to 1; 5 returns.
	g := mustBuild(t, flowtest.New(6).Br(4, 1).Ret(5))
	want := []string{
		"leaf[0,1)->leaf[1,5)",
		"leaf[1,5)->leaf[1,5)",
		"leaf[1,5)->leaf[5,6)",
		"leaf[5,6)->end",
		"start->leaf[0,1)",
	}
	if diff := cmp.Diff(want, edges(g)); diff != "" {
		t.Fatalf("edges (-want +got):\n%s", diff)
	}
}

func TestBuildJoinInsideExistingNode(t *testing.T) {
	// 0 branches to 4; the fall-through jumps from 2 to the return at 5,
	// so scanning from 4 runs into the leaf already built at 5.
	p := flowtest.New(7).Br(0, 4).Jmp(2, 5).Ret(5)
	g := mustBuild(t, p)
	want := []string{
		"leaf[0,1)->leaf[1,3)",
		"leaf[0,1)->leaf[4,5)",
		"leaf[1,3)->leaf[5,6)",
		"leaf[4,5)->leaf[5,6)",
		"leaf[5,6)->end",
		"start->leaf[0,1)",
	}
	if diff := cmp.Diff(want, edges(g)); diff != "" {
		t.Fatalf("edges (-want +got):\n%s", diff)
	}
}

func TestBuildRunsIntoExistingNode(t *testing.T) {
	// 0 branches to 2; the fall-through is built first and covers 1..3,
	// so the target splits it at 2.
	g := mustBuild(t, flowtest.New(4).Br(0, 2).Ret(3))
	want := []string{
		"leaf[0,1)->leaf[1,2)",
		"leaf[0,1)->leaf[2,4)",
		"leaf[1,2)->leaf[2,4)",
		"leaf[2,4)->end",
		"start->leaf[0,1)",
	}
	if diff := cmp.Diff(want, edges(g)); diff != "" {
		t.Fatalf("edges (-want +got):\n%s", diff)
	}
}

func TestBuildRangesDoNotOverlap(t *testing.T) {
	p := flowtest.New(12).Br(1, 6).Br(3, 1).Jmp(5, 9).Br(7, 3).Ret(8).Br(10, 6).Ret(11)
	g := mustBuild(t, p)
	covered := make(map[int]int)
	for _, n := range g.Nodes() {
		if g.Kind(n) != closure.KindLeaf {
			continue
		}
		lo, hi := g.Range(n)
		for i := lo; i < hi; i++ {
			covered[i]++
		}
	}
	for i, c := range covered {
		if c != 1 {
			t.Fatalf("instruction %d covered %d times", i, c)
		}
	}
	if len(g.Preceding(g.Start())) != 0 {
		t.Fatalf("start has predecessors")
	}
	if len(g.Following(g.End())) != 0 {
		t.Fatalf("end has successors")
	}
}

func TestBuildDynamicJump(t *testing.T) {
	p := flowtest.New(5).Br(1, 3).Dyn(2).Ret(4)
	g, err := flow.Build(p.Insts(), 0, flow.Options{})
	if !errors.Is(err, flow.ErrUnsupportedFlow) {
		t.Fatalf("err = %v, want ErrUnsupportedFlow", err)
	}
	var ue *flow.UnsupportedFlowError
	if !errors.As(err, &ue) || ue.Addr != flowtest.Addr(2) {
		t.Fatalf("err = %#v, want dynamic jump at 0x%x", err, flowtest.Addr(2))
	}
	if g != nil {
		t.Fatalf("partial graph returned")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		prog  flowtest.Prog
		start uint64
	}{
		{"start missing", flowtest.New(2).Ret(1), 0x1000},
		{"runs off end", flowtest.New(3), 0},
		{"target outside", flowtest.New(3).Jmp(1, 40).Ret(2), 0},
		{"branch at end", flowtest.New(3).Br(2, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := flow.Build(tt.prog.Insts(), tt.start, flow.Options{})
			if !errors.Is(err, flow.ErrBounds) {
				t.Fatalf("err = %v, want ErrBounds", err)
			}
			if g != nil {
				t.Fatalf("partial graph returned")
			}
		})
	}
}

func TestBuildCallsFallThrough(t *testing.T) {
	g := mustBuild(t, flowtest.New(4).Call(1, 0x400).Ret(3))
	if n := len(g.Nodes()); n != 3 {
		t.Fatalf("nodes = %d, want 3", n)
	}
}
