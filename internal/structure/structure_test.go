package structure_test

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edeco/internal/closure"
	"edeco/internal/flow"
	"edeco/internal/flow/flowtest"
	"edeco/internal/order"
	"edeco/internal/structure"
)

func flat(t *testing.T, p flowtest.Prog) *closure.Graph {
	t.Helper()
	g, err := flow.Build(p.Insts(), 0, flow.Options{})
	require.NoError(t, err)
	return g
}

func run(t *testing.T, p flowtest.Prog, opts structure.Options) *structure.Tree {
	t.Helper()
	tree, err := structure.Structurize(flat(t, p), opts)
	require.NoError(t, err)
	require.NoError(t, tree.Graph.Check(tree.Root))
	return tree
}

// recorder keeps every event it sees.
type recorder struct{ events []closure.Event }

func (r *recorder) Observe(ev closure.Event) { r.events = append(r.events, ev) }

func (r *recorder) stages() []closure.Stage {
	var out []closure.Stage
	for _, ev := range r.events {
		out = append(out, ev.Stage)
	}
	return out
}

func (r *recorder) first(stage closure.Stage) closure.Event {
	for _, ev := range r.events {
		if ev.Stage == stage {
			return ev
		}
	}
	return closure.Event{Node: closure.None}
}

func labels(g *closure.Graph, ids []closure.ID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, g.Label(id))
	}
	return out
}

func find(g *closure.Graph, root closure.ID, kind closure.Kind) closure.ID {
	found := closure.None
	g.Walk(root, func(id closure.ID, _ int) bool {
		if found == closure.None && g.Kind(id) == kind {
			found = id
		}
		return found == closure.None
	})
	return found
}

func TestStraightLine(t *testing.T) {
	tree := run(t, flowtest.New(3).Ret(2), structure.Options{})
	assert.Equal(t, "chain(leaf[0,3))", tree.Shape())
	assert.Equal(t, []int{0, 1, 2}, tree.Graph.Flatten(tree.Root))
	assert.Equal(t, closure.KindChain, tree.Graph.Kind(tree.Root))
}

func TestIfThen(t *testing.T) {
	var rec recorder
	tree := run(t, flowtest.New(5).Br(1, 3).Ret(4), structure.Options{Observer: &rec})
	assert.Equal(t, "chain(leaf[0,2) chain(leaf[2,3)) leaf[3,5))", tree.Shape())

	mesh := rec.first(closure.StageMesh)
	require.NotEqual(t, closure.None, mesh.Node)
	assert.Equal(t, []string{"leaf[2,3)"}, labels(mesh.Graph, mesh.Begins))
	assert.Equal(t, []string{"leaf[2,3)"}, labels(mesh.Graph, mesh.Ends))
}

func TestLoop(t *testing.T) {
	var rec recorder
	tree := run(t, flowtest.New(6).Br(4, 1).Ret(5), structure.Options{Observer: &rec})
	assert.Equal(t, "chain(leaf[0,1) chain*(leaf[1,5)) leaf[5,6))", tree.Shape())
	assert.Equal(t, 1, tree.Ghosts)
	assert.Zero(t, tree.Graph.Count(tree.Root)[closure.KindGhost])

	assert.Equal(t, []closure.Stage{
		closure.StageFlat,
		closure.StageGhosts,
		closure.StageMesh,
		closure.StageResolved,
		closure.StageDone,
	}, rec.stages())

	mesh := rec.first(closure.StageMesh)
	require.Len(t, mesh.Begins, 1)
	require.Len(t, mesh.Ends, 1)
	lo, _ := mesh.Graph.Range(mesh.Begins[0])
	assert.Equal(t, 1, lo, "begin")
	lo, hi := mesh.Graph.Range(mesh.Ends[0])
	assert.True(t, lo <= 4 && 4 < hi, "end covers the backward branch")
	assert.True(t, mesh.Graph.Loop(mesh.Node))
}

func TestWhileLoop(t *testing.T) {
	// 1 tests and leaves to 5; the body 2..4 jumps back to 1.
	tree := run(t, flowtest.New(7).Br(1, 5).Jmp(4, 1).Ret(6), structure.Options{})
	assert.Equal(t, "chain(leaf[0,1) chain*(leaf[1,2) chain(leaf[2,5))) leaf[5,7))", tree.Shape())
}

func TestNestedLoops(t *testing.T) {
	tree := run(t, flowtest.New(8).Br(3, 2).Br(5, 1).Ret(7), structure.Options{})
	assert.Equal(t, "chain(leaf[0,1) chain*(leaf[1,2) chain*(leaf[2,4)) leaf[4,6)) leaf[6,8))", tree.Shape())
}

func TestConvergingBranches(t *testing.T) {
	// 2 and 4 both branch to 7; 0 skips everything to the return at 8.
	p := flowtest.New(9).Br(0, 8).Br(2, 7).Br(4, 7).Jmp(6, 8).Ret(8)
	var rec recorder
	tree := run(t, p, structure.Options{Observer: &rec})
	assert.Equal(t,
		"chain(leaf[0,1) chain(leaf[1,3) bulge(leaf[3,5) leaf[5,7) leaf[7,8))) leaf[8,9))",
		tree.Shape())

	outer := rec.first(closure.StageMesh)
	assert.Equal(t, []string{"leaf[5,7)", "leaf[7,8)"}, labels(outer.Graph, outer.Ends))

	g := tree.Graph
	b := find(g, tree.Root, closure.KindBulge)
	require.NotEqual(t, closure.None, b)
	conns, ok := g.Connections(b)
	require.True(t, ok)
	require.Len(t, conns.Joins, 1)
	assert.Equal(t, "leaf[7,8)", g.Label(conns.Joins[0].At))
	assert.Len(t, conns.Joins[0].Sources, 2)
	assert.Len(t, conns.Collisions, 1)
	assert.False(t, conns.Resolved())
}

func TestTwoEntryLoopBecomesBulge(t *testing.T) {
	// 0 enters the cycle 1..4 either at 1 or at 3.
	p := flowtest.New(6).Br(0, 3).Br(4, 1).Ret(5)
	tree := run(t, p, structure.Options{})
	assert.Equal(t, "chain(leaf[0,1) bulge(leaf[1,3) leaf[3,5)) leaf[5,6))", tree.Shape())
	assert.Zero(t, tree.Graph.Count(tree.Root)[closure.KindGhost])

	g := tree.Graph
	b := find(g, tree.Root, closure.KindBulge)
	conns, ok := g.Connections(b)
	require.True(t, ok)
	var at []string
	for _, j := range conns.Joins {
		at = append(at, g.Label(j.At))
	}
	sort.Strings(at)
	assert.Equal(t, []string{"leaf[1,3)", "leaf[3,5)"}, at)
	assert.Len(t, conns.Begins, 2)
}

var acyclic = []struct {
	name string
	prog flowtest.Prog
}{
	{"nested if", flowtest.New(8).Br(0, 6).Br(2, 4).Ret(7)},
	{"if else", flowtest.New(7).Br(1, 4).Jmp(3, 6).Ret(6)},
	{"early return", flowtest.New(6).Br(1, 4).Ret(3).Ret(5)},
	{"short circuit", flowtest.New(8).Br(0, 5).Br(2, 5).Jmp(4, 7).Ret(7)},
	{"converging", flowtest.New(9).Br(0, 8).Br(2, 7).Br(4, 7).Jmp(6, 8).Ret(8)},
}

func TestAcyclicLeavesNoMesh(t *testing.T) {
	for _, tt := range acyclic {
		t.Run(tt.name, func(t *testing.T) {
			tree := run(t, tt.prog, structure.Options{})
			counts := tree.Graph.Count(tree.Root)
			assert.Zero(t, counts[closure.KindMesh])
			assert.Zero(t, counts[closure.KindGhost])

			got := tree.Graph.Flatten(tree.Root)
			sort.Ints(got)
			want := make([]int, len(tt.prog))
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, got, "every instruction in exactly one leaf")
		})
	}
}

func TestRestructureIsStable(t *testing.T) {
	progs := []flowtest.Prog{
		flowtest.New(6).Br(4, 1).Ret(5),
		flowtest.New(8).Br(3, 2).Br(5, 1).Ret(7),
		flowtest.New(6).Br(0, 3).Br(4, 1).Ret(5),
	}
	for _, tt := range acyclic {
		progs = append(progs, tt.prog)
	}
	for _, p := range progs {
		g := flat(t, p)
		before := g.Len()
		first, err := structure.Structurize(g, structure.Options{})
		require.NoError(t, err)
		assert.Equal(t, before, g.Len(), "input graph modified")

		again, err := structure.Structurize(first.Flat, structure.Options{})
		require.NoError(t, err)
		assert.Equal(t, first.Shape(), again.Shape())

		fresh := run(t, p, structure.Options{})
		assert.Equal(t, first.Shape(), fresh.Shape())
	}
}

func TestSelfJumpUnsupported(t *testing.T) {
	_, err := structure.Structurize(flat(t, flowtest.New(2).Jmp(1, 1)), structure.Options{})
	require.ErrorIs(t, err, structure.ErrStructuring)
	var se *structure.StructuringError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "unsupported self jump", se.Reason)
	assert.Equal(t, "leaf[1,2)", se.Label)
}

func TestLoopWithoutExit(t *testing.T) {
	// both arms jump back to the head and nothing returns
	_, err := structure.Structurize(flat(t, flowtest.New(4).Br(1, 3).Jmp(2, 0).Jmp(3, 0)), structure.Options{})
	require.ErrorIs(t, err, structure.ErrStructuring)
	var se *structure.StructuringError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "no path to region exit", se.Reason)
	assert.NotEmpty(t, se.Label)
}

func TestDebugEventsNameNodes(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	run(t, flowtest.New(6).Br(4, 1).Ret(5), structure.Options{Name: "loop", Logger: &logger})

	out := buf.String()
	for _, want := range []string{
		`"message":"ghost inserted"`,
		`"members":["ghost@1"]`,
		`"message":"mesh spliced"`,
		`"begin":[`,
		`"end":[`,
		`"members":[`,
		`"func":"loop"`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestStepBudget(t *testing.T) {
	g := flat(t, flowtest.New(5).Br(1, 3).Ret(4))
	_, err := structure.Structurize(g, structure.Options{MaxSteps: 1})
	require.ErrorIs(t, err, structure.ErrStructuring)
	require.ErrorIs(t, err, order.ErrBudget)

	tree, err := structure.Structurize(g, structure.Options{MaxSteps: -1})
	require.NoError(t, err)
	assert.Positive(t, tree.Steps)
}

func TestEffectiveMaxSteps(t *testing.T) {
	assert.Equal(t, structure.DefaultMaxSteps, structure.Options{}.EffectiveMaxSteps())
	assert.Equal(t, 10, structure.Options{MaxSteps: 10}.EffectiveMaxSteps())
	assert.Zero(t, structure.Options{MaxSteps: -5}.EffectiveMaxSteps())
}

func TestSnapshotsAreIndependent(t *testing.T) {
	var rec recorder
	tree := run(t, flowtest.New(6).Br(4, 1).Ret(5), structure.Options{Observer: &rec})
	mesh := rec.first(closure.StageMesh)
	assert.Equal(t, closure.KindMesh, mesh.Graph.Kind(mesh.Node))
	assert.NotEqual(t, closure.None, mesh.Graph.Entry(mesh.Node))
	assert.Equal(t, closure.None, tree.Graph.Entry(mesh.Node), "live mesh was linearized")
}
