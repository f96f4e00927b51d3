package closure

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds Start -> [0,2) -> [2,4) -> End.
func line(t *testing.T) (*Graph, ID, ID) {
	t.Helper()
	g := New()
	a := g.NewLeaf(0, 2)
	b := g.NewLeaf(2, 4)
	g.Link(g.Start(), a)
	g.Link(a, b)
	g.Link(b, g.End())
	return g, a, b
}

func TestLinkIsSet(t *testing.T) {
	g, a, b := line(t)
	g.Link(a, b)
	assert.Equal(t, []ID{b}, g.Following(a))
	assert.Equal(t, []ID{a}, g.Preceding(b))
}

func TestFollowingIsCopy(t *testing.T) {
	g, a, b := line(t)
	f := g.Following(a)
	f[0] = None
	assert.Equal(t, []ID{b}, g.Following(a))
}

func TestSplitBeforeMovesPredecessors(t *testing.T) {
	g := New()
	x := g.NewLeaf(0, 5)
	g.Link(g.Start(), x)
	g.Link(x, x) // loop to own start
	g.Link(x, g.End())

	front := g.SplitBefore(x, 1)
	lo, hi := g.Range(front)
	assert.Equal(t, [2]int{0, 1}, [2]int{lo, hi})
	lo, hi = g.Range(x)
	assert.Equal(t, [2]int{1, 5}, [2]int{lo, hi})

	assert.Equal(t, []ID{front}, g.Following(g.Start()))
	assert.ElementsMatch(t, []ID{front, g.End()}, g.Following(x))
	assert.ElementsMatch(t, []ID{g.Start(), x}, g.Preceding(front))
	assert.Equal(t, []ID{front}, g.Preceding(x))
}

func TestSplitBeforeRejectsBoundary(t *testing.T) {
	g := New()
	x := g.NewLeaf(0, 3)
	assert.Panics(t, func() { g.SplitBefore(x, 0) })
	assert.Panics(t, func() { g.SplitBefore(x, 3) })
}

func TestEncloseRewiresBoundary(t *testing.T) {
	g := New()
	a := g.NewLeaf(0, 1)
	b := g.NewLeaf(1, 2)
	c := g.NewLeaf(2, 3)
	d := g.NewLeaf(3, 4)
	g.Link(g.Start(), a)
	g.Link(a, b)
	g.Link(a, c)
	g.Link(b, d)
	g.Link(c, d)
	g.Link(d, g.End())

	m := g.Enclose([]ID{b, c})
	require.Equal(t, KindMesh, g.Kind(m))
	assert.Equal(t, []ID{m}, g.Following(a))
	assert.Equal(t, []ID{m}, g.Preceding(d))
	assert.Equal(t, []ID{b, c}, g.Begins(m))
	assert.Equal(t, []ID{b, c}, g.Sorted(g.Ends(m)))
	assert.Equal(t, []ID{g.Exit(m)}, g.GetFollowing(m, b))
	assert.Nil(t, g.GetFollowing(m, a))
	assert.Equal(t, m, g.Parent(b))
}

func TestLinearize(t *testing.T) {
	g, a, b := line(t)
	m := g.Enclose([]ID{a, b})
	g.SetLoop(m)
	ch := g.Linearize(m, []ID{a, b})

	assert.Equal(t, KindChain, g.Kind(ch))
	assert.True(t, g.Loop(ch))
	assert.Equal(t, []ID{ch}, g.Following(g.Start()))
	assert.Equal(t, []ID{g.End()}, g.Following(ch))
	assert.Empty(t, g.Following(m))
	require.NoError(t, g.Check(ch))
	assert.Equal(t, []int{0, 1, 2, 3}, g.Flatten(ch))
	assert.Equal(t, "chain*(leaf[0,2) leaf[2,4))", g.Shape(ch))
}

func TestCheckCatchesBrokenChain(t *testing.T) {
	g, a, b := line(t)
	m := g.Enclose([]ID{a, b})
	ch := g.Linearize(m, []ID{a, b})
	g.Unlink(a, b)
	assert.Error(t, g.Check(ch))
}

func TestRemoveItemKeepsChainLinear(t *testing.T) {
	g := New()
	a := g.NewLeaf(0, 1)
	gh := g.NewGhost(1)
	b := g.NewLeaf(1, 2)
	g.Link(g.Start(), a)
	g.Link(a, gh)
	g.Link(gh, b)
	g.Link(b, g.End())
	m := g.Enclose([]ID{a, gh, b})
	ch := g.Linearize(m, []ID{a, gh, b})
	g.RemoveItem(ch, gh)
	assert.Equal(t, []ID{a, b}, g.Items(ch))
	require.NoError(t, g.Check(ch))
}

func TestSortedGhostFirst(t *testing.T) {
	g := New()
	b := g.NewLeaf(4, 6)
	gh := g.NewGhost(4)
	a := g.NewLeaf(0, 4)
	assert.Equal(t, []ID{a, gh, b}, g.Sorted([]ID{b, gh, a}))
}

func TestSurveyJoinMultiset(t *testing.T) {
	// entry -> p, q, r; p -> j; q -> j; r -> j; j -> exit
	g := New()
	p := g.NewLeaf(0, 1)
	q := g.NewLeaf(1, 2)
	r := g.NewLeaf(2, 3)
	j := g.NewLeaf(7, 8)
	for _, x := range []ID{p, q, r} {
		g.Link(g.Start(), x)
		g.Link(x, j)
	}
	g.Link(j, g.End())
	m := g.Enclose([]ID{p, q, r, j})

	c, err := g.Survey(m)
	require.NoError(t, err)
	require.Len(t, c.Joins, 1)
	assert.Equal(t, j, c.Joins[0].At)
	assert.Equal(t, []ID{p, q, r}, c.Joins[0].Sources)
	assert.Equal(t, []Collision{{From: q, At: j}, {From: r, At: j}}, c.Collisions)
	assert.Equal(t, []Edge{{From: j, To: g.Exit(m)}}, c.Branches)
	assert.False(t, c.Resolved())
}

func TestSurveyStraightLineResolves(t *testing.T) {
	g, a, b := line(t)
	m := g.Enclose([]ID{a, b})
	c, err := g.Survey(m)
	require.NoError(t, err)
	assert.True(t, c.Resolved())
}

func TestSurveyDeadEndIsBranch(t *testing.T) {
	g := New()
	a := g.NewLeaf(0, 1)
	b := g.NewLeaf(1, 2)
	c := g.NewLeaf(2, 3)
	g.Link(g.Start(), a)
	g.Link(a, b)
	g.Link(a, c)
	g.Link(c, g.End())
	m := g.Enclose([]ID{a, b, c})
	conns, err := g.Survey(m)
	require.NoError(t, err)
	assert.Len(t, conns.Branches, 2)
	assert.False(t, conns.Resolved())
}

func TestDuplicateCollisionIsInvalidCode(t *testing.T) {
	var c Connections
	require.NoError(t, c.AddArrival(1, 9))
	require.NoError(t, c.AddArrival(2, 9))
	err := c.AddCollision(2, 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCode))
	var ice *InvalidCodeError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, ID(9), ice.At)
}

func TestRetargetMergesJoins(t *testing.T) {
	var c Connections
	c.Begins = []ID{5}
	require.NoError(t, c.AddArrival(1, 5))
	require.NoError(t, c.AddArrival(2, 5))
	c.Internal = []Edge{{From: 1, To: 5}, {From: 2, To: 5}, {From: 5, To: 6}}
	c.prune()

	require.NoError(t, c.Retarget(5, 6))
	want := Connections{
		Begins:     []ID{6},
		Internal:   []Edge{{From: 1, To: 6}, {From: 2, To: 6}},
		Joins:      []Join{{At: 6, Sources: []ID{1, 2}}},
		Collisions: []Collision{{From: 2, At: 6}},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("connections mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	g, a, b := line(t)
	ev := g.Snapshot(StageFlat, None)
	g.Unlink(a, b)
	assert.True(t, ev.Graph.Linked(a, b))
}
