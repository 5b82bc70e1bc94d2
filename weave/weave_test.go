package weave

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBootstraps(t *testing.T) {
	w := New()
	require.Equal(t, 2, w.Len())
	require.Equal(t, Atom{ID: StartID, Pred: StartID, Char: CharStart}, w.AtomAt(0))
	require.Equal(t, Atom{ID: EndID, Pred: StartID, Char: CharEnd}, w.AtomAt(1))
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 64: 64, 65: 128}
	for n, want := range cases {
		require.Equal(t, want, nextPow2(n), "nextPow2(%d)", n)
	}
}

// chainOf builds a simple straight-line chain of atoms rooted at root.
func chainOf(root AtomID, yarn uint32, startOffset uint32, chars string) []Atom {
	atoms := make([]Atom, len(chars))
	pred := root
	for i, ch := range chars {
		id := PackID(yarn, startOffset+uint32(i))
		atoms[i] = Atom{ID: id, Pred: pred, Char: ch}
		pred = id
	}
	return atoms
}

func TestSpliceInPlaceAndReallocAgree(t *testing.T) {
	build := func(t *testing.T, useRealloc bool) *Weave {
		w := New()
		ops := InsertionVector{
			{Index: 1, Chain: chainOf(StartID, 1, 1, "Test")},
		}
		if useRealloc {
			w.spliceRealloc(ops)
		} else {
			require.GreaterOrEqual(t, cap(w.ids), w.Len()+ops.totalAtoms(), "precondition for in-place splice")
			w.spliceInPlace(ops)
		}
		return w
	}

	inPlace := build(t, false)
	realloc := build(t, true)

	require.Equal(t, inPlace.ids, realloc.ids)
	require.Equal(t, inPlace.bodies, realloc.bodies)
	require.Equal(t, 6, inPlace.Len())

	got := make([]rune, 0, inPlace.Len())
	for i := 0; i < inPlace.Len(); i++ {
		got = append(got, inPlace.AtomAt(i).Char)
	}
	require.Equal(t, []rune{CharStart, 'T', 'e', 's', 't', CharEnd}, got)
}

func TestSpliceSingleOp(t *testing.T) {
	w := New()
	ops := InsertionVector{
		{Index: 1, Chain: []Atom{{ID: PackID(1, 1), Pred: StartID, Char: 'a'}}},
	}
	w.splice(ops)
	require.Equal(t, 3, w.Len())
	require.Equal(t, 'a', w.AtomAt(1).Char)
	require.Equal(t, CharEnd, w.AtomAt(2).Char)
}

func TestSpliceChoosesReallocWhenCapacityInsufficient(t *testing.T) {
	w := New()
	// Shrink capacity artificially by re-slicing a freshly allocated exact
	// fit, forcing splice to take the realloc path.
	ids := make([]AtomID, 2, 2)
	copy(ids, w.ids)
	bodies := make([]body, 2, 2)
	copy(bodies, w.bodies)
	w.ids, w.bodies = ids, bodies

	require.Equal(t, cap(w.ids), w.Len())
	ops := InsertionVector{
		{Index: 1, Chain: chainOf(StartID, 1, 1, "hi")},
	}
	w.splice(ops)
	require.Equal(t, 4, w.Len())
	require.Equal(t, 'h', w.AtomAt(1).Char)
	require.Equal(t, 'i', w.AtomAt(2).Char)
	require.Equal(t, CharEnd, w.AtomAt(3).Char)
}

func TestCausalBlockLenBootstrapWeave(t *testing.T) {
	w := New()
	require.Equal(t, 2, w.causalBlockLen(0), "END's predecessor is START, so START's block holds both")
}

func TestCausalBlockLenWholeStrand(t *testing.T) {
	w := New()
	ops := InsertionVector{{Index: 1, Chain: chainOf(StartID, 1, 1, "abc")}}
	w.splice(ops)
	// weave: START a b c END
	require.Equal(t, 3, w.causalBlockLen(1), "a, b, c form one strand rooted at a")
	require.Equal(t, 1, w.causalBlockLen(4), "END has no descendants")
}

func TestCausalBlockLenStopsAtSiblingBoundary(t *testing.T) {
	w := New()
	// Two independent children of START, x then y, placed adjacently.
	ops := InsertionVector{
		{Index: 1, Chain: []Atom{
			{ID: PackID(1, 1), Pred: StartID, Char: 'x'},
			{ID: PackID(2, 1), Pred: StartID, Char: 'y'},
		}},
	}
	w.splice(ops)
	// weave: START x y END, x and y are siblings (not a strand).
	require.Equal(t, 1, w.causalBlockLen(1), "x's block does not include its sibling y")
}

func TestAtomAtPanicsOutOfRange(t *testing.T) {
	w := New()
	require.Panics(t, func() { w.AtomAt(w.Len()) })
}
