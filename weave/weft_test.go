package weave_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbrt/weave/weave"
)

func TestWeftImplicitYarnZero(t *testing.T) {
	w := weave.NewWeft()
	require.Equal(t, uint32(2), w.Get(0))
	require.True(t, w.Covers(weave.StartID))
	require.True(t, w.Covers(weave.EndID))
	require.False(t, w.Covers(weave.PackID(0, 3)))
}

func TestWeftExtendIsMonotonic(t *testing.T) {
	w := weave.NewWeft()
	w.Extend(1, 5)
	require.Equal(t, uint32(5), w.Get(1))
	w.Extend(1, 3)
	require.Equal(t, uint32(5), w.Get(1), "extend must never lower a known offset")
	w.Extend(1, 9)
	require.Equal(t, uint32(9), w.Get(1))
}

func TestWeftCovers(t *testing.T) {
	w := weave.NewWeft()
	w.Set(1, 4)
	require.True(t, w.Covers(weave.PackID(1, 4)))
	require.True(t, w.Covers(weave.PackID(1, 2)))
	require.False(t, w.Covers(weave.PackID(1, 5)))
	require.False(t, w.Covers(weave.PackID(2, 1)))
}

func TestWeftMergeInto(t *testing.T) {
	a := weave.NewWeft()
	a.Set(1, 2)
	a.Set(2, 9)
	b := weave.NewWeft()
	b.Set(1, 5)
	b.Set(3, 1)

	a.MergeInto(b)
	require.Equal(t, uint32(5), a.Get(1))
	require.Equal(t, uint32(9), a.Get(2))
	require.Equal(t, uint32(1), a.Get(3))
	// b is untouched.
	require.Equal(t, uint32(5), b.Get(1))
	require.Equal(t, uint32(0), b.Get(2))
}

func TestWeftCopyIsIndependent(t *testing.T) {
	a := weave.NewWeft()
	a.Set(1, 2)
	b := a.Copy()
	b.Set(1, 99)
	require.Equal(t, uint32(2), a.Get(1))
}

func TestWeftGt(t *testing.T) {
	tests := []struct {
		name   string
		a, b   weave.Weft
		wantAB bool
		wantBA bool
	}{
		{
			name:   "equal",
			a:      weave.Weft{1: 2},
			b:      weave.Weft{1: 2},
			wantAB: false,
			wantBA: false,
		},
		{
			name:   "a has a smaller yarn",
			a:      weave.Weft{1: 1, 2: 1},
			b:      weave.Weft{2: 1},
			wantAB: true,
			wantBA: false,
		},
		{
			name:   "shared yarn, larger offset wins regardless of further yarns",
			a:      weave.Weft{1: 3},
			b:      weave.Weft{1: 2, 2: 9},
			wantAB: true,
			wantBA: false,
		},
		{
			name:   "exhaustion tie-break: longer weft wins",
			a:      weave.Weft{1: 2, 2: 2},
			b:      weave.Weft{1: 2},
			wantAB: true,
			wantBA: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.wantAB, test.a.Gt(test.b))
			require.Equal(t, test.wantBA, test.b.Gt(test.a))
		})
	}
}

func TestWeftString(t *testing.T) {
	w := weave.Weft{2: 5, 1: 3}
	require.Equal(t, "1\t3\n2\t5\n", w.String())
}
