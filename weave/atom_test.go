package weave_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbrt/weave/weave"
)

func TestPackID(t *testing.T) {
	id := weave.PackID(7, 42)
	require.Equal(t, uint32(7), id.Yarn())
	require.Equal(t, uint32(42), id.Offset())
}

func TestBootstrapIDs(t *testing.T) {
	require.Equal(t, weave.PackID(0, 1), weave.StartID)
	require.Equal(t, weave.PackID(0, 2), weave.EndID)
}

func TestIsVisible(t *testing.T) {
	require.True(t, weave.IsVisible('a'))
	require.True(t, weave.IsVisible('中'))
	require.False(t, weave.IsVisible(weave.CharStart))
	require.False(t, weave.IsVisible(weave.CharEnd))
	require.False(t, weave.IsVisible(weave.CharDel))
	require.False(t, weave.IsVisible(weave.CharSave))
}

func TestAtomClassification(t *testing.T) {
	del := weave.Atom{Char: weave.CharDel}
	require.True(t, del.IsDel())
	require.False(t, del.IsSave())

	save := weave.Atom{Char: weave.CharSave}
	require.True(t, save.IsSave())

	start := weave.Atom{Char: weave.CharStart}
	require.True(t, start.IsStart())

	end := weave.Atom{Char: weave.CharEnd}
	require.True(t, end.IsEnd())
}

func TestClassifyChain(t *testing.T) {
	require.Equal(t, weave.InsertionChain, weave.ClassifyChain('x'))
	require.Equal(t, weave.DeletionChain, weave.ClassifyChain(weave.CharDel))
	require.Equal(t, weave.SaveChain, weave.ClassifyChain(weave.CharSave))
}
