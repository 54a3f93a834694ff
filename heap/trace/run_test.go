package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
)

func mustParse(t *testing.T, script string) []Op {
	t.Helper()
	ops, err := Parse(strings.NewReader(script))
	require.NoError(t, err)
	return ops
}

func Test_RunScript(t *testing.T) {
	ops := mustParse(t, `
a 0 100
a 1 16
f 0
a 2 100
c 3 8 8
r 1 500
f 2
f 3
`)
	h := heap.New(heap.NewSliceStore(0))
	res, err := Run(h, ops, Options{CheckEvery: 1, Fill: true})
	require.NoError(t, err)

	require.Equal(t, 8, res.Ops)
	require.Equal(t, 1, res.Live, "only id 1 survives")
	require.Equal(t, 3, res.PeakLive)
	require.Equal(t, h.Size(), res.HeapSize)
	require.Equal(t, 5, res.Stats.AllocCalls, "a, a, a, c and the realloc move")
	require.Equal(t, 1, res.Stats.ReallocCalls)
	require.NoError(t, h.Check("done").Err())
}

func Test_RunReallocToZeroReleases(t *testing.T) {
	ops := mustParse(t, "a 0 64\nr 0 0\n")
	h := heap.New(heap.NewSliceStore(0))
	res, err := Run(h, ops, Options{CheckEvery: 1, Fill: true})
	require.NoError(t, err)
	require.Zero(t, res.Live)
}

func Test_RunIDReuseAfterFree(t *testing.T) {
	ops := mustParse(t, "a 7 32\nf 7\na 7 64\nf 7\n")
	h := heap.New(heap.NewSliceStore(0))
	res, err := Run(h, ops, Options{CheckEvery: 1, Fill: true})
	require.NoError(t, err)
	require.Zero(t, res.Live)
	require.Equal(t, 1, res.PeakLive)
}

func Test_RunRejectsDuplicateID(t *testing.T) {
	ops := mustParse(t, "a 0 32\na 0 32\n")
	h := heap.New(heap.NewSliceStore(0))
	_, err := Run(h, ops, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "op 1")
	require.Contains(t, err.Error(), "already live")
}

func Test_RunRejectsUnknownID(t *testing.T) {
	ops := mustParse(t, "f 3\n")
	h := heap.New(heap.NewSliceStore(0))
	_, err := Run(h, ops, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not live")
}

func Test_RunPropagatesHeapErrors(t *testing.T) {
	ops := mustParse(t, "a 0 4096\n")
	h := heap.New(heap.NewSliceStore(64))
	_, err := Run(h, ops, Options{})
	require.ErrorIs(t, err, heap.ErrNoSpace)
}
