package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h := New(NewSliceStore(0))
	require.NoError(t, h.Init())
	return h
}

// requireNoLoss asserts the accounting identity: free bytes plus allocated
// bytes plus the epilogue word cover the whole heap.
func requireNoLoss(t *testing.T, h *Heap) {
	t.Helper()
	require.Equal(t, h.Size(), h.FreeBytes()+h.AllocatedBytes()+format.WordSize,
		"free/allocated accounting must cover the heap")
}

func Test_InitCreatesSentinels(t *testing.T) {
	h := newTestHeap(t)

	require.Equal(t, 2*format.DoubleSize+format.WordSize, h.Size())
	require.Equal(t, h.Size()-format.WordSize, h.epilogue)

	// Prologue: 16 bytes, allocated; no real blocks yet.
	free, allocated := h.BlockCount()
	require.Equal(t, 0, free)
	require.Equal(t, 1, allocated)
	require.NoError(t, h.Check("init").Err())

	// Idempotent.
	require.NoError(t, h.Init())
	require.Equal(t, 2*format.DoubleSize+format.WordSize, h.Size())
}

func Test_InitRejectsDirtyStore(t *testing.T) {
	store := NewSliceStore(0)
	_, err := store.Extend(8)
	require.NoError(t, err)

	h := New(store)
	require.ErrorIs(t, h.Init(), ErrStoreNotEmpty)
}

func Test_LazyInit(t *testing.T) {
	h := New(NewSliceStore(0))

	ref, payload, err := h.Alloc(10)
	require.NoError(t, err)
	require.NotEqual(t, NilRef, ref)
	require.NotEmpty(t, payload)
	require.NoError(t, h.Check("lazy").Err())
}

func Test_AllocZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t)

	// Scenario E: size 0 must not mutate the block chain.
	_, _, err := h.Alloc(64)
	require.NoError(t, err)
	freeBefore, allocBefore := h.BlockCount()
	sizeBefore := h.Size()

	ref, payload, err := h.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, NilRef, ref)
	require.Nil(t, payload)

	freeAfter, allocAfter := h.BlockCount()
	require.Equal(t, freeBefore, freeAfter)
	require.Equal(t, allocBefore, allocAfter)
	require.Equal(t, sizeBefore, h.Size())
}

func Test_AllocUsableSize(t *testing.T) {
	h := newTestHeap(t)

	ref, payload, err := h.Alloc(100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), 100)
	require.Equal(t, len(payload), h.UsableSize(ref))
	require.Equal(t, payload, h.Payload(ref))
	requireNoLoss(t, h)
}

func Test_FreeNilIsNoOp(t *testing.T) {
	h := newTestHeap(t)
	_, _, err := h.Alloc(32)
	require.NoError(t, err)

	before := h.Stats()
	for i := 0; i < 3; i++ {
		h.Free(NilRef)
	}
	require.Equal(t, before.FreeCalls, h.Stats().FreeCalls)
	require.NoError(t, h.Check("free-nil").Err())
}

func Test_SingleBlockReuse(t *testing.T) {
	// Scenario A: free then same-size alloc reuses the block at the same
	// address without growing the heap.
	h := newTestHeap(t)

	ref1, payload, err := h.Alloc(100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(payload), 100)
	size := h.Size()

	h.Free(ref1)
	require.NoError(t, h.Check("after free").Err())

	ref2, _, err := h.Alloc(100)
	require.NoError(t, err)
	require.Equal(t, ref1, ref2, "freed block must be reused")
	require.Equal(t, size, h.Size(), "no heap growth expected")
}

func Test_FreedBlockPreferredOverGrowth(t *testing.T) {
	// Scenario B: the freed first block satisfies the third request.
	h := newTestHeap(t)

	ref1, _, err := h.Alloc(16)
	require.NoError(t, err)
	_, _, err = h.Alloc(16)
	require.NoError(t, err)

	h.Free(ref1)
	size := h.Size()

	ref3, _, err := h.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, ref1, ref3)
	require.Equal(t, size, h.Size())
}

func Test_CoalesceAdjacentOnFree(t *testing.T) {
	// Scenario C: releasing two adjacent blocks yields one merged free
	// block, not two.
	h := newTestHeap(t)

	ref1, _, err := h.Alloc(24)
	require.NoError(t, err)
	ref2, _, err := h.Alloc(24)
	require.NoError(t, err)
	require.Equal(t, h.nextBlock(ref1), ref2, "blocks must be adjacent")

	h.Free(ref1)
	h.Free(ref2)

	report := h.Check("scenario C")
	require.NoError(t, report.Err())
	require.Equal(t, 1, report.FreeBlocks, "adjacent frees must merge")
	require.Equal(t, ref1, report.Blocks[1].Ref, "merged block keeps the low address")
	requireNoLoss(t, h)
}

func Test_CallocZeroesPayload(t *testing.T) {
	h := newTestHeap(t)

	// Dirty a block, free it, and calloc over the same bytes.
	ref, payload, err := h.Alloc(64)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = 0xFF
	}
	h.Free(ref)

	ref2, payload2, err := h.Calloc(8, 8)
	require.NoError(t, err)
	require.Equal(t, ref, ref2, "calloc should reuse the dirty block")
	for i, b := range payload2 {
		require.Zero(t, b, "byte %d not zeroed", i)
	}
}

func Test_CallocZeroCount(t *testing.T) {
	h := newTestHeap(t)
	ref, payload, err := h.Calloc(0, 8)
	require.NoError(t, err)
	require.Equal(t, NilRef, ref)
	require.Nil(t, payload)
}

func Test_AllocOutOfMemory(t *testing.T) {
	h := New(NewSliceStore(64))

	ref, _, err := h.Alloc(100)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, ErrStoreFull)
	require.Equal(t, NilRef, ref)

	// The failed call must not have mutated the heap.
	require.NoError(t, h.Check("post-oom").Err())
	requireNoLoss(t, h)
}

func Test_ExtendCreditsTrailingFreeSpace(t *testing.T) {
	h := newTestHeap(t)

	// First alloc grows by ChunkSize and leaves a free tail. A request
	// larger than the tail should extend by only the missing part (still
	// floored at ChunkSize).
	_, _, err := h.Alloc(16)
	require.NoError(t, err)
	sizeAfterFirst := h.Size()

	// Tail is ChunkSize-32 bytes. Ask for ChunkSize+512 total.
	big := format.ChunkSize + 512
	_, _, err = h.Alloc(big)
	require.NoError(t, err)

	asize := format.AdjustSize(big)
	tail := format.ChunkSize - 32
	require.Equal(t, sizeAfterFirst+asize-tail, h.Size(),
		"growth must be request minus trailing free space")
	require.NoError(t, h.Check("credit").Err())
	requireNoLoss(t, h)
}

func Test_HeaderFooterAgreement(t *testing.T) {
	h := newTestHeap(t)

	refs := make([]Ref, 0, 8)
	for _, n := range []int{1, 8, 9, 24, 100, 500, 4096} {
		ref, _, err := h.Alloc(n)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	h.Free(refs[2])
	h.Free(refs[5])

	h.walk(func(bp, _ int, _ bool) bool {
		require.Equal(t, h.headerTag(bp), h.footerTag(bp),
			"header/footer mismatch at %d", bp)
		return true
	})
	require.NoError(t, h.Check("tags").Err())
	requireNoLoss(t, h)
}

func Test_MmapBackedHeap(t *testing.T) {
	store, err := NewMmapStore(1 << 20)
	require.NoError(t, err)
	defer store.Close()

	h := New(store)
	ref, payload, err := h.Alloc(100)
	require.NoError(t, err)
	copy(payload, "stable")

	// MmapStore never relocates: the slice is still valid after growth.
	for i := 0; i < 16; i++ {
		_, _, err := h.Alloc(4000)
		require.NoError(t, err)
	}
	require.Equal(t, "stable", string(payload[:6]))
	require.Equal(t, "stable", string(h.Payload(ref)[:6]))
	require.NoError(t, h.Check("mmap").Err())
}
