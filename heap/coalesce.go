package heap

import "github.com/joshuapare/heapkit/internal/format"

// split carves an allocated-size prefix out of a free block. If the remainder
// would be at least MinBlockSize it becomes a new free block immediately
// after the prefix; otherwise the whole block is used unsplit to avoid
// unusable slivers. The block is unlinked from its bucket in both branches;
// the caller marks the result allocated.
func (h *Heap) split(bp, asize int) int {
	size := h.blockSize(bp)
	h.removeFree(bp)
	if size >= asize+format.MinBlockSize {
		h.setSize(bp, asize)
		rem := h.nextBlock(bp)
		h.setSize(rem, size-asize)
		h.pushFree(rem)
		h.stats.Splits++
	}
	return bp
}

// coalesce merges bp with whichever physical neighbors are free, using the
// neighbors' boundary tags, and inserts the merged block into the registry.
// Runs eagerly on every free, so two adjacent free blocks never persist.
// Returns the payload offset of the merged block, which moves to the
// previous block's offset when merging backward.
func (h *Heap) coalesce(bp int) int {
	prev := h.prevBlock(bp)
	next := h.nextBlock(bp)
	prevAlloc := h.allocated(prev)
	nextAlloc := h.allocated(next)
	size := h.blockSize(bp)

	switch {
	case prevAlloc && nextAlloc:
		h.pushFree(bp)
		return bp

	case prevAlloc: // merge forward
		h.removeFree(next)
		size += h.blockSize(next)
		h.setSize(bp, size)
		h.pushFree(bp)
		h.stats.Coalesces++
		return bp

	case nextAlloc: // merge backward
		h.removeFree(prev)
		size += h.blockSize(prev)
		h.setSize(prev, size)
		h.pushFree(prev)
		h.stats.Coalesces++
		return prev

	default: // merge both
		h.removeFree(prev)
		h.removeFree(next)
		size += h.blockSize(prev) + h.blockSize(next)
		h.setSize(prev, size)
		h.pushFree(prev)
		h.stats.Coalesces++
		return prev
	}
}
