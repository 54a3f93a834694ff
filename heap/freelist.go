package heap

import (
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Segregated free-list registry. Bucket heads live in the Heap; the doubly
// linked lists themselves are embedded in the free blocks as self-relative
// int32 deltas (0 = end of list), so a block's links survive store relocation.

// bucketFor returns the size-class index for a block size: the position of
// the highest set bit, clamped to the last bucket. Bucket i covers sizes in
// [2^(i-1), 2^i).
func bucketFor(size int) int {
	class := 0
	for class < format.NumClasses-1 && size > 0 {
		size >>= 1
		class++
	}
	return class
}

func (h *Heap) nextFree(bp int) int {
	b := h.store.Bytes()
	off := format.NextLinkOffset(bp)
	if off < 0 || off > len(b) {
		return 0
	}
	delta := buf.I32LE(b[off:])
	if delta == 0 {
		return 0
	}
	return bp + int(delta)
}

func (h *Heap) prevFree(bp int) int {
	b := h.store.Bytes()
	off := format.PrevLinkOffset(bp, h.blockSize(bp))
	if off < 0 || off > len(b) {
		return 0
	}
	delta := buf.I32LE(b[off:])
	if delta == 0 {
		return 0
	}
	return bp + int(delta)
}

func (h *Heap) setNextFree(bp, next int) {
	var delta int32
	if next != 0 {
		delta = int32(next - bp)
	}
	b := h.store.Bytes()
	off := format.NextLinkOffset(bp)
	if off >= 0 && off <= len(b) {
		buf.PutI32LE(b[off:], delta)
	}
}

func (h *Heap) setPrevFree(bp, prev int) {
	var delta int32
	if prev != 0 {
		delta = int32(prev - bp)
	}
	b := h.store.Bytes()
	off := format.PrevLinkOffset(bp, h.blockSize(bp))
	if off >= 0 && off <= len(b) {
		buf.PutI32LE(b[off:], delta)
	}
}

// pushFree inserts a free block at the head of its size-class bucket.
func (h *Heap) pushFree(bp int) {
	class := bucketFor(h.blockSize(bp))
	head := h.buckets[class]
	if head != 0 {
		h.setPrevFree(head, bp)
		h.setNextFree(bp, head)
		h.setPrevFree(bp, 0)
	} else {
		h.setPrevFree(bp, 0)
		h.setNextFree(bp, 0)
	}
	h.buckets[class] = bp
}

// removeFree unlinks a block from its bucket. The bucket is recomputed from
// the stored size, so the caller must not have re-tagged the block yet.
func (h *Heap) removeFree(bp int) {
	prev := h.prevFree(bp)
	next := h.nextFree(bp)
	class := bucketFor(h.blockSize(bp))

	switch {
	case prev == 0 && next == 0: // sole element
		h.buckets[class] = 0
	case prev == 0: // head
		h.setPrevFree(next, 0)
		h.buckets[class] = next
	case next == 0: // tail
		h.setNextFree(prev, 0)
	default: // interior
		h.setNextFree(prev, next)
		h.setPrevFree(next, prev)
	}
}

// findFit returns the first free block with size >= asize, searching the
// smallest bucket that can contain asize and then ascending buckets in order.
// Returns 0 when every bucket is exhausted.
func (h *Heap) findFit(asize int) int {
	for class := bucketFor(asize); class < format.NumClasses; class++ {
		for bp := h.buckets[class]; bp != 0; bp = h.nextFree(bp) {
			if h.blockSize(bp) >= asize {
				return bp
			}
		}
	}
	return 0
}
