package heap

import (
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// In-band accessors. All block state lives inside the store; these helpers
// read and write tag and link words at offsets computed by internal/format.
// Out-of-range reads return 0, which the walkers treat as an epilogue.

func (h *Heap) word(off int) uint32 {
	b := h.store.Bytes()
	if off < 0 || off > len(b) {
		return 0
	}
	return buf.U32LE(b[off:])
}

func (h *Heap) putWord(off int, v uint32) {
	b := h.store.Bytes()
	if off < 0 || off > len(b) {
		return
	}
	buf.PutU32LE(b[off:], v)
}

func (h *Heap) headerTag(bp int) uint32 {
	return h.word(format.HeaderOffset(bp))
}

func (h *Heap) footerTag(bp int) uint32 {
	return h.word(format.FooterOffset(bp, h.blockSize(bp)))
}

func (h *Heap) blockSize(bp int) int {
	return format.SizeOf(h.headerTag(bp))
}

func (h *Heap) allocated(bp int) bool {
	return format.IsAllocated(h.headerTag(bp))
}

func (h *Heap) nextBlock(bp int) int {
	return format.NextBlock(bp, h.blockSize(bp))
}

// prevBlock derives the preceding block's payload offset from its footer tag,
// the only place the previous block's size is recorded.
func (h *Heap) prevBlock(bp int) int {
	return bp - format.SizeOf(h.word(format.PrevBlockFooterOffset(bp)))
}

// setSize re-tags a block with a new size, marked free. The footer moves with
// the size.
func (h *Heap) setSize(bp, size int) {
	h.putWord(format.HeaderOffset(bp), format.Pack(size, false))
	h.putWord(format.FooterOffset(bp, size), format.Pack(size, false))
}

func (h *Heap) markAllocated(bp int) {
	size := h.blockSize(bp)
	h.putWord(format.HeaderOffset(bp), format.Pack(size, true))
	h.putWord(format.FooterOffset(bp, size), format.Pack(size, true))
}

func (h *Heap) markFree(bp int) {
	size := h.blockSize(bp)
	h.putWord(format.HeaderOffset(bp), format.Pack(size, false))
	h.putWord(format.FooterOffset(bp, size), format.Pack(size, false))
}
