package heap

import (
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime debug flag for allocation tracing - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Ref is a payload offset into the backing store. NilRef is the null result:
// no valid payload ever starts at offset zero, which the prologue occupies.
type Ref = int

// NilRef is the null Ref.
const NilRef Ref = 0

const (
	// prologueBP is the payload offset of the prologue sentinel: a
	// zero-payload, permanently allocated block spanning the first 16
	// bytes of the store.
	prologueBP = format.DoubleSize

	prologueSize = 2 * format.DoubleSize
)

// Heap is a single-threaded allocator over one backing Store. The zero value
// is not usable; construct with New.
type Heap struct {
	store    Store
	buckets  [format.NumClasses]Ref // free-list heads, 0 = empty
	epilogue int                    // offset of the epilogue header tag
	ready    bool
	stats    Stats
}

// New returns a Heap over store. The store must be empty; the heap is
// initialized lazily by the first operation, or explicitly via Init.
func New(store Store) *Heap {
	return &Heap{store: store}
}

// Init creates the prologue and epilogue sentinels with one store extension
// and resets every registry bucket. Calling Init on an initialized heap is a
// no-op.
func (h *Heap) Init() error {
	if h.ready {
		return nil
	}
	if h.store.Size() != 0 {
		return ErrStoreNotEmpty
	}
	start, err := h.store.Extend(prologueSize + format.WordSize)
	if err != nil {
		return errors.Join(ErrNoSpace, err)
	}
	for i := range h.buckets {
		h.buckets[i] = 0
	}
	// Prologue: allocated, zero payload, zeroed links.
	h.putWord(start, format.Pack(prologueSize, true))
	h.putWord(start+format.WordSize, 0)
	h.putWord(start+2*format.WordSize, format.Pack(prologueSize, true))
	h.putWord(start+3*format.WordSize, 0)
	// Epilogue: zero-size allocated sentinel at the high-water mark.
	h.epilogue = start + prologueSize
	h.putWord(h.epilogue, format.Pack(0, true))
	h.ready = true
	return nil
}

func (h *Heap) ensure() error {
	if h.ready {
		return nil
	}
	return h.Init()
}

// Alloc allocates a block with at least size usable bytes and returns its Ref
// and payload. size <= 0 returns NilRef with no error. Fails only when the
// backing store cannot grow.
func (h *Heap) Alloc(size int) (Ref, []byte, error) {
	if err := h.ensure(); err != nil {
		return NilRef, nil, err
	}
	h.stats.AllocCalls++
	if size <= 0 {
		return NilRef, nil, nil
	}

	asize := format.AdjustSize(size)
	bp := h.findFit(asize)
	if bp == 0 {
		var err error
		if bp, err = h.extendHeap(asize); err != nil {
			return NilRef, nil, err
		}
	} else {
		bp = h.split(bp, asize)
	}
	h.markAllocated(bp)

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] request=%d adjusted=%d ref=%d block=%d\n",
			size, asize, bp, h.blockSize(bp))
	}
	return bp, h.Payload(bp), nil
}

// Free returns a block to the registry and eagerly coalesces it with any free
// physical neighbor. Free(NilRef) is a no-op. Freeing the same Ref twice is
// undefined, as is freeing a Ref not produced by this heap.
func (h *Heap) Free(ref Ref) {
	if ref == NilRef {
		return
	}
	if err := h.ensure(); err != nil {
		return
	}
	h.stats.FreeCalls++
	h.markFree(ref)
	h.coalesce(ref)
}

// Realloc resizes a block. size <= 0 behaves as Free and returns NilRef;
// ref == NilRef behaves as Alloc. A shrink splits in place with no data
// movement. A growth first tries to absorb free neighbors (copying the
// payload at most once, and not at all when only the next block is merged);
// only when the neighbors cannot cover the growth does it fall back to
// allocate-copy-free.
func (h *Heap) Realloc(ref Ref, size int) (Ref, []byte, error) {
	if size <= 0 {
		h.Free(ref)
		return NilRef, nil, nil
	}
	if ref == NilRef {
		return h.Alloc(size)
	}
	if err := h.ensure(); err != nil {
		return NilRef, nil, err
	}
	h.stats.ReallocCalls++

	oldSize := h.blockSize(ref)
	newSize := format.AdjustSize(size)

	if newSize <= oldSize {
		// Shrink in place; split frees the tail back to the registry. The
		// tail may adjoin a block that was already free, so coalesce it.
		h.markFree(ref)
		h.pushFree(ref)
		bp := h.split(ref, newSize)
		h.markAllocated(bp)
		if rem := h.nextBlock(bp); !h.allocated(rem) {
			h.removeFree(rem)
			h.coalesce(rem)
		}
		return bp, h.Payload(bp), nil
	}

	prev := h.prevBlock(ref)
	next := h.nextBlock(ref)
	prevFree := !h.allocated(prev)
	nextFree := !h.allocated(next)
	prevSize := h.blockSize(prev)
	nextSize := h.blockSize(next)
	diff := newSize - oldSize

	if (nextFree && nextSize >= diff) ||
		(prevFree && prevSize >= diff) ||
		(prevFree && nextFree && prevSize+nextSize >= diff) {
		// In-place growth: absorb the free neighbors, then trim back to
		// newSize. Merging backward moves the payload down once.
		bp := h.coalesce(ref)
		if bp != ref {
			b := h.store.Bytes()
			copy(b[bp:bp+oldSize-format.OverheadSize], b[ref:ref+oldSize-format.OverheadSize])
		}
		bp = h.split(bp, newSize)
		h.markAllocated(bp)
		return bp, h.Payload(bp), nil
	}

	// Neighbors cannot cover the growth: allocate, copy, release.
	newRef, payload, err := h.Alloc(size)
	if err != nil {
		return NilRef, nil, err
	}
	copy(payload, h.Payload(ref))
	h.Free(ref)
	return newRef, payload, nil
}

// Calloc allocates count*elemSize bytes and zeroes the payload before
// returning it. The caller must ensure the product does not overflow; Calloc
// performs no overflow check, by contract.
func (h *Heap) Calloc(count, elemSize int) (Ref, []byte, error) {
	ref, payload, err := h.Alloc(count * elemSize)
	if err != nil || ref == NilRef {
		return ref, payload, err
	}
	clear(payload)
	return ref, payload, nil
}

// Payload returns the usable bytes of an allocated block. The slice aliases
// the backing store; see the package documentation for stability caveats.
func (h *Heap) Payload(ref Ref) []byte {
	if ref == NilRef {
		return nil
	}
	return h.store.Bytes()[ref : ref+h.blockSize(ref)-format.OverheadSize]
}

// UsableSize returns the payload capacity of an allocated block, which is at
// least the size requested from Alloc.
func (h *Heap) UsableSize(ref Ref) int {
	if ref == NilRef {
		return 0
	}
	return h.blockSize(ref) - format.OverheadSize
}

// extendHeap grows the store enough to satisfy asize, crediting any free
// space trailing the last block, installs the relocated epilogue, coalesces
// the new region with a trailing free block, and splits off asize.
func (h *Heap) extendHeap(asize int) (int, error) {
	grow := asize - h.trailingFreeSpace()
	if grow < format.ChunkSize {
		grow = format.ChunkSize
	}
	start, err := h.store.Extend(grow)
	if err != nil {
		return 0, errors.Join(ErrNoSpace, err)
	}
	h.stats.ExtendCalls++
	h.stats.BytesExtended += int64(grow)

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[GROW] #%d: need=%d grow=%d heap=%d\n",
			h.stats.ExtendCalls, asize, grow, h.store.Size())
	}

	// The new block's header lands on the old epilogue word.
	bp := start + format.WordSize
	h.setSize(bp, grow)
	h.putWord(format.HeaderOffset(h.nextBlock(bp)), format.Pack(0, true))
	h.epilogue += grow

	bp = h.coalesce(bp)
	return h.split(bp, asize), nil
}

// trailingFreeSpace reports the size of the last block when it is free, read
// from its footer just below the epilogue.
func (h *Heap) trailingFreeSpace() int {
	tag := h.word(h.epilogue - format.DoubleSize)
	if format.IsAllocated(tag) {
		return 0
	}
	return format.SizeOf(tag)
}
