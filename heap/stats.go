package heap

// Stats holds operation counters for instrumentation and tests.
type Stats struct {
	AllocCalls    int
	FreeCalls     int
	ReallocCalls  int
	ExtendCalls   int   // backing-store extensions
	BytesExtended int64 // total bytes requested from the store
	Splits        int
	Coalesces     int
}

// Stats returns a copy of the current counters.
func (h *Heap) Stats() Stats {
	return h.stats
}

// Size returns the current heap size in bytes, including all metadata.
func (h *Heap) Size() int {
	return h.store.Size()
}

// walk visits every block from the prologue up to (excluding) the epilogue,
// following stored sizes only. Stops early when fn returns false.
func (h *Heap) walk(fn func(bp, size int, allocated bool) bool) {
	if !h.ready {
		return
	}
	for bp := prologueBP; ; bp = h.nextBlock(bp) {
		size := h.blockSize(bp)
		if size == 0 {
			return
		}
		if !fn(bp, size, h.allocated(bp)) {
			return
		}
	}
}

// FreeBytes returns the sum of free block sizes.
func (h *Heap) FreeBytes() int {
	total := 0
	h.walk(func(_, size int, allocated bool) bool {
		if !allocated {
			total += size
		}
		return true
	})
	return total
}

// AllocatedBytes returns the sum of allocated block sizes, prologue included.
// At all times FreeBytes + AllocatedBytes + the epilogue word account for the
// whole heap: FreeBytes() + AllocatedBytes() + 4 == Size().
func (h *Heap) AllocatedBytes() int {
	total := 0
	h.walk(func(_, size int, allocated bool) bool {
		if allocated {
			total += size
		}
		return true
	})
	return total
}

// BlockCount returns the number of free and allocated blocks in the chain,
// prologue included.
func (h *Heap) BlockCount() (free, allocated int) {
	h.walk(func(_, _ int, alloc bool) bool {
		if alloc {
			allocated++
		} else {
			free++
		}
		return true
	})
	return free, allocated
}
