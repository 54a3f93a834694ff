package heap

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joshuapare/heapkit/internal/format"
)

// Fault is a bitmask of structural errors found by Check.
type Fault uint32

const (
	// FaultUnaligned: a block's tag carries size bits that are not an
	// 8-byte multiple (unused flag bits set).
	FaultUnaligned Fault = 1 << iota
	// FaultMultipleTails: more than one list tail found in one bucket.
	FaultMultipleTails
	// FaultBrokenLink: a free block's prev/next links do not match the
	// neighboring blocks' links.
	FaultBrokenLink
	// FaultMultipleHeads: more than one list head found in one bucket.
	FaultMultipleHeads
	// FaultTagMismatch: a block's header and footer tags differ.
	FaultTagMismatch
	// FaultOutOfBounds: a block extends outside the backing store.
	FaultOutOfBounds
	// FaultMisalignedOffset: a payload offset is not 8-byte aligned.
	FaultMisalignedOffset
	// FaultAdjacentFree: two consecutive free blocks (coalescing failure).
	FaultAdjacentFree
	// FaultBadPrologue: the prologue sentinel is malformed.
	FaultBadPrologue
	// FaultBadEpilogue: the epilogue sentinel is malformed or misplaced.
	FaultBadEpilogue
)

var faultDetails = []struct {
	bit    Fault
	name   string
	detail string
}{
	{FaultUnaligned, "unaligned-size", "block size is not an 8-byte multiple"},
	{FaultMultipleTails, "multiple-tails", "more than one tail in a free-list bucket"},
	{FaultBrokenLink, "broken-link", "free-list links do not match up"},
	{FaultMultipleHeads, "multiple-heads", "more than one head in a free-list bucket"},
	{FaultTagMismatch, "tag-mismatch", "header and footer tags differ"},
	{FaultOutOfBounds, "out-of-bounds", "block lies outside the backing store"},
	{FaultMisalignedOffset, "misaligned-offset", "payload offset is not 8-byte aligned"},
	{FaultAdjacentFree, "adjacent-free", "two consecutive free blocks"},
	{FaultBadPrologue, "bad-prologue", "prologue has the wrong size or is not allocated"},
	{FaultBadEpilogue, "bad-epilogue", "epilogue is not a zero-size allocated block at the heap end"},
}

// String renders the set faults as a pipe-separated list.
func (f Fault) String() string {
	if f == 0 {
		return "ok"
	}
	var names []string
	for _, d := range faultDetails {
		if f&d.bit != 0 {
			names = append(names, d.name)
		}
	}
	return strings.Join(names, "|")
}

// BlockInfo is one row of a Report: a block's state at check time.
type BlockInfo struct {
	Ref         Ref
	Size        int
	PayloadSize int
	Allocated   bool
	Class       int // size-class bucket, free blocks only
	PrevFree    Ref // 0 = list end
	NextFree    Ref
	TagsMatch   bool
}

// Report is the result of a heap consistency check. It is a value: Check
// never aborts, the caller decides whether faults are fatal.
type Report struct {
	Token           string // caller-supplied diagnostic tag
	Faults          Fault
	Blocks          []BlockInfo
	FreeBlocks      int
	AllocatedBlocks int
	Epilogue        int
	HeapSize        int
}

// Ok reports whether no fault was found.
func (r *Report) Ok() bool { return r.Faults == 0 }

// Err returns nil when the report is clean, or an error naming the faults.
func (r *Report) Err() error {
	if r.Ok() {
		return nil
	}
	return fmt.Errorf("heap: integrity check failed (%s)", r.Faults)
}

// Check walks every block from the prologue to the epilogue using stored
// sizes only (never free-list links) and accumulates structural faults. For
// each free block it independently cross-checks the in-band list links
// against the neighbors' links and counts heads and tails per bucket.
func (h *Heap) Check(token string) *Report {
	r := &Report{Token: token}
	if err := h.ensure(); err != nil {
		// No heap exists at all: neither sentinel can be present.
		r.Faults |= FaultBadPrologue | FaultBadEpilogue
		return r
	}
	r.Epilogue = h.epilogue
	r.HeapSize = h.store.Size()

	// Epilogue: zero size, allocated, exactly at the high-water mark.
	epiTag := h.word(h.epilogue)
	if format.SizeOf(epiTag) != 0 || !format.IsAllocated(epiTag) ||
		h.epilogue != h.store.Size()-format.WordSize {
		r.Faults |= FaultBadEpilogue
	}

	var heads, tails [format.NumClasses]int
	freeRun := 0

	for bp := prologueBP; ; bp = h.nextBlock(bp) {
		headTag := h.headerTag(bp)
		size := format.SizeOf(headTag)
		if size == 0 {
			break
		}

		info := BlockInfo{
			Ref:         bp,
			Size:        size,
			PayloadSize: size - format.OverheadSize,
			Allocated:   format.IsAllocated(headTag),
			TagsMatch:   headTag == h.footerTag(bp),
		}

		if int(headTag&^1)%format.DoubleSize != 0 {
			r.Faults |= FaultUnaligned
		}
		if bp%format.DoubleSize != 0 {
			r.Faults |= FaultMisalignedOffset
		}
		if !info.TagsMatch {
			r.Faults |= FaultTagMismatch
		}
		if bp < format.DoubleSize || bp+size-format.DoubleSize > h.store.Size() {
			r.Faults |= FaultOutOfBounds
		}
		if bp == prologueBP && (size != prologueSize || !info.Allocated) {
			r.Faults |= FaultBadPrologue
		}

		if !info.Allocated {
			freeRun++
			if freeRun > 1 {
				r.Faults |= FaultAdjacentFree
			}

			info.Class = bucketFor(size)
			info.PrevFree = h.prevFree(bp)
			info.NextFree = h.nextFree(bp)

			// Second, independent reconstruction of the list structure:
			// a block with no next link is its bucket's tail, one with no
			// prev link its head; interior links must be symmetric.
			if info.NextFree == 0 {
				tails[info.Class]++
				if tails[info.Class] > 1 {
					r.Faults |= FaultMultipleTails
				}
			} else if h.prevFree(info.NextFree) != bp {
				r.Faults |= FaultBrokenLink
			}
			if info.PrevFree == 0 {
				heads[info.Class]++
				if heads[info.Class] > 1 {
					r.Faults |= FaultMultipleHeads
				}
			} else if h.nextFree(info.PrevFree) != bp {
				r.Faults |= FaultBrokenLink
			}

			r.FreeBlocks++
		} else {
			freeRun = 0
			r.AllocatedBlocks++
		}

		r.Blocks = append(r.Blocks, info)
	}

	return r
}

// Render writes the block-by-block consistency table.
func (r *Report) Render(w io.Writer) {
	line := strings.Repeat("=", 79)
	sep := strings.Repeat("-", 79)

	fmt.Fprintf(w, "%s\n%30sHEAP CONSISTENCY CHECKER\n%s\n", line, "", line)
	if r.Ok() {
		fmt.Fprintln(w, "Integrity check: OK")
	} else {
		fmt.Fprintln(w, "Integrity check: errors found, see below for details.")
	}
	if r.Token != "" {
		fmt.Fprintf(w, "Token: %s\n", r.Token)
	}
	fmt.Fprintf(w, "Free blocks: %d  Allocated blocks: %d\n", r.FreeBlocks, r.AllocatedBlocks)
	fmt.Fprintf(w, "Epilogue offset = %d  Heap size = %d\n", r.Epilogue, r.HeapSize)
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, "   T|   Offset|     Size|  Payload| L|     Prev|     Next|E")
	fmt.Fprintln(w, "----|---------|---------|---------|--|---------|---------|--")

	for _, b := range r.Blocks {
		tc := 'f'
		if b.Allocated {
			tc = 'a'
		}
		ec := 'N'
		if b.TagsMatch {
			ec = 'Y'
		}
		if b.Allocated {
			fmt.Fprintf(w, "   %c|%9d|%9d|%9d|  |         |         |%c\n",
				tc, b.Ref, b.Size, b.PayloadSize, ec)
		} else {
			fmt.Fprintf(w, "   %c|%9d|%9d|%9d|%2d|%9d|%9d|%c\n",
				tc, b.Ref, b.Size, b.PayloadSize, b.Class, b.PrevFree, b.NextFree, ec)
		}
	}
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, "Key: T = (a)llocated or (f)ree. E = header/footer tags match.")
	fmt.Fprintln(w, "     L = bucket index (size range [2^(L-1), 2^L)).")

	if !r.Ok() {
		fmt.Fprintln(w, sep)
		fmt.Fprintln(w, "Heap integrity error report:")
		for _, d := range faultDetails {
			if r.Faults&d.bit != 0 {
				fmt.Fprintf(w, "    [%s] %s\n", d.name, d.detail)
			}
		}
		fmt.Fprintln(w, sep)
	}
}

// MustCheck runs Check and, when faults are found, renders the report to
// stderr and terminates the process. Continuing on a corrupted heap cannot be
// made safe.
func (h *Heap) MustCheck(token string) {
	r := h.Check(token)
	if r.Ok() {
		return
	}
	r.Render(os.Stderr)
	os.Exit(1)
}
