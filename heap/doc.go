// Package heap implements a general-purpose dynamic memory allocator over a
// single growable byte region.
//
// # Overview
//
// A Heap manages one backing Store as a chain of blocks with boundary tags: a
// size-and-allocated tag word before and after every payload. Free blocks are
// kept in twenty segregated free lists bucketed by power-of-two size class,
// linked through in-band self-relative offsets. Allocation is first-fit across
// ascending buckets; freeing coalesces eagerly with both physical neighbors,
// so no two adjacent blocks are ever simultaneously free.
//
// # Operations
//
//	h := heap.New(heap.NewSliceStore(0))
//	ref, p, err := h.Alloc(100)   // p aliases the store, len(p) >= 100
//	ref, p, err = h.Realloc(ref, 500)
//	h.Free(ref)
//
// Alloc(0) returns NilRef with no error; Free(NilRef) is a no-op;
// Realloc(NilRef, n) behaves as Alloc and Realloc(ref, 0) as Free. Calloc
// allocates count*elemSize bytes and zeroes them; the caller must ensure the
// product does not overflow (internal/buf.MulOverflowSafe exists for that).
// The only failure an operation can report is the backing store refusing to
// grow.
//
// # Payload stability
//
// Payload slices alias the store's current region. A SliceStore may relocate
// its region when it grows, invalidating slices handed out earlier; re-derive
// them with Payload after any operation that can extend the heap, or use
// MmapStore, which reserves its whole capacity up front and never relocates.
//
// # Verification
//
// Check walks every block from the prologue to the epilogue and cross-checks
// the structural invariants (tag agreement, alignment, eager coalescing,
// free-list link consistency), accumulating faults into a Report value. The
// hot paths never verify; corruption detection is entirely the caller's
// choice via Check or the fatal MustCheck.
//
// # Thread safety
//
// A Heap is not safe for concurrent use. Callers that share one need an
// external mutex held around every operation, including its error paths.
package heap
