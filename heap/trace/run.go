package trace

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap"
)

// Options controls a replay.
type Options struct {
	// CheckEvery runs the heap verifier after every Nth operation and
	// fails the replay on the first fault. 0 disables checking.
	CheckEvery int

	// Fill writes a per-ID byte pattern into every allocation and verifies
	// it is intact before the block is resized or released. This turns a
	// replay into an overlap/round-trip test.
	Fill bool
}

// Result summarizes a completed replay.
type Result struct {
	Ops      int        `json:"ops"`
	Live     int        `json:"live"`      // blocks still allocated at the end
	PeakLive int        `json:"peak_live"` // high-water mark of live blocks
	HeapSize int        `json:"heap_size"`
	Stats    heap.Stats `json:"stats"`
}

type liveBlock struct {
	ref  heap.Ref
	size int // requested size, the extent of the fill pattern
}

// Run replays ops against h. Trace errors (unknown or duplicate IDs), heap
// errors, fill-pattern damage, and verifier faults all abort the replay.
func Run(h *heap.Heap, ops []Op, opts Options) (Result, error) {
	live := make(map[int]liveBlock)
	var res Result

	for i, op := range ops {
		if err := apply(h, live, op, opts.Fill); err != nil {
			return res, fmt.Errorf("trace: op %d (%c %d): %w", i, op.Kind, op.ID, err)
		}
		res.Ops++
		if len(live) > res.PeakLive {
			res.PeakLive = len(live)
		}
		if opts.CheckEvery > 0 && (i+1)%opts.CheckEvery == 0 {
			if err := h.Check(fmt.Sprintf("op %d", i)).Err(); err != nil {
				return res, err
			}
		}
	}

	res.Live = len(live)
	res.HeapSize = h.Size()
	res.Stats = h.Stats()
	return res, nil
}

func apply(h *heap.Heap, live map[int]liveBlock, op Op, fill bool) error {
	switch op.Kind {
	case KindAlloc, KindCalloc:
		if _, ok := live[op.ID]; ok {
			return fmt.Errorf("id already live")
		}
		size := op.Size
		var (
			ref     heap.Ref
			payload []byte
			err     error
		)
		if op.Kind == KindCalloc {
			size = op.Count * op.Size
			ref, payload, err = h.Calloc(op.Count, op.Size)
		} else {
			ref, payload, err = h.Alloc(size)
		}
		if err != nil {
			return err
		}
		if ref == heap.NilRef {
			return nil // zero-size request, nothing to track
		}
		if op.Kind == KindCalloc {
			for _, b := range payload {
				if b != 0 {
					return fmt.Errorf("calloc payload not zeroed")
				}
			}
		}
		if fill {
			fillPattern(payload, op.ID, size)
		}
		live[op.ID] = liveBlock{ref: ref, size: size}
		return nil

	case KindRealloc:
		lb, ok := live[op.ID]
		if !ok {
			return fmt.Errorf("id not live")
		}
		if fill {
			if err := verifyPattern(h.Payload(lb.ref), op.ID, lb.size); err != nil {
				return err
			}
		}
		ref, payload, err := h.Realloc(lb.ref, op.Size)
		if err != nil {
			return err
		}
		if op.Size == 0 || ref == heap.NilRef {
			delete(live, op.ID)
			return nil
		}
		if fill {
			// The surviving prefix must have moved with the block.
			kept := min(lb.size, op.Size)
			if err := verifyPattern(payload[:kept], op.ID, kept); err != nil {
				return err
			}
			fillPattern(payload, op.ID, op.Size)
		}
		live[op.ID] = liveBlock{ref: ref, size: op.Size}
		return nil

	case KindFree:
		lb, ok := live[op.ID]
		if !ok {
			return fmt.Errorf("id not live")
		}
		if fill {
			if err := verifyPattern(h.Payload(lb.ref), op.ID, lb.size); err != nil {
				return err
			}
		}
		h.Free(lb.ref)
		delete(live, op.ID)
		return nil

	default:
		return fmt.Errorf("unknown operation")
	}
}

func fillPattern(payload []byte, id, size int) {
	b := byte(id)
	for i := 0; i < size && i < len(payload); i++ {
		payload[i] = b
	}
}

func verifyPattern(payload []byte, id, size int) error {
	b := byte(id)
	for i := 0; i < size && i < len(payload); i++ {
		if payload[i] != b {
			return fmt.Errorf("payload damaged at byte %d: got 0x%02x, want 0x%02x",
				i, payload[i], b)
		}
	}
	return nil
}
