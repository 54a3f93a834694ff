package heap

// Store is the heap backing store: a contiguous, append-only byte region that
// can only grow. It stands in for the operating-system heap-growth primitive.
type Store interface {
	// Bytes returns the current region. Implementations that relocate on
	// growth invalidate previously returned slices.
	Bytes() []byte

	// Size returns the current region length in bytes.
	Size() int

	// Extend grows the region by n bytes and returns the offset of the
	// start of the newly added span. The new bytes are zeroed.
	Extend(n int) (int, error)
}

// SliceStore is a Store backed by an ordinary Go slice with an optional byte
// limit. Growth may relocate the region, so payload slices handed out before
// an extension must be re-derived afterwards.
type SliceStore struct {
	buf   []byte
	limit int
}

// NewSliceStore returns a SliceStore capped at limit bytes. A limit of zero
// or less means unbounded.
func NewSliceStore(limit int) *SliceStore {
	return &SliceStore{limit: limit}
}

// Bytes returns the current region.
func (s *SliceStore) Bytes() []byte { return s.buf }

// Size returns the current region length.
func (s *SliceStore) Size() int { return len(s.buf) }

// Extend grows the region by n bytes, returning the old length as the start
// of the new span. Returns ErrStoreFull when the limit would be exceeded.
func (s *SliceStore) Extend(n int) (int, error) {
	if n <= 0 {
		return 0, ErrExtendSize
	}
	if s.limit > 0 && len(s.buf)+n > s.limit {
		return 0, ErrStoreFull
	}
	start := len(s.buf)
	s.buf = append(s.buf, make([]byte, n)...)
	return start, nil
}
