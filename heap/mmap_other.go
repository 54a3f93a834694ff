//go:build !unix

package heap

import "fmt"

// MmapStore on non-unix platforms falls back to a fixed preallocated buffer
// with the same capacity and exhaustion semantics as the anonymous mapping.
type MmapStore struct {
	mem  []byte
	used int
}

// NewMmapStore preallocates capacity bytes.
func NewMmapStore(capacity int) (*MmapStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("heap: mmap capacity must be positive, got %d", capacity)
	}
	return &MmapStore{mem: make([]byte, capacity)}, nil
}

// Bytes returns the used portion of the buffer.
func (s *MmapStore) Bytes() []byte { return s.mem[:s.used] }

// Size returns the used length in bytes.
func (s *MmapStore) Size() int { return s.used }

// Extend advances the high-water mark within the preallocated buffer.
func (s *MmapStore) Extend(n int) (int, error) {
	if n <= 0 {
		return 0, ErrExtendSize
	}
	if s.used+n > len(s.mem) {
		return 0, ErrStoreFull
	}
	start := s.used
	s.used += n
	return start, nil
}

// Close releases the buffer. Double close is a no-op.
func (s *MmapStore) Close() error {
	s.mem = nil
	s.used = 0
	return nil
}
