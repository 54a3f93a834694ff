//go:build unix

package heap

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapStore is a Store over one anonymous mapping reserved up front. The
// region never relocates, so payload slices stay valid across growth. Close
// releases the mapping.
type MmapStore struct {
	mem  []byte
	used int
}

// NewMmapStore reserves capacity bytes of anonymous memory.
func NewMmapStore(capacity int) (*MmapStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("heap: mmap capacity must be positive, got %d", capacity)
	}
	mem, err := unix.Mmap(-1, 0, capacity,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", capacity, err)
	}
	return &MmapStore{mem: mem}, nil
}

// Bytes returns the used portion of the mapping.
func (s *MmapStore) Bytes() []byte { return s.mem[:s.used] }

// Size returns the used length in bytes.
func (s *MmapStore) Size() int { return s.used }

// Extend advances the high-water mark within the reserved mapping. Returns
// ErrStoreFull once the reservation is exhausted.
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

// Close unmaps the reservation. Double close is a no-op.
func (s *MmapStore) Close() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	s.used = 0
	if errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}
