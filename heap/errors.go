package heap

import "errors"

var (
	// ErrNoSpace indicates that no free block could satisfy the request and
	// the backing store refused to grow.
	ErrNoSpace = errors.New("heap: no free block large enough")

	// ErrStoreFull indicates a backing store has reached its capacity limit.
	ErrStoreFull = errors.New("heap: backing store exhausted")

	// ErrStoreNotEmpty indicates Init was given a store that already holds
	// data. A Heap owns the interpretation of its store from offset zero.
	ErrStoreNotEmpty = errors.New("heap: backing store must be empty at init")

	// ErrExtendSize indicates a non-positive extension request.
	ErrExtendSize = errors.New("heap: extend size must be positive")
)
