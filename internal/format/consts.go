// Package format defines the in-band block layout of a heapkit heap and the
// pure offset arithmetic derived from it.
//
// Every block carries its metadata at both ends (boundary tags):
//
//	Offset (from payload bp)   Size  Description
//	bp-8                       4     Header tag: size | allocated bit
//	bp-4                       4     Next-free link (free blocks only)
//	bp                         ...   Payload
//	bp+size-16                 4     Footer tag: identical to the header tag
//	bp+size-12                 4     Prev-free link (free blocks only)
//
// Free-list links are self-relative little-endian int32 deltas; a stored 0
// marks the end of a list. Sizes are always multiples of 8, so the low three
// bits of a tag are available for flags and only bit 0 (allocated) is used.
package format

const (
	// WordSize is the tag and link word size in bytes.
	WordSize = 4

	// DoubleSize is the alignment unit. Payload offsets and block sizes are
	// always multiples of DoubleSize.
	DoubleSize = 8

	// OverheadSize is the per-block metadata: header tag + next link at the
	// front, footer tag + prev link at the back.
	OverheadSize = 4 * WordSize

	// MinBlockSize is the smallest legal block: overhead plus one aligned
	// payload unit. Splits never produce a remainder below this.
	MinBlockSize = OverheadSize + DoubleSize

	// NumClasses is the number of segregated free-list buckets. Bucket i
	// holds blocks with sizes in [2^(i-1), 2^i); bucket 0 is never populated
	// because a zero-size block cannot exist.
	NumClasses = 20

	// ChunkSize is the minimum heap extension, so bursts of small requests
	// do not each pay for a backing-store call.
	ChunkSize = 1 << 8

	allocatedBit = 0x1
	sizeMask     = ^uint32(DoubleSize - 1)
)
