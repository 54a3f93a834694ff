package format

// Pack encodes a block size and its allocated flag into a tag word.
// The size must be a multiple of 8; malformed input is a caller contract
// violation, not a checked error.
func Pack(size int, allocated bool) uint32 {
	tag := uint32(size)
	if allocated {
		tag |= allocatedBit
	}
	return tag
}

// SizeOf extracts the block size from a tag word.
func SizeOf(tag uint32) int {
	return int(tag & sizeMask)
}

// IsAllocated reports whether a tag word has the allocated bit set.
func IsAllocated(tag uint32) bool {
	return tag&allocatedBit != 0
}

// HeaderOffset returns the offset of the header tag for the block whose
// payload starts at bp.
func HeaderOffset(bp int) int {
	return bp - DoubleSize
}

// FooterOffset returns the offset of the footer tag for a block of the given
// total size whose payload starts at bp.
func FooterOffset(bp, size int) int {
	return bp + size - OverheadSize
}

// NextLinkOffset returns the offset of the next-free link word.
func NextLinkOffset(bp int) int {
	return bp - WordSize
}

// PrevLinkOffset returns the offset of the prev-free link word.
func PrevLinkOffset(bp, size int) int {
	return bp + size - OverheadSize + WordSize
}

// NextBlock returns the payload offset of the physically following block.
func NextBlock(bp, size int) int {
	return bp + size
}

// PrevBlockFooterOffset returns the offset of the preceding block's footer
// tag. The previous block's size is only discoverable through this word.
func PrevBlockFooterOffset(bp int) int {
	return bp - OverheadSize
}
