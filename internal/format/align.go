package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + DoubleSize - 1) &^ (DoubleSize - 1)
}

// Aligned8 reports whether n is a multiple of 8.
func Aligned8(n int) bool {
	return n&(DoubleSize-1) == 0
}

// AdjustSize converts a requested payload size into a block size: it adds the
// metadata overhead, rounds up to 8 bytes, and floors the result at
// MinBlockSize. The request must be positive.
func AdjustSize(request int) int {
	if request <= DoubleSize {
		return MinBlockSize
	}
	return Align8(request + OverheadSize)
}
