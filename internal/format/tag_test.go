package format

import "testing"

func TestPackRoundTrip(t *testing.T) {
	cases := []struct {
		size      int
		allocated bool
	}{
		{0, true},
		{16, true},
		{24, false},
		{4096, false},
		{1 << 20, true},
	}
	for _, c := range cases {
		tag := Pack(c.size, c.allocated)
		if got := SizeOf(tag); got != c.size {
			t.Fatalf("SizeOf(Pack(%d,%v)) = %d", c.size, c.allocated, got)
		}
		if got := IsAllocated(tag); got != c.allocated {
			t.Fatalf("IsAllocated(Pack(%d,%v)) = %v", c.size, c.allocated, got)
		}
	}
}

func TestOffsetArithmetic(t *testing.T) {
	// A 40-byte block with payload at offset 24 occupies [16, 56).
	bp, size := 24, 40

	if got := HeaderOffset(bp); got != 16 {
		t.Fatalf("HeaderOffset = %d, want 16", got)
	}
	if got := NextLinkOffset(bp); got != 20 {
		t.Fatalf("NextLinkOffset = %d, want 20", got)
	}
	if got := FooterOffset(bp, size); got != 48 {
		t.Fatalf("FooterOffset = %d, want 48", got)
	}
	if got := PrevLinkOffset(bp, size); got != 52 {
		t.Fatalf("PrevLinkOffset = %d, want 52", got)
	}
	if got := NextBlock(bp, size); got != 64 {
		t.Fatalf("NextBlock = %d, want 64", got)
	}
	if got := PrevBlockFooterOffset(bp); got != 8 {
		t.Fatalf("PrevBlockFooterOffset = %d, want 8", got)
	}
}

func TestAlign8(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 24: 24, 4095: 4096}
	for in, want := range cases {
		if got := Align8(in); got != want {
			t.Fatalf("Align8(%d) = %d, want %d", in, got, want)
		}
	}
	if !Aligned8(16) || Aligned8(12) {
		t.Fatal("Aligned8 misclassified")
	}
}

func TestAdjustSize(t *testing.T) {
	cases := map[int]int{
		1:   MinBlockSize,
		8:   MinBlockSize,
		9:   32, // 9 + 16 overhead → 32
		16:  32,
		24:  40,
		100: 120,
	}
	for in, want := range cases {
		if got := AdjustSize(in); got != want {
			t.Fatalf("AdjustSize(%d) = %d, want %d", in, got, want)
		}
	}
}
