// Package trace parses and replays allocator operation traces.
//
// A trace is a line-oriented script driving one heap:
//
//	# comment
//	a <id> <size>          allocate <size> bytes as <id>
//	c <id> <count> <elem>  zero-allocate count*elem bytes as <id>
//	r <id> <size>          resize <id> to <size> bytes
//	f <id>                 release <id>
//
// IDs are small integers chosen by the trace; an ID may be reused after it
// has been released.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Kind identifies a trace operation.
type Kind byte

const (
	KindAlloc   Kind = 'a'
	KindCalloc  Kind = 'c'
	KindRealloc Kind = 'r'
	KindFree    Kind = 'f'
)

// Op is one parsed trace operation.
type Op struct {
	Kind  Kind
	ID    int
	Size  int // alloc/realloc size, or calloc element size
	Count int // calloc only
}

// Parse reads a trace script. Blank lines and lines starting with '#' are
// skipped. Malformed lines fail with their line number.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		op, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", lineno, err)
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return ops, nil
}

// ParseFile reads a trace script from path.
func ParseFile(path string) ([]Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string) (Op, error) {
	fields := strings.Fields(line)
	kind := Kind(fields[0][0])
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}

	var want int
	switch kind {
	case KindFree:
		want = 2
	case KindAlloc, KindRealloc:
		want = 3
	case KindCalloc:
		want = 4
	default:
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%c expects %d fields, got %d", kind, want, len(fields))
	}

	nums := make([]int, 0, 3)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Op{}, fmt.Errorf("bad number %q", f)
		}
		if n < 0 {
			return Op{}, fmt.Errorf("negative number %q", f)
		}
		nums = append(nums, n)
	}

	op := Op{Kind: kind, ID: nums[0]}
	switch kind {
	case KindAlloc, KindRealloc:
		op.Size = nums[1]
	case KindCalloc:
		op.Count = nums[1]
		op.Size = nums[2]
	}
	return op, nil
}
