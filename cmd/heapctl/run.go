package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	runLimit      int
	runMmap       bool
	runCheckEvery int
	runFill       bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runLimit, "limit", 0, "Backing store byte limit (0 = unbounded)")
	cmd.Flags().BoolVar(&runMmap, "mmap", false, "Back the heap with an anonymous mapping (requires --limit)")
	cmd.Flags().IntVar(&runCheckEvery, "check-every", 0, "Run the consistency checker every N operations")
	cmd.Flags().BoolVar(&runFill, "fill", true, "Fill payloads and verify them on resize/release")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <trace>",
		Short: "Replay an operation trace",
		Long: `The run command replays a trace script against a fresh heap and prints
allocator statistics. With --check-every the consistency checker runs during
the replay; on a fault the block table is printed and run exits non-zero.

Example:
  heapctl run workload.rep
  heapctl run workload.rep --limit 1048576 --check-every 100
  heapctl run workload.rep --mmap --limit 1048576 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args[0])
		},
	}
}

func runTrace(path string) error {
	ops, err := trace.ParseFile(path)
	if err != nil {
		return err
	}
	printVerbose("parsed %d operations from %s\n", len(ops), path)

	h, closeStore, err := newHeap()
	if err != nil {
		return err
	}
	defer closeStore()

	res, runErr := trace.Run(h, ops, trace.Options{
		CheckEvery: runCheckEvery,
		Fill:       runFill,
	})
	if runErr != nil {
		// Render the final state so a fault is diagnosable.
		h.Check(path).Render(os.Stderr)
		return runErr
	}

	if jsonOut {
		return printJSON(res)
	}
	printInfo("ops: %d  live: %d  peak live: %d\n", res.Ops, res.Live, res.PeakLive)
	printInfo("heap size: %d  extends: %d (%d bytes)  splits: %d  coalesces: %d\n",
		res.HeapSize, res.Stats.ExtendCalls, res.Stats.BytesExtended,
		res.Stats.Splits, res.Stats.Coalesces)
	return nil
}

func newHeap() (*heap.Heap, func(), error) {
	if runMmap {
		if runLimit <= 0 {
			return nil, nil, fmt.Errorf("--mmap requires a positive --limit")
		}
		store, err := heap.NewMmapStore(runLimit)
		if err != nil {
			return nil, nil, err
		}
		return heap.New(store), func() { _ = store.Close() }, nil
	}
	return heap.New(heap.NewSliceStore(runLimit)), func() {}, nil
}
