package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/trace"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <trace>",
		Short: "Replay a trace with verification after every operation",
		Long: `The check command replays a trace script, runs the heap consistency
checker after every single operation, and prints the final block table.

Example:
  heapctl check workload.rep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkTrace(args[0])
		},
	}
}

func checkTrace(path string) error {
	ops, err := trace.ParseFile(path)
	if err != nil {
		return err
	}

	h := heap.New(heap.NewSliceStore(0))
	if _, err := trace.Run(h, ops, trace.Options{CheckEvery: 1, Fill: true}); err != nil {
		h.Check(path).Render(os.Stderr)
		return err
	}

	report := h.Check(path)
	if !quiet {
		report.Render(os.Stdout)
	}
	return report.Err()
}
