package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var statusID string

var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Summarize a benchmark's workpackage state counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, statusID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}

		fmt.Printf("benchmark %d (%s)", bench.ID, bench.Name)
		if bench.Comment != "" {
			fmt.Printf(" — %s", bench.Comment)
		}
		fmt.Println()
		counts := bench.StateCounts()
		for _, st := range []store.State{store.Created, store.Ready, store.Running, store.AwaitingSentinel, store.Done, store.Error} {
			if counts[st] == 0 {
				continue
			}
			fmt.Printf("  %s %d\n", tui.StateStyle(string(st)).Render(string(st)), counts[st])
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
}
