package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
)

var logID string

var logCmd = &cobra.Command{
	Use:   "log [dir]",
	Short: "Print a benchmark's event log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, logID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}
		lines, err := bench.ReadEvents()
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().StringVar(&logID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
}
