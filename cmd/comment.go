package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	commentID  string
	commentDir string
)

var commentCmd = &cobra.Command{
	Use:   "comment <text...>",
	Short: "Attach a free-text annotation to a benchmark",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		outPath := commentDir
		if outPath == "" {
			outPath = "."
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, commentID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}
		if err := bench.SetComment(text); err != nil {
			return err
		}
		fmt.Printf("%s benchmark %d commented\n", tui.StatusIcon(true), bench.ID)
		return nil
	},
}

func init() {
	commentCmd.Flags().StringVar(&commentDir, "dir", "", "benchmark output directory (default: current directory)")
	commentCmd.Flags().StringVar(&commentID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
}
