package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	analyseID   string
	analyseName string
)

var analyseCmd = &cobra.Command{
	Use:   "analyse [dir]",
	Short: "Scan a benchmark's Done workpackages and persist analyzer state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, analyseID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}

		loader := configLoaderFor()
		doc, err := loader.Load(bench.ConfigPath)
		if err != nil {
			return err
		}
		def, err := selectBenchmark(doc, bench.Name)
		if err != nil {
			return err
		}

		names, err := analyserNames(def, analyseName)
		if err != nil {
			return err
		}
		for _, name := range names {
			az, err := analyzer.New(def, name)
			if err != nil {
				return err
			}
			rows, err := az.Run(bench)
			if err != nil {
				return err
			}
			if err := analyzer.Save(bench.Dir(), name, rows); err != nil {
				return err
			}
			fmt.Printf("%s analyser %q: %d row(s)\n", tui.StatusIcon(true), name, len(rows))
		}
		return nil
	},
}

func init() {
	analyseCmd.Flags().StringVar(&analyseID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
	analyseCmd.Flags().StringVar(&analyseName, "analyser", "", "analyser name to run (default: every declared analyser)")
}
