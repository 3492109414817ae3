package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var updateID string

var updateCmd = &cobra.Command{
	Use:   "update [dir]",
	Short: "Re-render a benchmark's graph and analysis files in the current engine's format",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, updateID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}

		// Load unconditionally in non-strict mode: update's whole purpose is
		// to resolve the version mismatch that a strict load would reject.
		bench, err := store.Load(outPath, resolvedID, false)
		if err != nil {
			return err
		}
		from := bench.EngineVer
		bench.EngineVer = store.EngineVersion
		if err := bench.Save(); err != nil {
			return err
		}

		names, err := analyserStateNames(bench.Dir())
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		for _, name := range names {
			rows, err := analyzer.Load(bench.Dir(), name)
			if err != nil {
				return err
			}
			if err := analyzer.Save(bench.Dir(), name, rows); err != nil {
				return err
			}
		}

		fmt.Printf("%s benchmark %d updated: %s -> %s (%d analysis file(s) re-rendered)\n",
			tui.StatusIcon(true), bench.ID, from, store.EngineVersion, len(names))
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
}

// analyserStateNames lists the analyser names that have a persisted state
// file under benchDir, recovered from the analysis_<name>.xml filenames
// analyzer.Save writes.
func analyserStateNames(benchDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(benchDir, "analysis_*.xml"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		base = strings.TrimPrefix(base, "analysis_")
		base = strings.TrimSuffix(base, ".xml")
		names = append(names, base)
	}
	return names, nil
}
