package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/scheduler"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	infoID      string
	infoStep    string
	infoPerLine bool
	infoCSVSep  string
	infoCSV     bool
)

var infoCmd = &cobra.Command{
	Use:   "info [dir]",
	Short: "Report per-workpackage state, cursor, and parameters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, infoID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}

		wps := bench.Workpackages
		if infoStep != "" {
			wps = bench.ForStep(infoStep)
		}
		for _, wp := range wps {
			printWorkpackageInfo(wp)
		}

		if infoStep != "" {
			printSharedLockHolder(bench, infoStep)
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().StringVar(&infoID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
	infoCmd.Flags().StringVar(&infoStep, "step", "", "restrict to one step's workpackages, and report its shared-lock holder")
	infoCmd.Flags().BoolVarP(&infoPerLine, "params", "p", false, "print each workpackage's resolved parameters one per line")
	infoCmd.Flags().BoolVarP(&infoCSV, "csv", "c", false, "print each workpackage's resolved parameters CSV-joined")
	infoCmd.Flags().StringVar(&infoCSVSep, "sep", ",", "separator used with --csv")
}

func printWorkpackageInfo(wp *store.Workpackage) {
	cursor := fmt.Sprintf("(%d,%d)", wp.Cycle, wp.DoIndex)
	fmt.Printf("%s %d (%s) %s cursor=%s\n", tui.Bullet(), wp.ID, wp.Step, tui.StateStyle(string(wp.State)).Render(string(wp.State)), cursor)
	if !infoPerLine && !infoCSV {
		return
	}
	point := wp.PointMap()
	names := point.SortedNames()
	if infoCSV {
		cells := make([]string, len(names))
		for i, n := range names {
			cells[i] = n + "=" + point[n]
		}
		fmt.Println("  " + strings.Join(cells, infoCSVSep))
		return
	}
	for _, n := range names {
		fmt.Printf("  %s=%s\n", n, point[n])
	}
}

func printSharedLockHolder(bench *store.Benchmark, step string) {
	holderPath := scheduler.SharedLockHolderPath(bench.Dir(), step)
	data, err := os.ReadFile(holderPath)
	if err != nil {
		fmt.Printf("%s shared lock for %q: free\n", tui.Bullet(), step)
		return
	}
	fmt.Printf("%s shared lock for %q: held by workpackage %s\n", tui.Bullet(), step, string(data))
}
