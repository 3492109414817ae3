package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	removeID          string
	removeWorkpackage int
)

var removeCmd = &cobra.Command{
	Use:   "remove [dir]",
	Short: "Remove a benchmark, or one workpackage and its orphaned dependents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		resolvedID, err := store.ResolveBenchmarkID(outPath, removeID)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}

		if removeWorkpackage == 0 {
			dir := store.BenchDir(outPath, resolvedID)
			if err := os.RemoveAll(dir); err != nil {
				return errs.New(errs.Filesystem, err)
			}
			fmt.Printf("%s benchmark %d removed\n", tui.StatusIcon(true), resolvedID)
			return nil
		}

		bench, err := store.Load(outPath, resolvedID, ectx.Strict)
		if err != nil {
			return err
		}
		if err := removeWorkpackageCascading(bench, removeWorkpackage); err != nil {
			return err
		}
		if err := bench.Save(); err != nil {
			return err
		}
		fmt.Printf("%s workpackage %d removed from benchmark %d\n", tui.StatusIcon(true), removeWorkpackage, bench.ID)
		return nil
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
	removeCmd.Flags().IntVar(&removeWorkpackage, "workpackage", 0, "remove only this workpackage id, cascading to its dependents (default: remove the whole benchmark)")
}

// removeWorkpackageCascading removes wpID's sandbox directory and breaks
// every dependent's symlink to it: a dependent whose only parent was
// wpID is re-marked Error rather than left in a dangling Ready state,
// matching the "missing symlink is corruption" contract applied to
// user-initiated removal.
func removeWorkpackageCascading(bench *store.Benchmark, wpID int) error {
	wp := bench.ByID(wpID)
	if wp == nil {
		return errs.New(errs.Config, fmt.Errorf("workpackage %d not found", wpID))
	}
	if err := os.RemoveAll(wp.Dir); err != nil {
		return errs.New(errs.Filesystem, err)
	}

	remaining := bench.Workpackages[:0:0]
	for _, other := range bench.Workpackages {
		if other.ID == wpID {
			continue
		}
		if dependsOn(other, wpID) {
			link := store.ParentLinkPath(other.Dir, wp.Step)
			_ = os.Remove(link)
			other.ParentIDs = dropParent(other.ParentIDs, wpID)
			if len(other.ParentIDs) == 0 && !other.State.Terminal() {
				other.State = store.Error
				other.ErrorMsg = errs.New(errs.Config, fmt.Errorf("parent workpackage %d removed", wpID)).Error()
			}
		}
		remaining = append(remaining, other)
	}
	bench.Workpackages = remaining
	return nil
}

func dependsOn(wp *store.Workpackage, parentID int) bool {
	for _, id := range wp.ParentIDs {
		if id == parentID {
			return true
		}
	}
	return false
}

func dropParent(ids []int, target int) []int {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
