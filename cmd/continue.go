package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/engctx"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	continueID   string
	continueTags []string
)

var continueCmd = &cobra.Command{
	Use:   "continue [dir]",
	Short: "Resume scheduling an existing benchmark",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		bench, def, lctx, err := loadBenchForResume(outPath, continueID, continueTags)
		if err != nil {
			return err
		}

		sched := newScheduler(bench, def, lctx, bench.ConfigPath, tagSet(continueTags))
		if err := sched.Execute(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("%s benchmark %d (%s) resumed\n", tui.StatusIcon(true), bench.ID, bench.Name)
		return nil
	},
}

func init() {
	continueCmd.Flags().StringVar(&continueID, "id", "", "benchmark id: non-negative literal, negative (from end), or \"last\" (default)")
	continueCmd.Flags().StringArrayVar(&continueTags, "tag", nil, "activate a tag (repeatable)")
}

// loadBenchForResume loads a persisted benchmark and its snapshotted
// configuration, resolving the one config.Benchmark definition matching
// the store's own name.
func loadBenchForResume(outPath, id string, tags []string) (*store.Benchmark, *config.Benchmark, *engctx.Context, error) {
	resolvedID, err := store.ResolveBenchmarkID(outPath, id)
	if err != nil {
		return nil, nil, nil, errs.New(errs.Filesystem, err)
	}
	bench, err := store.Load(outPath, resolvedID, ectx.Strict)
	if err != nil {
		return nil, nil, nil, err
	}

	loader := &config.Loader{IncludePath: ectx.IncludePath, Tags: tagSet(tags)}
	doc, err := loader.Load(bench.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	def, err := selectBenchmark(doc, bench.Name)
	if err != nil {
		return nil, nil, nil, err
	}
	lctx := ectx.WithConfigIncludePath(doc.IncludePath...)
	return bench, def, lctx, nil
}
