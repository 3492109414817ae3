package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/engctx"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/fileset"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/scheduler"
	"github.com/parambench/parambench/internal/store"
	"github.com/parambench/parambench/internal/tui"
)

var (
	runOutPath string
	runTags    []string
	runExit    bool
	runName    string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Expand and schedule a new benchmark from a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		tags := tagSet(runTags)

		loader := &config.Loader{IncludePath: ectx.IncludePath, Tags: tags}
		doc, err := loader.Load(path)
		if err != nil {
			return err
		}
		lctx := ectx.WithConfigIncludePath(doc.IncludePath...)
		lctx.ExitOnError = runExit

		def, err := selectBenchmark(doc, runName)
		if err != nil {
			return err
		}

		bench, err := store.NewBenchmark(runOutPath, def.Name)
		if err != nil {
			return err
		}
		if err := bench.SnapshotConfig(path); err != nil {
			return err
		}

		sched := newScheduler(bench, def, lctx, path, tags)
		if err := sched.BuildGraph(cmd.Context()); err != nil {
			return err
		}
		if err := sched.Execute(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("%s benchmark %d (%s) scheduled under %s\n", tui.StatusIcon(true), bench.ID, bench.Name, bench.Dir())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutPath, "outpath", ".", "directory under which benchmark directories are created")
	runCmd.Flags().StringArrayVar(&runTags, "tag", nil, "activate a tag (repeatable)")
	runCmd.Flags().BoolVarP(&runExit, "exit", "e", false, "abort the run as soon as any workpackage errors")
	runCmd.Flags().StringVar(&runName, "id", "", "benchmark name to select when the file declares more than one")
}

// tagSet turns a repeated --tag flag into the active-tag-set map the
// loader and evaluator expect.
func tagSet(tags []string) map[string]bool {
	out := make(map[string]bool, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out[part] = true
			}
		}
	}
	return out
}

// selectBenchmark picks the benchmark named by id (when set) or, failing
// that, the document's only benchmark.
func selectBenchmark(doc *config.Document, id string) (*config.Benchmark, error) {
	if len(doc.Benchmarks) == 0 {
		return nil, errs.New(errs.Config, fmt.Errorf("configuration declares no benchmarks"))
	}
	if id == "" {
		if len(doc.Benchmarks) > 1 {
			return nil, errs.New(errs.Config, fmt.Errorf("configuration declares %d benchmarks; select one with --id", len(doc.Benchmarks)))
		}
		return doc.Benchmarks[0], nil
	}
	for _, bm := range doc.Benchmarks {
		if bm.Name == id {
			return bm, nil
		}
	}
	return nil, errs.New(errs.Config, fmt.Errorf("benchmark %q not found", id))
}

// newScheduler wires a Scheduler from an already-loaded benchmark store
// object and its matching config definition, the construction every
// subcommand that drives or re-drives a schedule needs. tags is the
// active tag set mode="tag" parameters evaluate against.
func newScheduler(bench *store.Benchmark, def *config.Benchmark, lctx *engctx.Context, configPath string, tags map[string]bool) *scheduler.Scheduler {
	evaluators := param.DefaultEvaluators(lctx, tags)
	expander := param.NewExpander(evaluators)
	files := &fileset.Engine{ConfigDir: filepath.Dir(configPath)}
	home := filepath.Dir(configPath)
	return scheduler.New(bench, def, lctx, expander, files, home)
}
