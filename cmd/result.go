package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/result"
	"github.com/parambench/parambench/internal/store"
)

var (
	resultID      string
	resultStyle   string
	resultLimit   int
	resultRefresh bool
	resultUse     string
)

var resultCmd = &cobra.Command{
	Use:   "result [dir]",
	Short: "Render a result definition against persisted analyzer state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := "."
		if len(args) == 1 {
			outPath = args[0]
		}
		ids, err := resolveResultIDs(outPath, resultID, resultLimit)
		if err != nil {
			return err
		}

		var rows []*analyzer.Row
		var def *config.Benchmark
		for _, id := range ids {
			bench, err := store.Load(outPath, id, ectx.Strict)
			if err != nil {
				return err
			}
			loader := configLoaderFor()
			doc, err := loader.Load(bench.ConfigPath)
			if err != nil {
				return err
			}
			def, err = selectBenchmark(doc, bench.Name)
			if err != nil {
				return err
			}

			if resultRefresh {
				if err := runAnalysers(bench, def); err != nil {
					return err
				}
			}
			benchRows, err := loadAnalyserRows(bench, def, resultUse)
			if err != nil {
				return err
			}
			for _, r := range benchRows {
				r.BenchmarkID = id
			}
			rows = append(rows, benchRows...)
		}
		if def == nil {
			return errs.New(errs.Config, fmt.Errorf("no benchmarks found under %s", outPath))
		}

		resultDef, err := findResultDef(def, resultUse)
		if err != nil {
			return err
		}
		if resultDef.Table != nil {
			switch {
			case resultStyle != "":
				resultDef.Table.Style = resultStyle
			case resultDef.Table.Style == "" && colorize(os.Stdout):
				resultDef.Table.Style = "pretty"
			}
		}
		return result.Render(os.Stdout, resultDef, rows)
	},
}

func init() {
	resultCmd.Flags().StringVar(&resultID, "id", "", `benchmark id: non-negative literal, negative (from end), "last" (default), or "all"`)
	resultCmd.Flags().StringVarP(&resultStyle, "style", "s", "", "override the result definition's table style: csv, pretty, or aligned")
	resultCmd.Flags().IntVarP(&resultLimit, "limit", "n", 0, "with --id all, cap to the N most recent benchmarks")
	resultCmd.Flags().BoolVarP(&resultRefresh, "refresh", "r", false, "re-run the analyser before rendering")
	resultCmd.Flags().StringVar(&resultUse, "use", "", "result/analyser name to render (default: the single declared result)")
}

// resolveResultIDs expands the --id selector into the concrete benchmark
// ids to render, honoring "all" (every id, optionally capped by limit).
func resolveResultIDs(outPath, id string, limit int) ([]int, error) {
	if id != "all" {
		resolved, err := store.ResolveBenchmarkID(outPath, id)
		if err != nil {
			return nil, errs.New(errs.Filesystem, err)
		}
		return []int{resolved}, nil
	}
	ids, err := store.ListBenchmarkIDs(outPath)
	if err != nil {
		return nil, errs.New(errs.Filesystem, err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	return ids, nil
}

// runAnalysers runs every declared analyser and saves its rows, the
// refresh a -r/--refresh invocation performs before rendering.
func runAnalysers(bench *store.Benchmark, def *config.Benchmark) error {
	for _, a := range def.Analysers {
		az, err := analyzer.New(def, a.Name)
		if err != nil {
			return err
		}
		rows, err := az.Run(bench)
		if err != nil {
			return err
		}
		if err := analyzer.Save(bench.Dir(), a.Name, rows); err != nil {
			return err
		}
	}
	return nil
}

// loadAnalyserRows reads the persisted state for the analyser a <result>
// definition's use= attribute names (or, when that attribute is empty,
// the first analyser the configuration declares).
func loadAnalyserRows(bench *store.Benchmark, def *config.Benchmark, use string) ([]*analyzer.Row, error) {
	resultDef, err := findResultDef(def, use)
	if err != nil {
		return nil, err
	}
	analyserName := resultDef.Use
	if analyserName == "" {
		names, err := analyserNames(def, "")
		if err != nil {
			return nil, err
		}
		analyserName = names[0]
	}
	return analyzer.Load(bench.Dir(), analyserName)
}

// findResultDef resolves --use against the configuration's declared
// <result> definitions, defaulting to the sole one when there is exactly one.
func findResultDef(def *config.Benchmark, use string) (*config.Result, error) {
	if use != "" {
		for _, r := range def.Results {
			if r.Name == use {
				return r, nil
			}
		}
	}
	if len(def.Results) == 1 {
		return def.Results[0], nil
	}
	if len(def.Results) == 0 {
		return nil, errs.New(errs.Config, fmt.Errorf("configuration declares no results"))
	}
	return nil, errs.New(errs.Config, fmt.Errorf("configuration declares %d results; select one with --use", len(def.Results)))
}
