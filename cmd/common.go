package cmd

import (
	"fmt"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
)

// configLoaderFor builds a Loader for re-reading a persisted benchmark's
// snapshotted configuration. The snapshot is an unmodified copy of the
// original file, and the Loader gets no tags, so tag expressions are
// evaluated against an empty tag set.
func configLoaderFor() *config.Loader {
	return &config.Loader{IncludePath: ectx.IncludePath}
}

// analyserNames resolves the `analyse`/`result` commands' optional
// --analyser/--use selector down to the definitions to operate on: the
// named one, or every declared analyser when name is empty.
func analyserNames(def *config.Benchmark, name string) ([]string, error) {
	if name != "" {
		for _, a := range def.Analysers {
			if a.Name == name {
				return []string{name}, nil
			}
		}
		return nil, errs.New(errs.Config, fmt.Errorf("analyser %q not found", name))
	}
	var names []string
	for _, a := range def.Analysers {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return nil, errs.New(errs.Config, fmt.Errorf("configuration declares no analysers"))
	}
	return names, nil
}
