// Package scheduler implements the workpackage DAG builder and the
// cooperative execution loop: graph construction with parent-compatibility
// cross products, the Ready-set rule, synchronous and asynchronous <do>
// execution, cycles, shared folders, and restart.
package scheduler

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

// benchmarkAmbient returns the jube_benchmark_* variables.
func benchmarkAmbient(b *store.Benchmark, home string) param.Point {
	return param.Point{
		"jube_benchmark_name":  b.Name,
		"jube_benchmark_id":    strconv.Itoa(b.ID),
		"jube_benchmark_padid": fmt.Sprintf("%06d", b.ID),
		"jube_benchmark_home":  home,
		"jube_benchmark_rundir": b.Dir(),
		"jube_benchmark_start": b.StartTime.Format("2006-01-02T15:04:05"),
	}
}

// stepAmbient returns the jube_step_* variables.
func stepAmbient(name string, iterations, cycles int) param.Point {
	return param.Point{
		"jube_step_name":       name,
		"jube_step_iterations": strconv.Itoa(iterations),
		"jube_step_cycles":     strconv.Itoa(cycles),
	}
}

// wpAmbient returns the jube_wp_* variables plus one jube_wp_parent_<step>_id
// per dependency, for a given workpackage.
func wpAmbient(wp *store.Workpackage, benchDir string, parents []*store.Workpackage) param.Point {
	rel, _ := filepath.Rel(benchDir, wp.Dir)
	p := param.Point{
		"jube_wp_id":       strconv.Itoa(wp.ID),
		"jube_wp_padid":    fmt.Sprintf("%06d", wp.ID),
		"jube_wp_iteration": strconv.Itoa(wp.Iteration),
		"jube_wp_cycle":    strconv.Itoa(wp.Cycle),
		"jube_wp_relpath":  rel,
		"jube_wp_abspath":  wp.Dir,
	}
	env := wp.EnvMap()
	var envList []string
	for _, name := range env.SortedNames() {
		envList = append(envList, name+"="+env[name])
	}
	p["jube_wp_envstr"] = strings.Join(envList, " ")
	p["jube_wp_envlist"] = strings.Join(envList, ",")
	for _, parent := range parents {
		p["jube_wp_parent_"+parent.Step+"_id"] = strconv.Itoa(parent.ID)
	}
	return p
}

func mergeAmbient(maps ...param.Point) param.Point {
	out := param.Point{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
