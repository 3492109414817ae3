package scheduler

import (
	"context"
	"fmt"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/engctx"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/fileset"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

// Scheduler drives one benchmark's workpackage graph against one
// config.Benchmark definition.
type Scheduler struct {
	Bench    *store.Benchmark
	Def      *config.Benchmark
	Ctx      *engctx.Context
	Expander *param.Expander
	Files    *fileset.Engine
	Home     string // the configuration file's directory, exported as jube_benchmark_home

	paramsets map[string]*config.Parameterset
	filesets  map[string]*config.Fileset
	subsets   map[string]*config.Substituteset
	steps     map[string]*config.Step

	// sharedLocks serializes shared="true" execution per step name.
	sharedLocks map[string]chan struct{}
}

// New builds a Scheduler and its name indices from a config.Benchmark.
func New(bench *store.Benchmark, def *config.Benchmark, ectx *engctx.Context, expander *param.Expander, files *fileset.Engine, home string) *Scheduler {
	s := &Scheduler{
		Bench:       bench,
		Def:         def,
		Ctx:         ectx,
		Expander:    expander,
		Files:       files,
		Home:        home,
		paramsets:   map[string]*config.Parameterset{},
		filesets:    map[string]*config.Fileset{},
		subsets:     map[string]*config.Substituteset{},
		steps:       map[string]*config.Step{},
		sharedLocks: map[string]chan struct{}{},
	}
	for _, p := range def.Parametersets {
		s.paramsets[p.Name] = p
	}
	for _, f := range def.Filesets {
		s.filesets[f.Name] = f
	}
	for _, su := range def.Substitutesets {
		s.subsets[su.Name] = su
	}
	for _, st := range def.Steps {
		s.steps[st.Name] = st
		s.sharedLocks[st.Name] = make(chan struct{}, 1)
	}
	return s
}

// stepParametersets resolves a step's `use` list down to the
// parametersets it references (ignoring fileset/substituteset names).
func (s *Scheduler) stepParametersets(st *config.Step) []*config.Parameterset {
	var out []*config.Parameterset
	for _, name := range st.Use {
		if ps, ok := s.paramsets[name]; ok {
			out = append(out, ps)
		}
	}
	return out
}

func (s *Scheduler) stepFilesets(st *config.Step) ([]*config.Fileset, []*config.Substituteset) {
	var fs []*config.Fileset
	var ss []*config.Substituteset
	for _, name := range st.Use {
		if f, ok := s.filesets[name]; ok {
			fs = append(fs, f)
		}
		if su, ok := s.subsets[name]; ok {
			ss = append(ss, su)
		}
	}
	return fs, ss
}

// topoSort orders steps so every step appears after everything it depends on.
func (s *Scheduler) topoSort() ([]*config.Step, error) {
	visited := map[string]int{} // 0=unvisited 1=visiting 2=done
	var order []*config.Step
	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return errs.New(errs.Config, fmt.Errorf("step dependency cycle at %q", name))
		}
		visited[name] = 1
		st, ok := s.steps[name]
		if !ok {
			return errs.New(errs.Config, fmt.Errorf("step %q depends on unknown step", name))
		}
		for _, dep := range st.DependList() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[name] = 2
		order = append(order, st)
		return nil
	}
	for _, st := range s.Def.Steps {
		if err := visit(st.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func activeExpr(expr string, p param.Point) (bool, error) {
	return param.EvalActive(expr, p)
}
