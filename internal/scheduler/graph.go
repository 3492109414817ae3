package scheduler

import (
	"context"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

// candidate is an in-progress (point, parent-workpackages) tuple while
// crossing a step's own parameter space against its dependencies.
type candidate struct {
	point   param.Point
	parents []*store.Workpackage
}

// BuildGraph expands every step's parameter space, crosses it against
// compatible parent workpackages, replicates by `iterations`, and
// persists the resulting workpackages with their sandbox directories and
// parent symlinks.
func (s *Scheduler) BuildGraph(ctx context.Context) error {
	order, err := s.topoSort()
	if err != nil {
		return err
	}
	bmAmbient := benchmarkAmbient(s.Bench, s.Home)

	for _, st := range order {
		sets := s.stepParametersets(st)
		stepAmb := mergeAmbient(bmAmbient, stepAmbient(st.Name, st.EffectiveIterations(), st.EffectiveCycles()))
		points, err := s.Expander.Expand(ctx, sets, stepAmb)
		if err != nil {
			return err
		}

		candidates := make([]candidate, 0, len(points))
		for _, p := range points {
			candidates = append(candidates, candidate{point: p})
		}

		for _, depName := range st.DependList() {
			parentWPs := s.Bench.ForStep(depName)
			parentStep := s.steps[depName]
			parentSets := s.stepParametersets(parentStep)
			parentNames := param.Names(parentSets)

			next := make([]candidate, 0, len(candidates))
			for _, c := range candidates {
				shared := intersect(parentNames, pointNames(c.point))
				for _, pwp := range parentWPs {
					if pointsAgree(c.point, pwp.PointMap(), shared) {
						nc := candidate{point: c.point, parents: append(append([]*store.Workpackage{}, c.parents...), pwp)}
						next = append(next, nc)
					}
				}
				// No compatible parent: the point is dropped.
			}
			candidates = next
		}

		for _, c := range candidates {
			for it := 0; it < st.EffectiveIterations(); it++ {
				wp, err := s.Bench.AddWorkpackage(st.Name, st.Suffix, c.parents, s.Ctx.GroupName)
				if err != nil {
					return err
				}
				wp.Iteration = it
				wp.SetPoint(c.point)
				env := s.exportedEnv(st, c.point, c.parents)
				wp.SetEnv(env)
			}
		}
	}
	return s.Bench.Save()
}

// exportedEnv computes the environment snapshot a workpackage exposes to
// its dependents: its own point restricted to export=true parameters,
// plus any parent's exported snapshot when the parent step declares
// export="true".
func (s *Scheduler) exportedEnv(st *config.Step, point param.Point, parents []*store.Workpackage) param.Point {
	out := param.Point{}
	exported := param.ExportedNames(s.stepParametersets(st))
	for name := range exported {
		out[name] = point[name]
	}
	for _, p := range parents {
		parentStep := s.steps[p.Step]
		if parentStep != nil && parentStep.Export {
			for k, v := range p.EnvMap() {
				out[k] = v
			}
		}
	}
	return out
}

func pointNames(p param.Point) map[string]bool {
	m := make(map[string]bool, len(p))
	for k := range p {
		m[k] = true
	}
	return m
}

func intersect(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func pointsAgree(a, b param.Point, shared map[string]bool) bool {
	for name := range shared {
		if a[name] != b[name] {
			return false
		}
	}
	return true
}
