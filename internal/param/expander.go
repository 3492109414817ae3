package param

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
)

// maxResolutionPasses bounds $name indirection resolution: five passes
// support chained references while still detecting cycles
// deterministically instead of needing full graph closure.
const maxResolutionPasses = 5

// Expander expands referenced parametersets into parameter-space points
// and resolves $name references within each point.
type Expander struct {
	Evaluators EvaluatorSet
}

// NewExpander builds an Expander with the given evaluator set.
func NewExpander(evaluators EvaluatorSet) *Expander {
	return &Expander{Evaluators: evaluators}
}

// Expanded pairs a fully-resolved point with the pre-resolution point
// (the Cartesian-product alternative chosen per name, before $-reference
// substitution and scripting evaluation). The raw form is retained so the
// scheduler can later re-run resolution for update_mode∈{use,step,cycle,
// always} parameters against refreshed ambient variables.
type Expanded struct {
	Resolved Point
	Raw      Point
}

// Expand combines sets, forms the Cartesian product of their template
// parameters, and resolves + evaluates every resulting point against the
// given ambient variables (benchmark/step/workpackage exports).
func (ex *Expander) Expand(ctx context.Context, sets []*config.Parameterset, ambient map[string]string) ([]Expanded, error) {
	merged, err := mergeSets(sets)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(merged))
	for n := range merged {
		names = append(names, n)
	}
	// Deterministic expansion order.
	sort.Strings(names)

	points := []Point{{}}
	for _, name := range names {
		mp := merged[name]
		alts := mp.alternatives()
		next := make([]Point, 0, len(points)*len(alts))
		for _, base := range points {
			for _, alt := range alts {
				p := base.Clone()
				p[name] = alt
				next = append(next, p)
			}
		}
		points = next
	}

	out := make([]Expanded, 0, len(points))
	for _, p := range points {
		rp, err := ex.resolvePoint(ctx, p, merged, ambient)
		if err != nil {
			return nil, err
		}
		out = append(out, Expanded{Resolved: rp, Raw: p})
	}
	return out, nil
}

// Reresolve re-runs $-reference substitution, scripting evaluation, and
// type-checking for the parameters in sets whose update_mode satisfies
// allowed, starting from each name's raw (pre-resolution) alternative and
// the refreshed ambient variables. Names not selected by allowed keep
// their existing resolved value from current.
func (ex *Expander) Reresolve(ctx context.Context, current, raw Point, sets []*config.Parameterset, ambient map[string]string, allowed func(config.UpdateMode) bool) (Point, error) {
	merged, err := mergeSets(sets)
	if err != nil {
		return nil, err
	}
	work := current.Clone()
	seed := Point{}
	for name, mp := range merged {
		if rv, ok := raw[name]; ok && allowed(mp.updateMode) {
			seed[name] = rv
		}
	}
	if len(seed) == 0 {
		return work, nil
	}
	fallbackAmbient := make(map[string]string, len(ambient)+len(current))
	for k, v := range current {
		fallbackAmbient[k] = v
	}
	for k, v := range ambient {
		fallbackAmbient[k] = v
	}
	resolvedSeed, err := ex.resolvePoint(ctx, seed, merged, fallbackAmbient)
	if err != nil {
		return nil, err
	}
	for name := range seed {
		work[name] = resolvedSeed[name]
	}
	return work, nil
}

// resolvePoint performs the bounded fixed-point $name substitution, then
// scripting evaluation, then type checking, for a single point.
func (ex *Expander) resolvePoint(ctx context.Context, p Point, merged map[string]*mergedParam, ambient map[string]string) (Point, error) {
	work := p.Clone()

	resolvedFully := false
	for pass := 0; pass < maxResolutionPasses; pass++ {
		changed := false
		for name, val := range work {
			newVal, didSub := substituteRefs(val, work, ambient)
			if didSub {
				work[name] = newVal
				changed = true
			}
		}
		if !changed {
			resolvedFully = true
			break
		}
	}
	if !resolvedFully {
		// One more check: are there still unresolved $refs after the
		// bound? If so this is a genuine resolution error, not just a
		// stable fixed point reached early.
		for name, val := range work {
			if hasUnresolvedRef(val, work, ambient) {
				return nil, errs.New(errs.Resolution, fmt.Errorf(
					"parameter %q did not resolve within %d passes (value=%q): possible reference cycle",
					name, maxResolutionPasses, val))
			}
		}
	}

	for name, val := range work {
		if hasUnresolvedRef(val, work, ambient) {
			return nil, errs.New(errs.Resolution, fmt.Errorf(
				"parameter %q has unresolved reference: %q", name, val))
		}
		mp, ok := merged[name]
		if !ok || mp.mode == config.ModeText {
			continue
		}
		ev, ok := ex.Evaluators[mp.mode]
		if !ok {
			return nil, errs.New(errs.Resolution, fmt.Errorf(
				"parameter %q: no evaluator registered for mode %q", name, mp.mode))
		}
		env := make(map[string]string, len(work)+len(ambient))
		for k, v := range ambient {
			env[k] = v
		}
		for k, v := range work {
			env[k] = v
		}
		out, err := ev.Eval(ctx, val, env)
		if err != nil {
			return nil, errs.New(errs.Resolution, fmt.Errorf("parameter %q: %w", name, err))
		}
		work[name] = out
	}

	for name, val := range work {
		mp, ok := merged[name]
		if !ok {
			continue
		}
		if err := typeCheck(name, val, mp.typ); err != nil {
			return nil, err
		}
	}

	return work, nil
}

func typeCheck(name, val string, typ config.ParamType) error {
	if val == "" {
		return nil
	}
	switch typ {
	case config.TypeInt:
		if _, err := strconv.ParseInt(val, 10, 64); err != nil {
			return errs.New(errs.Resolution, fmt.Errorf("parameter %q: value %q is not a valid int", name, val))
		}
	case config.TypeFloat:
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return errs.New(errs.Resolution, fmt.Errorf("parameter %q: value %q is not a valid float", name, val))
		}
	}
	return nil
}

// SubstituteFinal resolves $name references in s against an already
// fully-resolved point plus ambient variables. Unlike resolvePoint's
// bounded fixed-point loop, s is assumed terminal (a <do> command or
// substitution text evaluated after parameter resolution), so a single
// pass suffices; an unresolved reference is left as literal text.
func SubstituteFinal(s string, point Point, ambient map[string]string) string {
	out, _ := substituteRefs(s, point, ambient)
	return out
}

// substituteRefs does one pass of $name -> value replacement against the
// current point and ambient variables. It returns the replaced string and
// whether any substitution actually changed the text.
func substituteRefs(s string, point Point, ambient map[string]string) (string, bool) {
	if !strings.Contains(s, "$") {
		return s, false
	}
	var b strings.Builder
	changed := false
	i := 0
	for i < len(s) {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}
		name, length := readRefName(s[i+1:])
		if length == 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if v, ok := point[name]; ok && name != "" {
			b.WriteString(v)
			changed = true
			i += 1 + length
			continue
		}
		if v, ok := ambient[name]; ok {
			b.WriteString(v)
			changed = true
			i += 1 + length
			continue
		}
		// Unresolved reference: leave as-is for this pass.
		b.WriteByte(s[i])
		i++
	}
	return b.String(), changed
}

func hasUnresolvedRef(s string, point Point, ambient map[string]string) bool {
	i := 0
	for i < len(s) {
		if s[i] != '$' {
			i++
			continue
		}
		name, length := readRefName(s[i+1:])
		if length == 0 {
			i++
			continue
		}
		if _, ok := point[name]; ok {
			i += 1 + length
			continue
		}
		if _, ok := ambient[name]; ok {
			i += 1 + length
			continue
		}
		return true
	}
	return false
}

// readRefName reads a ${name} or $name token (identifier: letters,
// digits, underscore) from the start of s.
func readRefName(s string) (string, int) {
	if len(s) > 0 && s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0
		}
		return s[1:end], end + 1
	}
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	if end == 0 {
		return "", 0
	}
	return s[:end], end
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
