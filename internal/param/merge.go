package param

import (
	"fmt"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
)

// mergeSets combines the parameters of the given sets, applying the
// later definition's own duplicate policy (a parameterset carries no
// set-level policy, so only the parameter-level one is consulted) and
// the compatibility rule: without a duplicate directive, a name appearing
// twice must carry an identical raw definition.
func mergeSets(sets []*config.Parameterset) (map[string]*mergedParam, error) {
	merged := make(map[string]*mergedParam)
	for _, set := range sets {
		for _, p := range set.Parameters {
			existing, ok := merged[p.Name]
			if !ok {
				merged[p.Name] = &mergedParam{
					name:       p.Name,
					raw:        p.Value,
					typ:        effectiveType(p.Type),
					mode:       effectiveMode(p.Mode),
					export:     p.Export,
					updateMode: effectiveUpdateMode(p.UpdateMode),
					separator:  p.EffectiveSeparator(),
				}
				continue
			}
			dup := p.Duplicate
			if dup == config.DupNone {
				if existing.raw != p.Value {
					return nil, errs.New(errs.Config, fmt.Errorf(
						"parameter %q redefined with a different value and no duplicate policy", p.Name))
				}
				// identical redefinition: later wins for mode/export/update_mode.
				existing.typ = effectiveType(p.Type)
				existing.mode = effectiveMode(p.Mode)
				existing.export = p.Export
				existing.updateMode = effectiveUpdateMode(p.UpdateMode)
				continue
			}
			switch dup {
			case config.DupReplace:
				existing.raw = p.Value
				existing.typ = effectiveType(p.Type)
				existing.mode = effectiveMode(p.Mode)
				existing.export = p.Export
				existing.updateMode = effectiveUpdateMode(p.UpdateMode)
				existing.separator = p.EffectiveSeparator()
			case config.DupConcat:
				// Concatenate textual values, then re-evaluate under the
				// winning (later) mode.
				existing.raw = existing.raw + p.EffectiveSeparator() + p.Value
				existing.separator = p.EffectiveSeparator()
				existing.mode = effectiveMode(p.Mode)
				existing.typ = effectiveType(p.Type)
				existing.export = p.Export
				existing.updateMode = effectiveUpdateMode(p.UpdateMode)
			case config.DupError:
				return nil, errs.New(errs.Config, fmt.Errorf(
					"parameter %q redefined and duplicate=error", p.Name))
			}
		}
	}
	return merged, nil
}

// ExportedNames returns the set of parameter names across sets that
// carry export="true" on their winning (last merged) definition.
func ExportedNames(sets []*config.Parameterset) map[string]bool {
	merged, err := mergeSets(sets)
	if err != nil {
		return map[string]bool{}
	}
	out := map[string]bool{}
	for name, mp := range merged {
		if mp.export {
			out[name] = true
		}
	}
	return out
}

// Names returns every parameter name declared across sets.
func Names(sets []*config.Parameterset) map[string]bool {
	merged, _ := mergeSets(sets)
	out := make(map[string]bool, len(merged))
	for name := range merged {
		out[name] = true
	}
	return out
}

func effectiveType(t config.ParamType) config.ParamType {
	if t == "" {
		return config.TypeString
	}
	return t
}

func effectiveMode(m config.Mode) config.Mode {
	if m == "" {
		return config.ModeText
	}
	return m
}

func effectiveUpdateMode(u config.UpdateMode) config.UpdateMode {
	if u == "" {
		return config.UpdateNever
	}
	return u
}
