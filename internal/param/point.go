// Package param implements the parameter-space expansion and
// substitution engine: merging parametersets under their duplicate
// policy, forming the Cartesian product of template parameters,
// resolving $name references by bounded fixed-point iteration, and
// dispatching scripting-mode values to pluggable evaluators.
package param

import (
	"sort"

	"github.com/parambench/parambench/internal/config"
)

// Point is a single fully-resolved parameter-space point: name -> value.
type Point map[string]string

// Clone returns a shallow copy of the point.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SortedNames returns the point's keys in sorted order, for deterministic
// iteration (Cartesian product ordering, table rendering, etc).
func (p Point) SortedNames() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// mergedParam is the result of combining same-named Parameter
// definitions across one or more referenced Parametersets, before
// Cartesian expansion.
type mergedParam struct {
	name       string
	raw        string
	typ        config.ParamType
	mode       config.Mode
	export     bool
	updateMode config.UpdateMode
	separator  string
}

func (m *mergedParam) alternatives() []string {
	sep := m.separator
	if sep == "" {
		sep = ","
	}
	if sep == "" {
		return []string{m.raw}
	}
	return splitSep(m.raw, sep)
}

func splitSep(s, sep string) []string {
	if sep == "" || len(s) == 0 {
		return []string{s}
	}
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			out = append(out, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	out = append(out, s[start:])
	return out
}
