// Package analyzer implements the analysis pipeline: it scans a
// workpackage's output files with named regex patterns and
// reduces the captured sequences into typed, statistically summarized
// result fields.
package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

// Row is one analyzer output row: a workpackage (or, when reduced, a
// collapsed set of iteration-indexed workpackages) paired with the
// parameter and pattern-derived field values a Result renders.
// BenchmarkID is left zero by Run/Load and filled in by a caller that
// merges rows across more than one benchmark (cmd/result.go's --id all).
type Row struct {
	Step          string
	WorkpackageID int
	Iteration     int
	BenchmarkID   int
	Values        map[string]string
}

// Analyzer binds a named <analyse> definition to the sets it references.
type Analyzer struct {
	Def         *config.Analyser
	Patternsets map[string]*config.Patternset
}

// New builds an Analyzer for the named <analyse> definition.
func New(bench *config.Benchmark, name string) (*Analyzer, error) {
	var def *config.Analyser
	for _, a := range bench.Analysers {
		if a.Name == name {
			def = a
			break
		}
	}
	if def == nil {
		return nil, errs.New(errs.Config, fmt.Errorf("analyser %q not found", name))
	}
	patternsets := make(map[string]*config.Patternset, len(bench.Patternsets))
	for _, ps := range bench.Patternsets {
		patternsets[ps.Name] = ps
	}
	return &Analyzer{Def: def, Patternsets: patternsets}, nil
}

// Run scans every Done workpackage of every <analyse step="..."> entry
// and returns one row per workpackage (or, when Reduce is set, one row
// per collapsed iteration group).
func (a *Analyzer) Run(b *store.Benchmark) ([]*Row, error) {
	var rows []*Row
	for _, entry := range a.Def.Analyse {
		entryRows, err := a.runEntry(b, entry)
		if err != nil {
			return nil, err
		}
		rows = append(rows, entryRows...)
	}
	if a.Def.Reduce {
		return reduceRows(rows), nil
	}
	return rows, nil
}

func (a *Analyzer) runEntry(b *store.Benchmark, entry *config.AnalyseEntry) ([]*Row, error) {
	var rows []*Row
	for _, wp := range b.ForStep(entry.Step) {
		if wp.State != store.Done {
			continue
		}
		row, err := a.analyzeWorkpackage(wp, entry)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// analyzeWorkpackage scans every <file> glob against wp's sandbox,
// collects per-pattern capture sequences across all matched files, then
// reduces and resolves derived patterns.
func (a *Analyzer) analyzeWorkpackage(wp *store.Workpackage, entry *config.AnalyseEntry) (*Row, error) {
	point := wp.PointMap()
	captures := map[string][]string{}
	seen := map[string]*config.Pattern{}

	for _, file := range entry.Files {
		patternset := a.resolvePatternset(file.Use)
		for _, pat := range patternset.Patterns {
			seen[pat.Name] = pat
		}
		glob := param.SubstituteFinal(file.Glob, point, nil)
		full := glob
		if !filepath.IsAbs(full) {
			full = filepath.Join(store.WorkDir(wp.Dir), glob)
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, errs.ForWP(errs.Analyzer, wp.Step, wp.ID, fmt.Errorf("bad glob %q: %w", glob, err))
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: analyzer: %v\n", err)
				continue
			}
			text := string(data)
			primary, derived := splitDerived(patternset.Patterns)
			for _, pat := range primary {
				vals, err := scanPattern(pat, text)
				if err != nil {
					return nil, errs.ForWP(errs.Analyzer, wp.Step, wp.ID, err)
				}
				captures[pat.Name] = append(captures[pat.Name], vals...)
			}
			if err := resolveDerived(derived, captures); err != nil {
				return nil, errs.ForWP(errs.Analyzer, wp.Step, wp.ID, err)
			}
		}
	}

	values := map[string]string{}
	for name, val := range point {
		values[name] = val
	}
	for _, pat := range seen {
		for k, v := range Reduce(pat.Name, pat.Type, captures[pat.Name], pat.Default) {
			values[k] = v
		}
	}

	return &Row{
		Step:          entry.Step,
		WorkpackageID: wp.ID,
		Iteration:     wp.Iteration,
		Values:        values,
	}, nil
}

func (a *Analyzer) resolvePatternset(use string) *config.Patternset {
	if ps, ok := a.Patternsets[use]; ok {
		return ps
	}
	// No explicit use=: fall back to combining every known patternset,
	// matching real JUBE's tolerance of a single implicit patternset.
	combined := &config.Patternset{Name: "*"}
	for _, ps := range a.Patternsets {
		combined.Patterns = append(combined.Patterns, ps.Patterns...)
	}
	return combined
}

// splitDerived partitions patterns into those that scan file text and
// those whose value instead references another pattern's computed field.
func splitDerived(patterns []*config.Pattern) (primary, derived []*config.Pattern) {
	names := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		names[p.Name] = true
	}
	for _, p := range patterns {
		if referencesPattern(p.Value, names, p.Name) {
			derived = append(derived, p)
		} else {
			primary = append(primary, p)
		}
	}
	return primary, derived
}

func referencesPattern(value string, names map[string]bool, self string) bool {
	for name := range names {
		if name == self {
			continue
		}
		if strings.Contains(value, "$"+name) {
			return true
		}
	}
	return false
}

// scanPattern compiles pat's regex (honoring dotall) and returns the
// ordered sequence of captures: the first submatch group when present,
// otherwise the whole match.
func scanPattern(pat *config.Pattern, text string) ([]string, error) {
	expr := ExpandPatternAliases(pat.Value)
	if pat.Dotall {
		expr = "(?s)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: invalid regex %q: %w", pat.Name, pat.Value, err)
	}
	all := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(all))
	for _, m := range all {
		if len(m) > 1 {
			out = append(out, m[1])
		} else {
			out = append(out, m[0])
		}
	}
	return out, nil
}

// resolveDerived evaluates derived patterns in dependency order,
// substituting already-computed stat fields from prior (primary or
// earlier-derived) patterns into each derived pattern's value text. A
// circular derivation among derived is reported as an Analyzer error.
func resolveDerived(derived []*config.Pattern, captures map[string][]string) error {
	remaining := append([]*config.Pattern{}, derived...)
	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0:0]
		for _, pat := range remaining {
			stats := map[string]string{}
			for name, vals := range captures {
				for k, v := range Reduce(name, config.TypeString, vals, "") {
					stats[k] = v
				}
			}
			if hasUnresolved(pat.Value, stats) {
				next = append(next, pat)
				continue
			}
			resolved := param.SubstituteFinal(pat.Value, param.Point(stats), nil)
			captures[pat.Name] = []string{resolved}
			progressed = true
		}
		if !progressed {
			var names []string
			for _, p := range next {
				names = append(names, p.Name)
			}
			sort.Strings(names)
			return fmt.Errorf("circular derived pattern(s): %s", strings.Join(names, ", "))
		}
		remaining = next
	}
	return nil
}

func hasUnresolved(value string, known map[string]string) bool {
	i := 0
	for i < len(value) {
		if value[i] != '$' {
			i++
			continue
		}
		rest := value[i+1:]
		name, n := readIdent(rest)
		if n == 0 {
			i++
			continue
		}
		if _, ok := known[name]; !ok {
			return true
		}
		i += 1 + n
	}
	return false
}

func readIdent(s string) (string, int) {
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
	return s[:end], end
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
