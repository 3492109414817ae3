package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/parambench/parambench/internal/config"
)

// predefinedPatterns are the regex aliases available to every patternset
// without declaration.
var predefinedPatterns = map[string]string{
	"jube_pat_int":  `([+-]?[0-9]+)`,
	"jube_pat_nint": `([0-9]+)`,
	"jube_pat_fp":   `([+-]?[0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)`,
	"jube_pat_nfp":  `([0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)`,
	"jube_pat_wrd":  `(\w+)`,
	"jube_pat_nwrd": `([^\s]+)`,
	"jube_pat_bl":   `(true|false|1|0)`,
}

// ExpandPatternAliases substitutes $jube_pat_* references in s with their
// predefined regex fragments.
func ExpandPatternAliases(s string) string {
	for name, expr := range predefinedPatterns {
		s = strings.ReplaceAll(s, "${"+name+"}", expr)
		s = strings.ReplaceAll(s, "$"+name, expr)
	}
	return s
}

// Reduce computes the suffixed statistical variants of a captured value
// sequence: _first (also the bare name), _last, _min,
// _max, _avg, _std, _sum, _cnt. Numeric suffixes require typ to be int
// or float; when values is empty, def supplies the bare/_first/_last
// value, or the cell is left empty with no numeric suffixes at all.
func Reduce(name string, typ config.ParamType, values []string, def string) map[string]string {
	out := map[string]string{}
	if len(values) == 0 {
		if def == "" {
			return out
		}
		out[name] = def
		out[name+"_first"] = def
		out[name+"_last"] = def
		out[name+"_cnt"] = "0"
		return out
	}

	out[name] = values[0]
	out[name+"_first"] = values[0]
	out[name+"_last"] = values[len(values)-1]
	out[name+"_cnt"] = strconv.Itoa(len(values))

	if typ != config.TypeInt && typ != config.TypeFloat {
		return out
	}
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return out
		}
		nums = append(nums, f)
	}
	min, max, sum := nums[0], nums[0], 0.0
	for _, n := range nums {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
		sum += n
	}
	avg := sum / float64(len(nums))
	std := 0.0
	if len(nums) > 1 {
		var sq float64
		for _, n := range nums {
			d := n - avg
			sq += d * d
		}
		std = math.Sqrt(sq / float64(len(nums)-1))
	}
	out[name+"_min"] = formatNum(min, typ)
	out[name+"_max"] = formatNum(max, typ)
	out[name+"_sum"] = formatNum(sum, typ)
	out[name+"_avg"] = fmt.Sprintf("%g", avg)
	out[name+"_std"] = fmt.Sprintf("%g", std)
	return out
}

func formatNum(f float64, typ config.ParamType) string {
	if typ == config.TypeInt {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%g", f)
}

// reduceRows collapses iteration-indexed rows for the same (step,
// parameter-space point) into a single row carrying cross-iteration
// statistics. The grouping
// key is every value field minus the iteration-varying ones; two rows
// group together when all parameter values agree (iterations share a
// parameter-space point by construction).
func reduceRows(rows []*Row) []*Row {
	type group struct {
		key  string
		rows []*Row
	}
	order := []string{}
	groups := map[string]*group{}
	for _, r := range rows {
		key := groupKey(r)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]*Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, reduceGroup(g.rows))
	}
	return out
}

// groupKey is every parameter field joined deterministically. Pattern
// fields, which vary per iteration, are excluded: names ending in a stat
// suffix, and bare pattern names (those with a matching _cnt entry).
func groupKey(r *Row) string {
	names := make([]string, 0, len(r.Values))
	for n := range r.Values {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "%s/", r.Step)
	for _, n := range names {
		if strings.Contains(n, "_") && hasStatSuffix(n) {
			continue
		}
		if _, ok := r.Values[n+"_cnt"]; ok {
			continue
		}
		fmt.Fprintf(&b, "%s=%s;", n, r.Values[n])
	}
	return b.String()
}

var statSuffixes = []string{"_first", "_last", "_min", "_max", "_avg", "_std", "_sum", "_cnt"}

func hasStatSuffix(name string) bool {
	for _, suf := range statSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// reduceGroup merges rows sharing a parameter-space point into one row,
// computing cross-iteration statistics for every bare (pre-reduction)
// field name that appeared with a _cnt suffix (i.e. every pattern field).
func reduceGroup(rows []*Row) *Row {
	base := rows[0]
	merged := map[string]string{}
	for k, v := range base.Values {
		merged[k] = v
	}
	patternNames := map[string]bool{}
	for k := range base.Values {
		if strings.HasSuffix(k, "_cnt") {
			patternNames[strings.TrimSuffix(k, "_cnt")] = true
		}
	}
	for name := range patternNames {
		var samples []string
		for _, r := range rows {
			if v, ok := r.Values[name+"_first"]; ok {
				samples = append(samples, v)
			}
		}
		typ := config.TypeString
		if _, err := strconv.ParseFloat(firstOrEmpty(samples), 64); err == nil {
			typ = config.TypeFloat
		}
		for k, v := range Reduce(name, typ, samples, "") {
			merged[k] = v
		}
	}
	return &Row{
		Step:          base.Step,
		WorkpackageID: base.WorkpackageID,
		Iteration:     -1,
		Values:        merged,
	}
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
