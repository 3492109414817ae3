// Package result implements the result composer: it takes analyzer rows
// and renders them through one of three sinks named by a
// <result> definition — a table, a syslog stream, or a SQLite table.
package result

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/param"
)

// Render dispatches def to its configured sink (table/syslog/database).
// rows is the full analyzer output for def's Use pattern; Render filters
// and orders it per the sink's own configuration.
func Render(w io.Writer, def *config.Result, rows []*analyzer.Row) error {
	switch {
	case def.Table != nil:
		return renderTable(w, def.Table, rows)
	case def.Syslog != nil:
		return renderSyslog(def.Syslog, rows)
	case def.Database != nil:
		return renderDatabase(def.Database, rows)
	default:
		return errs.New(errs.Config, fmt.Errorf("result %q: no table/syslog/database sink configured", def.Name))
	}
}

// filterRows keeps only rows whose Values pass the filter expression
// (the per-sink filter attribute, reusing the <do active="> grammar).
func filterRows(filter string, rows []*analyzer.Row) ([]*analyzer.Row, error) {
	if filter == "" {
		return rows, nil
	}
	out := make([]*analyzer.Row, 0, len(rows))
	for _, r := range rows {
		ok, err := param.EvalActive(filter, param.Point(r.Values))
		if err != nil {
			return nil, errs.New(errs.Config, fmt.Errorf("filter %q: %w", filter, err))
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// keyColumns resolves a <result> sink's declared <key> list into ordered
// (name, title) column pairs. When keys is empty, every field name seen
// across rows is used, sorted, titled by its own name.
func keyColumns(keys []*config.ResultKey, rows []*analyzer.Row) []column {
	if len(keys) > 0 {
		cols := make([]column, len(keys))
		for i, k := range keys {
			title := k.Title
			if title == "" {
				title = k.Name
			}
			cols[i] = column{name: k.Name, title: title, format: k.Format}
		}
		return cols
	}
	seen := map[string]bool{}
	var names []string
	for _, r := range rows {
		for n := range r.Values {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	cols := make([]column, len(names))
	for i, n := range names {
		cols[i] = column{name: n, title: n}
	}
	return cols
}

type column struct {
	name   string
	title  string
	format string
}

// benchmarkIDColumn is the synthetic column name withBenchmarkIDColumn
// prepends; cellValue reads it off Row.BenchmarkID rather than Values,
// since it is never present in a row's captured field map.
const benchmarkIDColumn = "benchmark_id"

func cellValue(col column, row *analyzer.Row) string {
	if col.name == benchmarkIDColumn {
		return applyFormat(col.format, strconv.Itoa(row.BenchmarkID))
	}
	v := row.Values[col.name]
	return applyFormat(col.format, v)
}

// applyFormat honors a printf-style numeric format attribute (e.g.
// "%.2f"); non-numeric or unparsable values pass through unchanged.
func applyFormat(format, v string) string {
	if format == "" || v == "" {
		return v
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return v
	}
	return fmt.Sprintf(format, f)
}
