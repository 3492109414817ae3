package result

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/tui"
)

// renderTable writes rows through a <table> sink: csv, aligned (plain
// padded columns) or pretty (bordered, colored via internal/tui), with
// optional filter, sort, and transpose.
func renderTable(w io.Writer, t *config.TableResult, rows []*analyzer.Row) error {
	rows, err := filterRows(t.Filter, rows)
	if err != nil {
		return err
	}
	sortRows(t.Sort, rows)
	cols := keyColumns(t.Keys, rows)
	cols = withBenchmarkIDColumn(cols, rows)

	switch t.Style {
	case "csv":
		return writeCSV(w, cols, rows, t.Transpose)
	case "pretty":
		return writePretty(w, cols, rows, t.Transpose)
	default: // "aligned" and unset default to aligned
		return writeAligned(w, cols, rows, t.Transpose)
	}
}

// sortRows orders rows in place by a comma-separated list of column
// names, each optionally prefixed with "-" for descending order.
func sortRows(spec string, rows []*analyzer.Row) {
	if spec == "" {
		return
	}
	type key struct {
		name string
		desc bool
	}
	var keys []key
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			keys = append(keys, key{name: part[1:], desc: true})
		} else {
			keys = append(keys, key{name: part})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := rows[i].Values[k.name], rows[j].Values[k.name]
			if a == b {
				continue
			}
			less := compareValues(a, b)
			if k.desc {
				return !less
			}
			return less
		}
		return false
	})
}

func compareValues(a, b string) bool {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return af < bf
	}
	return a < b
}

// withBenchmarkIDColumn prepends a benchmark_id column when rows span
// more than one benchmark, so a combined --id all render shows which
// benchmark each row came from.
func withBenchmarkIDColumn(cols []column, rows []*analyzer.Row) []column {
	seen := map[int]bool{}
	for _, r := range rows {
		seen[r.BenchmarkID] = true
	}
	if len(seen) <= 1 {
		return cols
	}
	idCol := column{name: benchmarkIDColumn, title: benchmarkIDColumn}
	return append([]column{idCol}, cols...)
}

func table2D(cols []column, rows []*analyzer.Row, transpose bool) (headers []string, grid [][]string) {
	headers = make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.title
	}
	grid = make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cellValue(c, r)
		}
		grid[i] = cells
	}
	if !transpose {
		return headers, grid
	}
	tGrid := make([][]string, len(cols))
	for ci := range cols {
		row := make([]string, len(rows)+1)
		row[0] = headers[ci]
		for ri := range rows {
			row[ri+1] = grid[ri][ci]
		}
		tGrid[ci] = row
	}
	if len(tGrid) == 0 {
		return nil, nil
	}
	return tGrid[0], tGrid[1:]
}

func writeCSV(w io.Writer, cols []column, rows []*analyzer.Row, transpose bool) error {
	headers, grid := table2D(cols, rows, transpose)
	if _, err := fmt.Fprintln(w, strings.Join(csvQuote(headers), ",")); err != nil {
		return err
	}
	for _, row := range grid {
		if _, err := fmt.Fprintln(w, strings.Join(csvQuote(row), ",")); err != nil {
			return err
		}
	}
	return nil
}

func csvQuote(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if strings.ContainsAny(c, ",\"\n") {
			c = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		out[i] = c
	}
	return out
}

func writeAligned(w io.Writer, cols []column, rows []*analyzer.Row, transpose bool) error {
	headers, grid := table2D(cols, rows, transpose)
	widths := columnWidths(headers, grid)
	if err := writePaddedRow(w, headers, widths); err != nil {
		return err
	}
	for _, row := range grid {
		if err := writePaddedRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func writePretty(w io.Writer, cols []column, rows []*analyzer.Row, transpose bool) error {
	headers, grid := table2D(cols, rows, transpose)
	widths := columnWidths(headers, grid)

	top := borderLine(widths, "┌", "┬", "┐")
	mid := borderLine(widths, "├", "┼", "┤")
	bot := borderLine(widths, "└", "┴", "┘")

	if _, err := fmt.Fprintln(w, tui.BorderStyle.Render(top)); err != nil {
		return err
	}
	if err := writeBorderedRow(w, headers, widths, tui.HeaderStyle); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, tui.BorderStyle.Render(mid)); err != nil {
		return err
	}
	for _, row := range grid {
		if err := writeBorderedRow(w, row, widths, nil); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, tui.BorderStyle.Render(bot))
	return err
}

func columnWidths(headers []string, grid [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range grid {
		for i, c := range row {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}
	return widths
}

func writePaddedRow(w io.Writer, cells []string, widths []int) error {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = c + strings.Repeat(" ", widths[i]-len(c))
	}
	_, err := fmt.Fprintln(w, strings.Join(padded, "  "))
	return err
}

func writeBorderedRow(w io.Writer, cells []string, widths []int, style interface{ Render(...string) string }) error {
	var b strings.Builder
	b.WriteString("│ ")
	for i, c := range cells {
		padded := c + strings.Repeat(" ", widths[i]-len(c))
		if style != nil {
			padded = style.Render(padded)
		}
		b.WriteString(padded)
		if i < len(cells)-1 {
			b.WriteString(" │ ")
		}
	}
	b.WriteString(" │")
	_, err := fmt.Fprintln(w, b.String())
	return err
}

func borderLine(widths []int, left, mid, right string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return left + strings.Join(parts, mid) + right
}
