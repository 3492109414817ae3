package analyzer

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parambench/parambench/internal/errs"
)

// rowsDoc is the XML-friendly encoding of a []*Row: encoding/xml needs a
// named root and can't marshal a bare map, so Values round-trips through
// an ordered entry list the same way store.paramPoint does.
type rowsDoc struct {
	XMLName xml.Name   `xml:"analysis"`
	Rows    []xmlRow   `xml:"row"`
}

type xmlRow struct {
	Step          string     `xml:"step,attr"`
	WorkpackageID int        `xml:"workpackage,attr"`
	Iteration     int        `xml:"iteration,attr"`
	Values        []xmlEntry `xml:"value"`
}

type xmlEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// StatePath names the on-disk snapshot of one analyser's last Run,
// stored alongside the graph/config snapshot so `result` is a pure
// function of this file plus the configuration.
func StatePath(benchDir, analyserName string) string {
	return filepath.Join(benchDir, "analysis_"+analyserName+".xml")
}

// Save persists rows to benchDir under analyserName's state file.
func Save(benchDir, analyserName string, rows []*Row) error {
	doc := rowsDoc{Rows: make([]xmlRow, len(rows))}
	for i, r := range rows {
		doc.Rows[i] = toXMLRow(r)
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errs.New(errs.Analyzer, err)
	}
	if err := os.WriteFile(StatePath(benchDir, analyserName), data, 0o644); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	return nil
}

// Load reads back a previously Saved analysis state.
func Load(benchDir, analyserName string) ([]*Row, error) {
	data, err := os.ReadFile(StatePath(benchDir, analyserName))
	if err != nil {
		return nil, errs.New(errs.Filesystem, fmt.Errorf("no analysis state for %q: %w", analyserName, err))
	}
	var doc rowsDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errs.New(errs.Analyzer, err)
	}
	rows := make([]*Row, len(doc.Rows))
	for i, xr := range doc.Rows {
		rows[i] = fromXMLRow(xr)
	}
	return rows, nil
}

func toXMLRow(r *Row) xmlRow {
	xr := xmlRow{Step: r.Step, WorkpackageID: r.WorkpackageID, Iteration: r.Iteration}
	names := make([]string, 0, len(r.Values))
	for n := range r.Values {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		xr.Values = append(xr.Values, xmlEntry{Name: n, Value: r.Values[n]})
	}
	return xr
}

func fromXMLRow(xr xmlRow) *Row {
	values := make(map[string]string, len(xr.Values))
	for _, e := range xr.Values {
		values[e.Name] = e.Value
	}
	return &Row{Step: xr.Step, WorkpackageID: xr.WorkpackageID, Iteration: xr.Iteration, Values: values}
}
