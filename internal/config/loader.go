package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/parambench/parambench/internal/errs"
)

// Loader resolves a configuration document, including nested <include>
// fragments, and prunes nodes whose tag expression is not satisfied by
// the active tag set.
type Loader struct {
	// IncludePath is searched, in order, for <include from="..."/> targets
	// that are not found relative to the including file.
	IncludePath []string
	// Tags is the active tag set from --tag.
	Tags map[string]bool
}

// xmlRoot mirrors Document for XML deserialization, since encoding/xml
// requires a named root element that YAML documents don't have.
type xmlRoot struct {
	XMLName xml.Name `xml:"jube"`
	Document
}

// Load reads and fully resolves the document at path: front-end parse,
// include expansion, then tag-based pruning.
func (l *Loader) Load(path string) (*Document, error) {
	doc, err := l.parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := l.resolveIncludes(doc, filepath.Dir(path), 0); err != nil {
		return nil, err
	}
	l.prune(doc)
	return doc, nil
}

func (l *Loader) parseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.Config, fmt.Errorf("reading config %s: %w", path, err))
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xml":
		var root xmlRoot
		if err := xml.Unmarshal(data, &root); err != nil {
			return nil, errs.New(errs.Config, fmt.Errorf("parsing XML config %s: %w", path, err))
		}
		return &root.Document, nil
	case ".yaml", ".yml":
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errs.New(errs.Config, fmt.Errorf("parsing YAML config %s: %w", path, err))
		}
		return &doc, nil
	default:
		return nil, errs.New(errs.Config, fmt.Errorf("unrecognized config extension %q (want .xml, .yaml or .yml)", ext))
	}
}

const maxIncludeDepth = 16

// resolveIncludes merges doc's own include-path into the loader's search
// list, then splices in every benchmark pulled in by a top-level
// <include from="..." path="..."/> directive. Applied recursively, since
// an included document may itself declare further includes; nesting may
// go up to maxIncludeDepth to guard against cyclic includes.
func (l *Loader) resolveIncludes(doc *Document, baseDir string, depth int) error {
	if depth > maxIncludeDepth {
		return errs.New(errs.Config, fmt.Errorf("include nesting exceeds %d levels (cyclic include?)", maxIncludeDepth))
	}
	if len(doc.IncludePath) > 0 {
		l.IncludePath = append(append([]string{}, doc.IncludePath...), l.IncludePath...)
	}
	for _, inc := range doc.Includes {
		included, err := l.Include(inc.From, inc.Path, baseDir, depth+1)
		if err != nil {
			return err
		}
		doc.Benchmarks = append(doc.Benchmarks, included...)
	}
	doc.Includes = nil
	return nil
}

// Include inlines a single <include from="file" path="selector"/>
// fragment, searching baseDir then IncludePath in order. selector, when
// non-empty, names a benchmark by name within the included document;
// an empty selector inlines every benchmark in the included document.
func (l *Loader) Include(from, selector, baseDir string, depth int) ([]*Benchmark, error) {
	if depth > maxIncludeDepth {
		return nil, errs.New(errs.Config, fmt.Errorf("include nesting exceeds %d levels (cyclic include?)", maxIncludeDepth))
	}
	path, err := l.resolvePath(from, baseDir)
	if err != nil {
		return nil, err
	}
	doc, err := l.parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := l.resolveIncludes(doc, filepath.Dir(path), depth); err != nil {
		return nil, err
	}
	if selector == "" {
		return doc.Benchmarks, nil
	}
	for _, bm := range doc.Benchmarks {
		if bm.Name == selector {
			return []*Benchmark{bm}, nil
		}
	}
	return nil, errs.New(errs.Config, fmt.Errorf("include %s: benchmark %q not found", from, selector))
}

func (l *Loader) resolvePath(from, baseDir string) (string, error) {
	candidate := from
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, from)
	}
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	for _, dir := range l.IncludePath {
		candidate = filepath.Join(dir, from)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errs.New(errs.Config, fmt.Errorf("include target %q not found in %q or include-path %v", from, baseDir, l.IncludePath))
}

// prune drops benchmarks, parameter/pattern/file/substitute sets, steps,
// and individual parameters and patterns whose tag expression is not
// satisfied by the active tag set. Analyser and result nodes are not pruned.
func (l *Loader) prune(doc *Document) {
	doc.Benchmarks = filterTagged(doc.Benchmarks, func(b *Benchmark) string { return b.Tag }, l.Tags)
	for _, bm := range doc.Benchmarks {
		bm.Parametersets = filterTagged(bm.Parametersets, func(p *Parameterset) string { return p.Tag }, l.Tags)
		bm.Patternsets = filterTagged(bm.Patternsets, func(p *Patternset) string { return p.Tag }, l.Tags)
		bm.Filesets = filterTagged(bm.Filesets, func(f *Fileset) string { return f.Tag }, l.Tags)
		bm.Substitutesets = filterTagged(bm.Substitutesets, func(s *Substituteset) string { return s.Tag }, l.Tags)
		bm.Steps = filterTagged(bm.Steps, func(s *Step) string { return s.Tag }, l.Tags)
		for _, ps := range bm.Parametersets {
			ps.Parameters = filterTagged(ps.Parameters, func(p *Parameter) string { return p.Tag }, l.Tags)
		}
		for _, pts := range bm.Patternsets {
			pts.Patterns = filterTagged(pts.Patterns, func(p *Pattern) string { return p.Tag }, l.Tags)
		}
	}
}

func filterTagged[T any](items []T, tagOf func(T) string, active map[string]bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if EvalTag(tagOf(item), active) {
			out = append(out, item)
		}
	}
	return out
}
