package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	src := `
benchmark:
  - name: demo
    parameterset:
      - name: sizes
        parameter:
          - name: size
            value: "1,2"
    step:
      - name: run
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{}
	doc, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Benchmarks) != 1 || doc.Benchmarks[0].Name != "demo" {
		t.Fatalf("Load() = %+v, want one benchmark named demo", doc.Benchmarks)
	}
	if len(doc.Benchmarks[0].Parametersets) != 1 || doc.Benchmarks[0].Parametersets[0].Parameters[0].Value != "1,2" {
		t.Fatalf("parameterset not parsed correctly: %+v", doc.Benchmarks[0].Parametersets)
	}
}

func TestLoader_Load_XML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.xml")
	src := `<jube>
  <benchmark name="demo">
    <parameterset name="sizes">
      <parameter name="size">1,2</parameter>
    </parameterset>
  </benchmark>
</jube>`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{}
	doc, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Benchmarks) != 1 || doc.Benchmarks[0].Name != "demo" {
		t.Fatalf("Load() = %+v, want one benchmark named demo", doc.Benchmarks)
	}
	if got := doc.Benchmarks[0].Parametersets[0].Parameters[0].Value; got != "1,2" {
		t.Errorf("parameter value = %q, want %q", got, "1,2")
	}
}

func TestLoader_Load_UnrecognizedExtensionErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.txt")
	if err := os.WriteFile(path, []byte("anything"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{}
	if _, err := l.Load(path); err == nil {
		t.Fatal("Load() error = nil, want error for unrecognized extension")
	}
}

func TestLoader_Load_PrunesUntaggedNodesByActiveTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	src := `
benchmark:
  - name: demo
    step:
      - name: cpu-only
        tag: "!gpu"
      - name: gpu-only
        tag: "gpu"
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{Tags: map[string]bool{"gpu": true}}
	doc, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Benchmarks[0].Steps) != 1 || doc.Benchmarks[0].Steps[0].Name != "gpu-only" {
		t.Fatalf("Load() steps = %+v, want only gpu-only to survive pruning", doc.Benchmarks[0].Steps)
	}
}

func TestLoader_Include_SelectsNamedBenchmark(t *testing.T) {
	dir := t.TempDir()
	fragPath := filepath.Join(dir, "frag.yaml")
	src := `
benchmark:
  - name: a
  - name: b
`
	if err := os.WriteFile(fragPath, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{}
	got, err := l.Include("frag.yaml", "b", dir, 0)
	if err != nil {
		t.Fatalf("Include() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("Include() = %+v, want only benchmark b", got)
	}
}

func TestLoader_Include_SearchesIncludePath(t *testing.T) {
	searchDir := t.TempDir()
	fragPath := filepath.Join(searchDir, "frag.yaml")
	if err := os.WriteFile(fragPath, []byte("benchmark:\n  - name: only\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &Loader{IncludePath: []string{searchDir}}
	got, err := l.Include("frag.yaml", "", t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Include() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "only" {
		t.Fatalf("Include() = %+v, want the one benchmark from the include-path match", got)
	}
}

func TestLoader_Include_NotFoundErrors(t *testing.T) {
	l := &Loader{}
	if _, err := l.Include("missing.yaml", "", t.TempDir(), 0); err == nil {
		t.Fatal("Include() error = nil, want error for a target found nowhere")
	}
}

func TestLoader_Load_ExpandsTopLevelIncludeDirective(t *testing.T) {
	dir := t.TempDir()
	fragPath := filepath.Join(dir, "shared.yaml")
	fragSrc := `
benchmark:
  - name: shared-a
  - name: shared-b
`
	if err := os.WriteFile(fragPath, []byte(fragSrc), 0o644); err != nil {
		t.Fatal(err)
	}

	mainPath := filepath.Join(dir, "bench.yaml")
	mainSrc := `
include:
  - from: shared.yaml
    path: shared-b
benchmark:
  - name: local
`
	if err := os.WriteFile(mainPath, []byte(mainSrc), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &Loader{}
	doc, err := l.Load(mainPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	names := map[string]bool{}
	for _, bm := range doc.Benchmarks {
		names[bm.Name] = true
	}
	if !names["local"] || !names["shared-b"] || names["shared-a"] {
		t.Fatalf("Load() benchmarks = %v, want local and shared-b only", names)
	}
}
