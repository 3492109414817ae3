package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/engctx"
	"github.com/parambench/parambench/internal/fileset"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

func newTestScheduler(t *testing.T, def *config.Benchmark) (*Scheduler, *store.Benchmark) {
	t.Helper()
	outPath := t.TempDir()
	bench, err := store.NewBenchmark(outPath, def.Name)
	if err != nil {
		t.Fatal(err)
	}
	ectx := &engctx.Context{ExecShell: "/bin/sh"}
	expander := param.NewExpander(param.DefaultEvaluators(ectx, nil))
	files := &fileset.Engine{}
	s := New(bench, def, ectx, expander, files, outPath)
	return s, bench
}

func TestScheduler_BuildGraph_DependencyCrossProduct(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Parametersets: []*config.Parameterset{
			{Name: "sizes", Parameters: []*config.Parameter{{Name: "size", Value: "1,2"}}},
		},
		Steps: []*config.Step{
			{Name: "compile", Use: []string{"sizes"}},
			{Name: "run", Use: []string{"sizes"}, Depend: "compile"},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatalf("BuildGraph() error: %v", err)
	}
	if got := len(bench.ForStep("compile")); got != 2 {
		t.Errorf("compile workpackages = %d, want 2", got)
	}
	if got := len(bench.ForStep("run")); got != 2 {
		t.Errorf("run workpackages = %d, want 2", got)
	}
	for _, run := range bench.ForStep("run") {
		if len(run.ParentIDs) != 1 {
			t.Fatalf("run workpackage %d has %d parents, want 1", run.ID, len(run.ParentIDs))
		}
		parent := bench.ByID(run.ParentIDs[0])
		if parent.PointMap()["size"] != run.PointMap()["size"] {
			t.Errorf("run/compile size mismatch: %q vs %q", run.PointMap()["size"], parent.PointMap()["size"])
		}
	}
}

func TestScheduler_Execute_RunsShellDo(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Steps: []*config.Step{
			{Name: "touch", Dos: []*config.Do{{Shell: "touch marker.txt"}}},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	wps := bench.ForStep("touch")
	if len(wps) != 1 {
		t.Fatalf("touch workpackages = %d, want 1", len(wps))
	}
	wp := wps[0]
	if wp.State != store.Done {
		t.Fatalf("State = %q, want %q (error=%s)", wp.State, store.Done, wp.ErrorMsg)
	}
	if !wp.HasDoneMarker() {
		t.Error("HasDoneMarker() = false after successful run")
	}
	if _, err := os.Stat(filepath.Join(store.WorkDir(wp.Dir), "marker.txt")); err != nil {
		t.Errorf("expected marker.txt in work dir: %v", err)
	}
}

func TestScheduler_Execute_FailingDoMarksError(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Steps: []*config.Step{
			{Name: "boom", Dos: []*config.Do{{Shell: "echo failure 1>&2; exit 1"}}},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	wp := bench.ForStep("boom")[0]
	if wp.State != store.Error {
		t.Fatalf("State = %q, want %q", wp.State, store.Error)
	}
	if wp.ErrorMsg == "" {
		t.Error("ErrorMsg is empty, want failure detail")
	}
}

func TestScheduler_Execute_AsyncSentinel(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Steps: []*config.Step{
			{Name: "submit", Dos: []*config.Do{{Shell: "true", DoneFile: "job.done"}}},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	wp := bench.ForStep("submit")[0]
	if wp.State != store.AwaitingSentinel {
		t.Fatalf("State = %q, want %q", wp.State, store.AwaitingSentinel)
	}

	if err := os.WriteFile(filepath.Join(store.WorkDir(wp.Dir), "job.done"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if wp.State != store.Done {
		t.Fatalf("State after sentinel = %q, want %q", wp.State, store.Done)
	}
}

func TestScheduler_Execute_RestartReconciliationRespectsUnsentineledAsyncDo(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Steps: []*config.Step{
			{Name: "submit", Dos: []*config.Do{{Shell: "true", DoneFile: "job.done"}}},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatal(err)
	}
	wp := bench.ForStep("submit")[0]
	// Simulate a crash between the do's wp_done_00 marker and the pass's
	// end-of-loop Bench.Save that would have persisted AwaitingSentinel:
	// the marker is on disk, but the workpackage is still Running and the
	// done_file sentinel has not appeared yet.
	if err := wp.MarkWPDone(0); err != nil {
		t.Fatal(err)
	}
	wp.State = store.Running
	if err := bench.Save(); err != nil {
		t.Fatal(err)
	}

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if wp.State != store.AwaitingSentinel {
		t.Fatalf("State after restart = %q, want %q (sentinel never appeared)", wp.State, store.AwaitingSentinel)
	}

	if err := os.WriteFile(filepath.Join(store.WorkDir(wp.Dir), "job.done"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if wp.State != store.Done {
		t.Fatalf("State after sentinel appears = %q, want %q", wp.State, store.Done)
	}
}

func TestScheduler_Execute_RestartReconciliation(t *testing.T) {
	def := &config.Benchmark{
		Name: "demo",
		Steps: []*config.Step{
			{Name: "touch", Dos: []*config.Do{{Shell: "touch a.txt"}, {Shell: "touch b.txt"}}},
		},
	}
	s, bench := newTestScheduler(t, def)
	if err := s.BuildGraph(context.Background()); err != nil {
		t.Fatal(err)
	}
	wp := bench.ForStep("touch")[0]
	// Simulate a crash after the first <do> completed.
	if err := wp.MarkWPDone(0); err != nil {
		t.Fatal(err)
	}
	wp.State = store.Running
	if err := bench.Save(); err != nil {
		t.Fatal(err)
	}

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if wp.State != store.Done {
		t.Fatalf("State = %q, want %q", wp.State, store.Done)
	}
	if _, err := os.Stat(filepath.Join(store.WorkDir(wp.Dir), "b.txt")); err != nil {
		t.Errorf("expected resumption to run the second <do>: %v", err)
	}
}
