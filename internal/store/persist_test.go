package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parambench/parambench/internal/errs"
)

func TestNewBenchmark_SaveAndLoad_RoundTrip(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatalf("NewBenchmark() error: %v", err)
	}
	if bench.ID != 1 {
		t.Fatalf("ID = %d, want 1", bench.ID)
	}

	parent, err := bench.AddWorkpackage("compile", "", nil, "")
	if err != nil {
		t.Fatalf("AddWorkpackage(parent) error: %v", err)
	}
	child, err := bench.AddWorkpackage("run", "", []*Workpackage{parent}, "")
	if err != nil {
		t.Fatalf("AddWorkpackage(child) error: %v", err)
	}

	if err := bench.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(outPath, bench.ID, false)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Name != "demo" || len(loaded.Workpackages) != 2 {
		t.Fatalf("Load() = %+v, want name=demo with 2 workpackages", loaded)
	}
	loadedChild := loaded.ByID(child.ID)
	if loadedChild == nil || len(loadedChild.ParentIDs) != 1 || loadedChild.ParentIDs[0] != parent.ID {
		t.Fatalf("loaded child parent links = %+v, want [%d]", loadedChild, parent.ID)
	}
}

func TestLoad_MissingParentSymlinkIsCorruption(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatal(err)
	}
	parent, err := bench.AddWorkpackage("compile", "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	child, err := bench.AddWorkpackage("run", "", []*Workpackage{parent}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := bench.Save(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(ParentLinkPath(child.Dir, parent.Step)); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(outPath, bench.ID, false); err == nil {
		t.Fatal("Load() error = nil, want error for missing parent symlink")
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name      string
		persisted string
		strict    bool
		wantErr   bool
	}{
		{name: "empty persisted version is ignored", persisted: "", strict: true},
		{name: "matching version", persisted: EngineVersion, strict: true},
		{name: "mismatch, non-strict warns only", persisted: "0.0.1", strict: false},
		{name: "mismatch, strict errors", persisted: "0.0.1", strict: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkVersion(tt.persisted, tt.strict)
			if tt.wantErr && err == nil {
				t.Fatal("checkVersion() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("checkVersion() unexpected error: %v", err)
			}
			if tt.wantErr {
				kind, ok := errs.KindOf(err)
				if !ok || kind != errs.VersionMismatch {
					t.Errorf("errs.KindOf(err) = (%v, %v), want (%v, true)", kind, ok, errs.VersionMismatch)
				}
			}
		})
	}
}

func TestSnapshotConfig_PreservesExtension(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(src, []byte("benchmark: {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := bench.SnapshotConfig(src); err != nil {
		t.Fatalf("SnapshotConfig() error: %v", err)
	}
	if ext := filepath.Ext(bench.ConfigPath); ext != ".yaml" {
		t.Errorf("snapshot extension = %q, want %q", ext, ".yaml")
	}
}

func TestWorkpackage_Markers(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatal(err)
	}
	wp, err := bench.AddWorkpackage("run", "", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	if wp.HasDoneMarker() {
		t.Error("HasDoneMarker() = true before MarkDone()")
	}
	if err := wp.MarkDone(); err != nil {
		t.Fatalf("MarkDone() error: %v", err)
	}
	if !wp.HasDoneMarker() {
		t.Error("HasDoneMarker() = false after MarkDone()")
	}
	if wp.State != Done {
		t.Errorf("State = %q, want %q", wp.State, Done)
	}

	if got := wp.HighestWPDoneMarker(); got != -1 {
		t.Errorf("HighestWPDoneMarker() = %d, want -1 before any marker", got)
	}
	if err := wp.MarkWPDone(0); err != nil {
		t.Fatal(err)
	}
	if err := wp.MarkWPDone(3); err != nil {
		t.Fatal(err)
	}
	if !wp.HasWPDoneMarker(3) {
		t.Error("HasWPDoneMarker(3) = false, want true")
	}
	if got := wp.HighestWPDoneMarker(); got != 3 {
		t.Errorf("HighestWPDoneMarker() = %d, want 3", got)
	}
}

func TestBenchmark_EventsAndComment(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if err := bench.AppendEvent("workpackage %d -> %s", 1, Running); err != nil {
		t.Fatalf("AppendEvent() error: %v", err)
	}
	if err := bench.AppendEvent("workpackage %d -> %s", 1, Done); err != nil {
		t.Fatal(err)
	}
	lines, err := bench.ReadEvents()
	if err != nil {
		t.Fatalf("ReadEvents() error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("ReadEvents() returned %d lines, want 2", len(lines))
	}

	if err := bench.SetComment("flaky on CI"); err != nil {
		t.Fatalf("SetComment() error: %v", err)
	}
	reloaded, err := Load(outPath, bench.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Comment != "flaky on CI" {
		t.Errorf("Comment = %q, want %q", reloaded.Comment, "flaky on CI")
	}
}

func TestResolveBenchmarkID(t *testing.T) {
	outPath := t.TempDir()
	for i := 0; i < 3; i++ {
		if _, err := NewBenchmark(outPath, "demo"); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		spec    string
		want    int
		wantErr bool
	}{
		{name: "empty means last", spec: "", want: 3},
		{name: "last keyword", spec: "last", want: 3},
		{name: "literal id", spec: "2", want: 2},
		{name: "negative counts from end", spec: "-1", want: 3},
		{name: "negative two from end", spec: "-2", want: 2},
		{name: "out of range positive", spec: "99", wantErr: true},
		{name: "out of range negative", spec: "-99", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveBenchmarkID(outPath, tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ResolveBenchmarkID() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveBenchmarkID() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveBenchmarkID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStateCounts(t *testing.T) {
	outPath := t.TempDir()
	bench, err := NewBenchmark(outPath, "demo")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := bench.AddWorkpackage("a", "", nil, "")
	b, _ := bench.AddWorkpackage("b", "", nil, "")
	a.State = Done
	b.State = Error

	counts := bench.StateCounts()
	if counts[Done] != 1 || counts[Error] != 1 {
		t.Errorf("StateCounts() = %v, want Done=1 Error=1", counts)
	}
}
