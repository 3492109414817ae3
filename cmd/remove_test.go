package cmd

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/parambench/parambench/internal/store"
)

func TestRemoveCommandMetadata(t *testing.T) {
	if removeCmd.Use != "remove [dir]" {
		t.Errorf("removeCmd.Use = %q, want %q", removeCmd.Use, "remove [dir]")
	}
	if removeCmd.RunE == nil {
		t.Error("removeCmd.RunE should be set")
	}
	for _, name := range []string{"id", "workpackage"} {
		if removeCmd.Flags().Lookup(name) == nil {
			t.Errorf("removeCmd missing --%s flag", name)
		}
	}
}

func TestRemoveCommand_RemovesWholeBenchmark(t *testing.T) {
	resetRunFlags()
	resetRemoveFlags()
	defer func() {
		resetRunFlags()
		resetRemoveFlags()
	}()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "bench.yaml", oneStepConfig)
	outDir := filepath.Join(dir, "out")

	if err := execRoot(t, "run", cfgPath, "--outpath", outDir); err != nil {
		t.Fatalf("run command error: %v", err)
	}
	id, err := store.ResolveBenchmarkID(outDir, "last")
	if err != nil {
		t.Fatalf("ResolveBenchmarkID() error: %v", err)
	}
	benchDir := store.BenchDir(outDir, id)

	if err := execRoot(t, "remove", outDir); err != nil {
		t.Fatalf("remove command error: %v", err)
	}
	if _, err := os.Stat(benchDir); !os.IsNotExist(err) {
		t.Errorf("benchmark dir %q still exists after remove", benchDir)
	}
}

func TestRemoveCommand_CascadesToDependentWorkpackage(t *testing.T) {
	resetRunFlags()
	resetRemoveFlags()
	defer func() {
		resetRunFlags()
		resetRemoveFlags()
	}()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "bench.yaml", twoStepConfig)
	outDir := filepath.Join(dir, "out")

	if err := execRoot(t, "run", cfgPath, "--outpath", outDir); err != nil {
		t.Fatalf("run command error: %v", err)
	}
	id, err := store.ResolveBenchmarkID(outDir, "last")
	if err != nil {
		t.Fatalf("ResolveBenchmarkID() error: %v", err)
	}
	bench, err := store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}

	var prepareID int
	for _, wp := range bench.Workpackages {
		if wp.Step == "prepare" {
			prepareID = wp.ID
			break
		}
	}
	if prepareID == 0 {
		t.Fatal("could not find \"prepare\" workpackage after run")
	}

	if err := execRoot(t, "remove", outDir, "--workpackage", strconv.Itoa(prepareID)); err != nil {
		t.Fatalf("remove command error: %v", err)
	}

	bench, err = store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	if bench.ByID(prepareID) != nil {
		t.Errorf("workpackage %d still present after removal", prepareID)
	}
	for _, wp := range bench.Workpackages {
		if wp.Step == "run" {
			if len(wp.ParentIDs) != 0 {
				t.Errorf("dependent workpackage %d still lists parent after cascade: %v", wp.ID, wp.ParentIDs)
			}
			if wp.State != store.Error {
				t.Errorf("dependent workpackage %d state = %s, want Error after its parent was removed", wp.ID, wp.State)
			}
		}
	}
}
