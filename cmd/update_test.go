package cmd

import (
	"path/filepath"
	"testing"

	"github.com/parambench/parambench/internal/store"
)

func TestUpdateCommandMetadata(t *testing.T) {
	if updateCmd.Use != "update [dir]" {
		t.Errorf("updateCmd.Use = %q, want %q", updateCmd.Use, "update [dir]")
	}
	if updateCmd.RunE == nil {
		t.Error("updateCmd.RunE should be set")
	}
	if updateCmd.Flags().Lookup("id") == nil {
		t.Error("updateCmd missing --id flag")
	}
}

func TestUpdateCommand_RestampsEngineVersionAndReRendersAnalysis(t *testing.T) {
	resetRunFlags()
	resetAnalyseFlags()
	resetUpdateFlags()
	defer func() {
		resetRunFlags()
		resetAnalyseFlags()
		resetUpdateFlags()
	}()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "bench.yaml", analysedConfig)
	outDir := filepath.Join(dir, "out")

	if err := execRoot(t, "run", cfgPath, "--outpath", outDir); err != nil {
		t.Fatalf("run command error: %v", err)
	}
	if err := execRoot(t, "analyse", outDir); err != nil {
		t.Fatalf("analyse command error: %v", err)
	}

	id, err := store.ResolveBenchmarkID(outDir, "last")
	if err != nil {
		t.Fatalf("ResolveBenchmarkID() error: %v", err)
	}
	bench, err := store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	bench.EngineVer = "stale-version"
	if err := bench.Save(); err != nil {
		t.Fatalf("bench.Save() error: %v", err)
	}

	if err := execRoot(t, "update", outDir); err != nil {
		t.Fatalf("update command error: %v", err)
	}

	bench, err = store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error after update: %v", err)
	}
	if bench.EngineVer != store.EngineVersion {
		t.Errorf("bench.EngineVer = %q, want %q", bench.EngineVer, store.EngineVersion)
	}

	names, err := analyserStateNames(bench.Dir())
	if err != nil {
		t.Fatalf("analyserStateNames() error: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "main" {
			found = true
		}
	}
	if !found {
		t.Errorf("analyserStateNames() = %v, want it to include \"main\"", names)
	}
}
