package cmd

import (
	"path/filepath"
	"testing"

	"github.com/parambench/parambench/internal/store"
)

func TestLogCommandMetadata(t *testing.T) {
	if logCmd.Use != "log [dir]" {
		t.Errorf("logCmd.Use = %q, want %q", logCmd.Use, "log [dir]")
	}
	if logCmd.RunE == nil {
		t.Error("logCmd.RunE should be set")
	}
	if logCmd.Flags().Lookup("id") == nil {
		t.Error("logCmd missing --id flag")
	}
}

func TestLogCommand_PrintsRecordedEvents(t *testing.T) {
	resetRunFlags()
	resetLogFlags()
	defer func() {
		resetRunFlags()
		resetLogFlags()
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
	bench, err := store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	lines, err := bench.ReadEvents()
	if err != nil {
		t.Fatalf("ReadEvents() error: %v", err)
	}
	if len(lines) == 0 {
		t.Fatal("ReadEvents() returned no lines after a run, want at least one scheduling event")
	}

	if err := execRoot(t, "log", outDir); err != nil {
		t.Fatalf("log command error: %v", err)
	}
}
