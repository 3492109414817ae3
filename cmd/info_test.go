package cmd

import (
	"path/filepath"
	"testing"
)

func TestInfoCommandMetadata(t *testing.T) {
	if infoCmd.Use != "info [dir]" {
		t.Errorf("infoCmd.Use = %q, want %q", infoCmd.Use, "info [dir]")
	}
	if infoCmd.RunE == nil {
		t.Error("infoCmd.RunE should be set")
	}
	for _, name := range []string{"id", "step", "params", "csv", "sep"} {
		if infoCmd.Flags().Lookup(name) == nil {
			t.Errorf("infoCmd missing --%s flag", name)
		}
	}
}

func TestInfoCommand_RunsAgainstExistingBenchmark(t *testing.T) {
	resetRunFlags()
	resetInfoFlags()
	defer func() {
		resetRunFlags()
		resetInfoFlags()
	}()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "bench.yaml", oneStepConfig)
	outDir := filepath.Join(dir, "out")

	if err := execRoot(t, "run", cfgPath, "--outpath", outDir); err != nil {
		t.Fatalf("run command error: %v", err)
	}
	if err := execRoot(t, "info", outDir, "--step", "run", "--params"); err != nil {
		t.Fatalf("info command error: %v", err)
	}
}

func TestInfoCommand_MissingBenchmarkErrors(t *testing.T) {
	resetRunFlags()
	resetInfoFlags()
	defer func() {
		resetRunFlags()
		resetInfoFlags()
	}()

	if err := execRoot(t, "info", t.TempDir()); err == nil {
		t.Fatal("info command error = nil, want error when no benchmark exists under dir")
	}
}
