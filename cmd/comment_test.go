package cmd

import (
	"path/filepath"
	"testing"

	"github.com/parambench/parambench/internal/store"
)

func TestCommentCommandMetadata(t *testing.T) {
	if commentCmd.Use != "comment <text...>" {
		t.Errorf("commentCmd.Use = %q, want %q", commentCmd.Use, "comment <text...>")
	}
	if commentCmd.RunE == nil {
		t.Error("commentCmd.RunE should be set")
	}
	for _, name := range []string{"dir", "id"} {
		if commentCmd.Flags().Lookup(name) == nil {
			t.Errorf("commentCmd missing --%s flag", name)
		}
	}
}

func TestCommentCommand_SetsBenchmarkComment(t *testing.T) {
	resetRunFlags()
	resetCommentFlags()
	defer func() {
		resetRunFlags()
		resetCommentFlags()
	}()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "bench.yaml", oneStepConfig)
	outDir := filepath.Join(dir, "out")

	if err := execRoot(t, "run", cfgPath, "--outpath", outDir); err != nil {
		t.Fatalf("run command error: %v", err)
	}
	if err := execRoot(t, "comment", "regression", "suspected", "--dir", outDir); err != nil {
		t.Fatalf("comment command error: %v", err)
	}

	id, err := store.ResolveBenchmarkID(outDir, "last")
	if err != nil {
		t.Fatalf("ResolveBenchmarkID() error: %v", err)
	}
	bench, err := store.Load(outDir, id, true)
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	if bench.Comment != "regression suspected" {
		t.Errorf("bench.Comment = %q, want %q", bench.Comment, "regression suspected")
	}
}
