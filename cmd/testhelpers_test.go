package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// execRoot runs the root command tree with explicit args, the way a real
// invocation would, so PersistentPreRunE populates ectx before RunE runs.
func execRoot(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const oneStepConfig = `
benchmark:
  - name: demo
    step:
      - name: run
        do:
          - shell: "echo value: 42 > out.log"
`

const twoStepConfig = `
benchmark:
  - name: demo
    step:
      - name: prepare
        do:
          - shell: "echo ready > out.log"
      - name: run
        depend: prepare
        do:
          - shell: "echo value: 7 > out.log"
`

func resetRunFlags() {
	runOutPath = "."
	runTags = nil
	runExit = false
	runName = ""
}

func resetContinueFlags() {
	continueID = ""
	continueTags = nil
}

func resetAnalyseFlags() {
	analyseID = ""
	analyseName = ""
}

func resetResultFlags() {
	resultID = ""
	resultStyle = ""
	resultLimit = 0
	resultRefresh = false
	resultUse = ""
}

func resetInfoFlags() {
	infoID = ""
	infoStep = ""
	infoPerLine = false
	infoCSVSep = ","
	infoCSV = false
}

func resetStatusFlags()  { statusID = "" }
func resetLogFlags()     { logID = "" }
func resetUpdateFlags()  { updateID = "" }
func resetRemoveFlags()  { removeID = ""; removeWorkpackage = 0 }
func resetCommentFlags() { commentID = ""; commentDir = "" }
