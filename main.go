package main

import (
	"fmt"
	"os"
	"unicode"

	"github.com/parambench/parambench/cmd"
	"github.com/parambench/parambench/internal/sentry"
	"github.com/parambench/parambench/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Defer order matters: RecoverAndPanic must be deferred first so it
	// executes last, after cleanup() has flushed pending events.
	defer sentry.RecoverAndPanic()
	cleanup := sentry.Init(cmd.Version)
	defer cleanup()

	if err := cmd.Execute(); err != nil {
		sentry.CaptureError(err)
		errMsg := err.Error()
		if errMsg != "" {
			runes := []rune(errMsg)
			runes[0] = unicode.ToUpper(runes[0])
			errMsg = string(runes)
		}
		fmt.Fprintln(os.Stderr, tui.ExitError(errMsg))
		return 1
	}
	return 0
}
