// Package cmd implements the command-line driver: the cobra subcommand
// surface over the config loader, scheduler, analyzer, and result
// composer.
package cmd

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/parambench/parambench/internal/engctx"
	"github.com/parambench/parambench/internal/signal"
)

// Version is the engine's own release identifier, overridable at link
// time (-ldflags "-X github.com/parambench/parambench/cmd.Version=...").
var Version = "dev"

// ectx holds the process-scoped configuration built once in
// PersistentPreRunE and consumed by every subcommand.
var ectx *engctx.Context

// Global persistent flags shared across subcommands.
var (
	includePathFlag []string
	strictFlag      bool
)

var rootCmd = &cobra.Command{
	Use:     "parambench",
	Short:   "Run and analyze parameter-space benchmarks",
	Version: Version,
	Long: `parambench expands a benchmark's parameter space into a graph of
workpackages, schedules their shell commands to completion (including
restart after interruption), and composes their output into tables,
syslog records, or a SQLite database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		base := engctx.FromEnvironment()
		if len(includePathFlag) > 0 {
			base = base.WithCLIIncludePath(includePathFlag...)
		}
		base.Strict = strictFlag
		ectx = base
		return nil
	},
}

// Execute runs the root command, deriving a context that cancels on
// SIGINT/SIGTERM.
func Execute() error {
	ctx := signal.SetupSignalHandler(context.Background())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(continueCmd)
	rootCmd.AddCommand(analyseCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(updateCmd)

	rootCmd.PersistentFlags().StringArrayVar(&includePathFlag, "include-path", nil, "directory to search for <include> targets (repeatable, highest precedence)")
	rootCmd.PersistentFlags().BoolVar(&strictFlag, "strict", false, "escalate an engine version mismatch to a fatal error")
}

// colorize reports whether w is an interactive terminal worth coloring,
// honoring the pretty-table/tui styling decision the same way across
// every subcommand.
func colorize(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}
