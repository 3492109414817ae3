// Package errs defines the typed error kinds the engine raises, per the
// propagation rules: Config errors abort at load, Resolution/Filesystem/
// Execution/Async errors fail only the affected workpackage, Analyzer
// errors warn or fail the analyzer pass, and VersionMismatch warns unless
// --strict is set.
package errs

import "fmt"

// Kind classifies an engine error for propagation and exit-code purposes.
type Kind string

const (
	Config          Kind = "config"
	Resolution      Kind = "resolution"
	Filesystem      Kind = "filesystem"
	Execution       Kind = "execution"
	AsyncFailure    Kind = "async"
	Analyzer        Kind = "analyzer"
	VersionMismatch Kind = "version_mismatch"
)

// Error is the engine's wrapped error type. WP and Step are optional
// context identifying which workpackage or step the error concerns;
// zero values mean "not applicable" (e.g. a Config error at load time).
type Error struct {
	Kind Kind
	WP   int
	Step string
	Err  error

	// Stderr holds the last five lines of a failed command's stderr,
	// appended to the message per the Execution-kind user-visible format.
	Stderr []string
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Step != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Step)
	}
	if e.WP != 0 {
		prefix = fmt.Sprintf("%s(wp=%d)", prefix, e.WP)
	}
	msg := fmt.Sprintf("%s: %v", prefix, e.Err)
	for _, line := range e.Stderr {
		msg += "\n" + line
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and no workpackage/step context.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// ForWP wraps err as having failed a specific workpackage within a step.
func ForWP(kind Kind, step string, wp int, err error) *Error {
	return &Error{Kind: kind, Step: step, WP: wp, Err: err}
}

// WithStderr attaches the last lines of captured stderr to an Execution error.
func (e *Error) WithStderr(lines []string) *Error {
	e.Stderr = lines
	return e
}

// LastLines trims a captured stderr blob down to its last n non-empty lines.
func LastLines(s string, n int) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if line := s[start:i]; line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	if tail := s[start:]; tail != "" {
		lines = append(lines, tail)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if ee, ok := err.(*Error); ok {
			e = ee
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
