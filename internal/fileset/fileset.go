// Package fileset implements the Fileset/Substitution Engine: link/copy
// with glob expansion, a pre-substitution prepare command, and
// literal-string iofile substitution.
package fileset

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/param"
)

// Engine applies filesets and substitutesets into a workpackage sandbox.
type Engine struct {
	// ConfigDir is the directory holding the configuration file, the base
	// for "external" relative sources.
	ConfigDir string
}

// Apply runs prepare, then link/copy, then substitute, for the given
// sets against the workpackage's work directory, in that order.
func (e *Engine) Apply(ctx context.Context, workDir string, filesets []*config.Fileset, subsets []*config.Substituteset, point param.Point, active func(expr string) (bool, error)) error {
	for _, fs := range filesets {
		if fs.Prepare != "" {
			if err := e.prepare(ctx, workDir, fs.Prepare); err != nil {
				return errs.New(errs.Filesystem, fmt.Errorf("fileset %q prepare: %w", fs.Name, err))
			}
		}
		for _, link := range fs.Link {
			if err := e.linkOrCopy(workDir, link, point, active, os.Symlink); err != nil {
				return err
			}
		}
		for _, cp := range fs.Copy {
			if err := e.linkOrCopy(workDir, cp, point, active, copyFile); err != nil {
				return err
			}
		}
	}
	for _, ss := range subsets {
		for _, io := range ss.IOFiles {
			if err := e.substitute(workDir, io, point); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) prepare(ctx context.Context, workDir, shellCmd string) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", shellCmd)
	cmd.Dir = workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

type linkFunc func(oldname, newname string) error

func (e *Engine) linkOrCopy(workDir string, entry *config.FileEntry, point param.Point, active func(string) (bool, error), link linkFunc) error {
	if entry.Active != "" {
		ok, err := active(entry.Active)
		if err != nil {
			return errs.New(errs.Filesystem, err)
		}
		if !ok {
			return nil
		}
	}
	src := substituteLiteral(entry.Source, point)
	if entry.Name != "" && strings.ContainsAny(src, "*?[") {
		return errs.New(errs.Config, fmt.Errorf("fileset entry %q: name= is illegal combined with a glob source", src))
	}
	base := workDir
	if !filepath.IsAbs(src) {
		if e.ConfigDir != "" && entry.External {
			base = e.ConfigDir
		}
	}
	full := src
	if !filepath.IsAbs(src) {
		full = filepath.Join(base, src)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return errs.New(errs.Filesystem, fmt.Errorf("expanding glob %q: %w", full, err))
	}
	if len(matches) == 0 {
		return errs.New(errs.Filesystem, fmt.Errorf("no files matched %q", full))
	}
	for _, m := range matches {
		name := filepath.Base(m)
		if entry.Name != "" {
			name = substituteLiteral(entry.Name, point)
		}
		dst := filepath.Join(workDir, name)
		_ = os.Remove(dst)
		if err := link(m, dst); err != nil {
			return errs.New(errs.Filesystem, fmt.Errorf("linking %q to %q: %w", m, dst, err))
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode())
}

// substitute applies a single <iofile> directive: read `in`, apply each
// <sub> replacement in order, write to `out`.
func (e *Engine) substitute(workDir string, io *config.IOFile, point param.Point) error {
	in := substituteLiteral(io.In, point)
	out := substituteLiteral(io.Out, point)
	inPath := in
	if !filepath.IsAbs(inPath) {
		inPath = filepath.Join(workDir, in)
	}
	outPath := out
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(workDir, out)
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return errs.New(errs.Filesystem, fmt.Errorf("iofile in=%q: %w", in, err))
	}
	text := string(data)
	for _, sub := range io.Subs {
		source := substituteLiteral(sub.Source, point)
		dest := substituteLiteral(sub.Dest, point)
		text = strings.ReplaceAll(text, source, dest)
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if io.OutMode == "a" {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(outPath, flag, 0o644)
	if err != nil {
		return errs.New(errs.Filesystem, fmt.Errorf("iofile out=%q: %w", out, err))
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return errs.New(errs.Filesystem, fmt.Errorf("iofile out=%q: %w", out, err))
	}
	return nil
}

// substituteLiteral resolves $name references in iofile/fileset text
// against an already-resolved parameter point (no further evaluation or
// bounded iteration is needed here: the point is final by this stage).
func substituteLiteral(s string, point param.Point) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i+1:]
		name, length := readIdent(rest)
		if length == 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if v, ok := point[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteByte(s[i])
			b.WriteString(rest[:length])
		}
		i += 1 + length
	}
	return b.String()
}

func readIdent(s string) (string, int) {
	if len(s) > 0 && s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0
		}
		return s[1:end], end + 1
	}
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	return s[:end], end
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
