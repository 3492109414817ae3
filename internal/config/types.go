// Package config implements the canonical in-memory tree that the XML
// and YAML front-ends both deserialize into, plus the handful of
// mechanics that touch it directly: include resolution and
// tag-expression filtering. The rest of the engine operates entirely on
// this tree.
package config

import (
	"fmt"

	"github.com/parambench/parambench/internal/errs"
)

// Document is the top-level canonical tree produced by either front-end.
type Document struct {
	IncludePath []string            `xml:"include-path" yaml:"include-path"`
	Selection   string              `xml:"selection" yaml:"selection"`
	Includes    []*IncludeDirective `xml:"include" yaml:"include"`
	Benchmarks  []*Benchmark        `xml:"benchmark" yaml:"benchmark"`
}

// IncludeDirective names an external file to splice benchmarks in from,
// optionally restricted to one benchmark by name.
type IncludeDirective struct {
	From string `xml:"from,attr" yaml:"from"`
	Path string `xml:"path,attr" yaml:"path"`
}

// Benchmark is a container of steps and their supporting sets.
type Benchmark struct {
	Name    string `xml:"name,attr" yaml:"name"`
	Tag     string `xml:"tag,attr" yaml:"tag"`
	Comment string `xml:"comment" yaml:"comment"`

	Parametersets  []*Parameterset  `xml:"parameterset" yaml:"parameterset"`
	Patternsets    []*Patternset    `xml:"patternset" yaml:"patternset"`
	Filesets       []*Fileset       `xml:"fileset" yaml:"fileset"`
	Substitutesets []*Substituteset `xml:"substituteset" yaml:"substituteset"`
	Steps          []*Step          `xml:"step" yaml:"step"`
	Analysers      []*Analyser      `xml:"analyser" yaml:"analyser"`
	Results        []*Result       `xml:"result" yaml:"result"`
}

// DuplicateMode controls merge behavior when two definitions share a name.
type DuplicateMode string

const (
	DupNone    DuplicateMode = ""
	DupReplace DuplicateMode = "replace"
	DupConcat  DuplicateMode = "concat"
	DupError   DuplicateMode = "error"
)

// UpdateMode controls re-evaluation cadence for a parameter.
type UpdateMode string

const (
	UpdateNever  UpdateMode = "never"
	UpdateUse    UpdateMode = "use"
	UpdateStep   UpdateMode = "step"
	UpdateCycle  UpdateMode = "cycle"
	UpdateAlways UpdateMode = "always"
)

// ParamType is a parameter or pattern's declared type.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
)

// Mode selects how a parameter/pattern's raw value is evaluated.
type Mode string

const (
	ModeText   Mode = "text"
	ModeShell  Mode = "shell"
	ModePython Mode = "python"
	ModePerl   Mode = "perl"
	ModeEnv    Mode = "env"
	ModeTag    Mode = "tag"
)

// Parameterset is a named container of parameters.
type Parameterset struct {
	Name       string       `xml:"name,attr" yaml:"name"`
	InitWith   string       `xml:"init_with,attr" yaml:"init_with"`
	Tag        string       `xml:"tag,attr" yaml:"tag"`
	Parameters []*Parameter `xml:"parameter" yaml:"parameter"`
}

// Parameter is a named, typed value with an evaluation mode.
type Parameter struct {
	Name       string        `xml:"name,attr" yaml:"name"`
	Type       ParamType     `xml:"type,attr" yaml:"type"`
	Mode       Mode          `xml:"mode,attr" yaml:"mode"`
	Separator  string        `xml:"separator,attr" yaml:"separator"`
	Export     bool          `xml:"export,attr" yaml:"export"`
	UpdateMode UpdateMode    `xml:"update_mode,attr" yaml:"update_mode"`
	Duplicate  DuplicateMode `xml:"duplicate,attr" yaml:"duplicate"`
	Tag        string        `xml:"tag,attr" yaml:"tag"`
	Value      string        `xml:",chardata" yaml:"value"`
}

// EffectiveSeparator returns the configured separator or the default ",".
func (p *Parameter) EffectiveSeparator() string {
	if p.Separator != "" {
		return p.Separator
	}
	return ","
}

// Patternset is a named container of patterns.
type Patternset struct {
	Name     string     `xml:"name,attr" yaml:"name"`
	InitWith string     `xml:"init_with,attr" yaml:"init_with"`
	Tag      string     `xml:"tag,attr" yaml:"tag"`
	Patterns []*Pattern `xml:"pattern" yaml:"pattern"`
}

// Pattern is a named regex with an optional default and type.
type Pattern struct {
	Name    string    `xml:"name,attr" yaml:"name"`
	Type    ParamType `xml:"type,attr" yaml:"type"`
	Mode    Mode      `xml:"mode,attr" yaml:"mode"`
	Default string    `xml:"default,attr" yaml:"default"`
	Dotall  bool      `xml:"dotall,attr" yaml:"dotall"`
	Tag     string    `xml:"tag,attr" yaml:"tag"`
	Value   string    `xml:",chardata" yaml:"value"`
}

// Fileset is a named container of link/copy/prepare directives.
type Fileset struct {
	Name     string       `xml:"name,attr" yaml:"name"`
	InitWith string       `xml:"init_with,attr" yaml:"init_with"`
	Tag      string       `xml:"tag,attr" yaml:"tag"`
	Prepare  string       `xml:"prepare" yaml:"prepare"`
	Link     []*FileEntry `xml:"link" yaml:"link"`
	Copy     []*FileEntry `xml:"copy" yaml:"copy"`
}

// FileEntry is one link/copy source, possibly glob-bearing.
type FileEntry struct {
	Source   string `xml:",chardata" yaml:"source"`
	Name     string `xml:"name,attr" yaml:"name"`
	Active   string `xml:"active,attr" yaml:"active"`
	External bool   `xml:"external,attr" yaml:"external"`
}

// Substituteset is a named container of iofile/sub directives.
type Substituteset struct {
	Name     string    `xml:"name,attr" yaml:"name"`
	InitWith string    `xml:"init_with,attr" yaml:"init_with"`
	Tag      string    `xml:"tag,attr" yaml:"tag"`
	IOFiles  []*IOFile `xml:"iofile" yaml:"iofile"`
}

// IOFile pairs an input/output file with its ordered substitutions.
type IOFile struct {
	In      string `xml:"in,attr" yaml:"in"`
	Out     string `xml:"out,attr" yaml:"out"`
	OutMode string `xml:"out_mode,attr" yaml:"out_mode"`
	Subs    []*Sub `xml:"sub" yaml:"sub"`
}

// Sub is a single literal-string replacement within an iofile.
type Sub struct {
	Source string `xml:"source,attr" yaml:"source"`
	Dest   string `xml:"dest,attr" yaml:"dest"`
}

// Step is a sequence of shell operations plus referenced sets.
type Step struct {
	Name       string   `xml:"name,attr" yaml:"name"`
	Depend     string   `xml:"depend,attr" yaml:"depend"`
	WorkDir    string   `xml:"work_dir,attr" yaml:"work_dir"`
	Suffix     string   `xml:"suffix,attr" yaml:"suffix"`
	Shared     bool     `xml:"shared,attr" yaml:"shared"`
	Active     string   `xml:"active,attr" yaml:"active"`
	Export     bool     `xml:"export,attr" yaml:"export"`
	MaxAsync   int      `xml:"max_async,attr" yaml:"max_async"`
	Iterations int      `xml:"iterations,attr" yaml:"iterations"`
	Cycles     int      `xml:"cycles,attr" yaml:"cycles"`
	Procs      int      `xml:"procs,attr" yaml:"procs"`
	DoLogFile  string   `xml:"do_log_file,attr" yaml:"do_log_file"`
	Tag        string   `xml:"tag,attr" yaml:"tag"`
	Use        []string `xml:"use" yaml:"use"`
	Dos        []*Do    `xml:"do" yaml:"do"`
}

// DependList parses the comma-separated depend attribute.
func (s *Step) DependList() []string {
	return splitNonEmpty(s.Depend, ",")
}

// EffectiveIterations returns iterations, defaulting to 1.
func (s *Step) EffectiveIterations() int {
	if s.Iterations <= 0 {
		return 1
	}
	return s.Iterations
}

// EffectiveCycles returns cycles, defaulting to 1.
func (s *Step) EffectiveCycles() int {
	if s.Cycles <= 0 {
		return 1
	}
	return s.Cycles
}

// Do is a single shell operation within a step.
type Do struct {
	Shell     string `xml:",chardata" yaml:"shell"`
	Active    string `xml:"active,attr" yaml:"active"`
	Shared    bool   `xml:"shared,attr" yaml:"shared"`
	WorkDir   string `xml:"work_dir,attr" yaml:"work_dir"`
	DoneFile  string `xml:"done_file,attr" yaml:"done_file"`
	ErrorFile string `xml:"error_file,attr" yaml:"error_file"`
	BreakFile string `xml:"break_file,attr" yaml:"break_file"`
}

// Analyser binds patternsets to step output files.
type Analyser struct {
	Name    string          `xml:"name,attr" yaml:"name"`
	Reduce  bool            `xml:"reduce,attr" yaml:"reduce"`
	Analyse []*AnalyseEntry `xml:"analyse" yaml:"analyse"`
}

// AnalyseEntry targets a single step's output files.
type AnalyseEntry struct {
	Step  string         `xml:"step,attr" yaml:"step"`
	Files []*AnalyseFile `xml:"file" yaml:"file"`
}

// AnalyseFile is one glob under a <analyse step="...">.
type AnalyseFile struct {
	Use  string `xml:"use,attr" yaml:"use"`
	Glob string `xml:",chardata" yaml:"glob"`
}

// Result is a named rendering of analyzer output: table, syslog, or database.
type Result struct {
	Name     string          `xml:"name,attr" yaml:"name"`
	Use      string          `xml:"use,attr" yaml:"use"`
	Table    *TableResult    `xml:"table" yaml:"table"`
	Syslog   *SyslogResult   `xml:"syslog" yaml:"syslog"`
	Database *DatabaseResult `xml:"database" yaml:"database"`
}

// ResultKey names a column/field pulled from analyzer rows.
type ResultKey struct {
	Name   string `xml:"name,attr" yaml:"name"`
	Title  string `xml:"title,attr" yaml:"title"`
	Format string `xml:"format,attr" yaml:"format"`
}

// TableResult renders rows as a CSV/pretty/aligned table.
type TableResult struct {
	Style     string       `xml:"style,attr" yaml:"style"`
	Sort      string       `xml:"sort,attr" yaml:"sort"`
	Transpose bool         `xml:"transpose,attr" yaml:"transpose"`
	Filter    string       `xml:"filter,attr" yaml:"filter"`
	Keys      []*ResultKey `xml:"key" yaml:"key"`
}

// SyslogResult emits one record per row to a syslog destination.
type SyslogResult struct {
	Host   string       `xml:"host,attr" yaml:"host"`
	Port   int          `xml:"port,attr" yaml:"port"`
	Socket string       `xml:"socket,attr" yaml:"socket"`
	Format string        `xml:"format,attr" yaml:"format"`
	Keys   []*ResultKey `xml:"key" yaml:"key"`
	Filter string       `xml:"filter,attr" yaml:"filter"`
}

// DatabaseResult upserts rows into a SQLite table.
type DatabaseResult struct {
	File       string       `xml:"file,attr" yaml:"file"`
	TableName  string       `xml:"name,attr" yaml:"name"`
	PrimeKeys  string       `xml:"primekeys,attr" yaml:"primekeys"`
	Filter     string       `xml:"filter,attr" yaml:"filter"`
	Keys       []*ResultKey `xml:"key" yaml:"key"`
}

// PrimeKeyList parses the comma-separated primekeys attribute.
func (d *DatabaseResult) PrimeKeyList() []string {
	return splitNonEmpty(d.PrimeKeys, ",")
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s)-len(sep); i++ {
		if s[i:i+len(sep)] == sep {
			if tok := trimSpace(s[start:i]); tok != "" {
				out = append(out, tok)
			}
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	if tok := trimSpace(s[start:]); tok != "" {
		out = append(out, tok)
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// errConfig is a convenience constructor for Config-kind errors raised
// while building the canonical tree.
func errConfig(format string, args ...any) error {
	return errs.New(errs.Config, fmt.Errorf(format, args...))
}
