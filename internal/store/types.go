// Package store implements the on-disk workpackage store: the benchmark
// directory layout, workpackage sandbox directories and sentinel
// markers, and the serialized graph/config/event-log files that let a
// restarted process reconstitute scheduler state.
package store

import (
	"time"

	"github.com/parambench/parambench/internal/param"
)

// State is a workpackage's lifecycle state.
type State string

const (
	Created          State = "created"
	Ready            State = "ready"
	Running          State = "running"
	AwaitingSentinel State = "awaiting_sentinel"
	Done             State = "done"
	Error            State = "error"
)

// Terminal reports whether the state requires no further scheduling.
func (s State) Terminal() bool {
	return s == Done || s == Error
}

// Workpackage is the scheduler's unit: one step x one parameter-space
// point x one iteration.
type Workpackage struct {
	ID        int         `xml:"id,attr"`
	Step      string      `xml:"step,attr"`
	Iteration int         `xml:"iteration,attr"`
	State     State       `xml:"state,attr"`
	Cycle     int         `xml:"cycle,attr"`
	DoIndex   int         `xml:"do_index,attr"`
	Dir       string      `xml:"dir,attr"`
	ParentIDs []int       `xml:"parent"`
	Point     paramPoint  `xml:"point"`
	RawPoint  paramPoint  `xml:"raw_point"`
	Env       paramPoint  `xml:"env"`
	ErrorMsg  string      `xml:"error,omitempty"`
	AsyncDo   int         `xml:"async_do,omitempty"` // do-index awaiting a sentinel
}

// paramPoint is an XML-friendly encoding of param.Point (a plain map
// doesn't round-trip through encoding/xml without an explicit shape).
type paramPoint struct {
	Entries []paramEntry `xml:"entry"`
}

type paramEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func toParamPoint(p param.Point) paramPoint {
	pp := paramPoint{}
	for _, name := range p.SortedNames() {
		pp.Entries = append(pp.Entries, paramEntry{Name: name, Value: p[name]})
	}
	return pp
}

func (pp paramPoint) toPoint() param.Point {
	p := make(param.Point, len(pp.Entries))
	for _, e := range pp.Entries {
		p[e.Name] = e.Value
	}
	return p
}

// PointMap exposes the workpackage's resolved parameter map.
func (w *Workpackage) PointMap() param.Point { return w.Point.toPoint() }

// EnvMap exposes the workpackage's exported environment snapshot.
func (w *Workpackage) EnvMap() param.Point { return w.Env.toPoint() }

// SetPoint stores a resolved parameter map onto the workpackage.
func (w *Workpackage) SetPoint(p param.Point) { w.Point = toParamPoint(p) }

// RawPointMap exposes the pre-resolution alternative chosen for each
// parameter, used to re-run resolution on update_mode re-evaluation.
func (w *Workpackage) RawPointMap() param.Point { return w.RawPoint.toPoint() }

// SetRawPoint stores the pre-resolution point onto the workpackage.
func (w *Workpackage) SetRawPoint(p param.Point) { w.RawPoint = toParamPoint(p) }

// SetEnv stores an exported environment snapshot onto the workpackage.
func (w *Workpackage) SetEnv(p param.Point) { w.Env = toParamPoint(p) }

// Benchmark is a container of steps and their materialized workpackages.
type Benchmark struct {
	ID           int            `xml:"id,attr"`
	Name         string         `xml:"name,attr"`
	EngineVer    string         `xml:"engine_version,attr"`
	OutPath      string         `xml:"-"`
	ConfigPath   string         `xml:"config_path"`
	StartTime    time.Time      `xml:"start_time"`
	ModTime      time.Time      `xml:"mod_time"`
	Comment      string         `xml:"comment,omitempty"`
	NextWPID     int            `xml:"next_wp_id"`
	Workpackages []*Workpackage `xml:"workpackage"`
}

// ByID returns the workpackage with the given id, or nil.
func (b *Benchmark) ByID(id int) *Workpackage {
	for _, wp := range b.Workpackages {
		if wp.ID == id {
			return wp
		}
	}
	return nil
}

// ForStep returns every workpackage belonging to the named step.
func (b *Benchmark) ForStep(step string) []*Workpackage {
	var out []*Workpackage
	for _, wp := range b.Workpackages {
		if wp.Step == step {
			out = append(out, wp)
		}
	}
	return out
}

// StateCounts summarizes workpackage states for the `status` command.
func (b *Benchmark) StateCounts() map[State]int {
	counts := make(map[State]int)
	for _, wp := range b.Workpackages {
		counts[wp.State]++
	}
	return counts
}
