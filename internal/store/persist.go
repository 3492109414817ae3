package store

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/parambench/parambench/internal/errs"
)

// NewBenchmark allocates the next benchmark id under outPath, creates its
// directory, and returns a fresh Benchmark ready for workpackages to be
// added and Save'd.
func NewBenchmark(outPath, name string) (*Benchmark, error) {
	id, err := NextBenchmarkID(outPath)
	if err != nil {
		return nil, errs.New(errs.Filesystem, err)
	}
	dir := BenchDir(outPath, id)
	if err := EnsureDir(dir, ""); err != nil {
		return nil, errs.New(errs.Filesystem, err)
	}
	now := time.Now()
	return &Benchmark{
		ID:        id,
		Name:      name,
		EngineVer: EngineVersion,
		OutPath:   outPath,
		StartTime: now,
		ModTime:   now,
		NextWPID:  1,
	}, nil
}

// Load reconstitutes a benchmark from disk: restart requires this to
// reproduce the same scheduler state modulo in-flight transitions.
func Load(outPath string, id int, strict bool) (*Benchmark, error) {
	dir := BenchDir(outPath, id)
	data, err := os.ReadFile(graphPath(dir))
	if err != nil {
		return nil, errs.New(errs.Filesystem, fmt.Errorf("loading benchmark %d: %w", id, err))
	}
	var b Benchmark
	if err := xml.Unmarshal(data, &b); err != nil {
		return nil, errs.New(errs.Config, fmt.Errorf("parsing graph for benchmark %d: %w", id, err))
	}
	b.OutPath = outPath

	if err := checkVersion(b.EngineVer, strict); err != nil {
		return nil, err
	}

	// Parent symlinks must exist; a missing or broken symlink indicates a
	// corrupt benchmark and must be reported, not silently recreated.
	for _, wp := range b.Workpackages {
		wpDir := wp.Dir
		step := wp.Step
		for _, parentID := range wp.ParentIDs {
			parent := b.ByID(parentID)
			if parent == nil {
				return nil, errs.New(errs.Config, fmt.Errorf(
					"workpackage %d (%s): parent %d not found in graph", wp.ID, step, parentID))
			}
			link := ParentLinkPath(wpDir, parent.Step)
			if _, err := os.Stat(link); err != nil {
				return nil, errs.New(errs.Config, fmt.Errorf(
					"workpackage %d (%s): parent symlink %s missing or broken: %w", wp.ID, step, link, err))
			}
		}
	}
	return &b, nil
}

// checkVersion compares the persisted engine version against the running
// one. A mismatch is a warning unless strict mode escalates it to an error.
func checkVersion(persisted string, strict bool) error {
	if persisted == "" || persisted == EngineVersion {
		return nil
	}
	cur, err1 := semver.NewVersion(EngineVersion)
	old, err2 := semver.NewVersion(persisted)
	if err1 != nil || err2 != nil || !cur.Equal(old) {
		msg := fmt.Errorf("benchmark was created by engine version %s, running %s", persisted, EngineVersion)
		if strict {
			return errs.New(errs.VersionMismatch, msg)
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", msg)
	}
	return nil
}

// Save persists the workpackage graph and benchmark metadata to disk.
func (b *Benchmark) Save() error {
	b.ModTime = time.Now()
	dir := BenchDir(b.OutPath, b.ID)
	if err := EnsureDir(dir, ""); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	data, err := xml.MarshalIndent(b, "", "  ")
	if err != nil {
		return errs.New(errs.Config, err)
	}
	if err := os.WriteFile(graphPath(dir), data, 0o644); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	return nil
}

// SnapshotConfig copies the resolved configuration document's source file
// into the benchmark directory, so later `continue`/`analyse`/`result`
// invocations are insulated from edits to the original file.
func (b *Benchmark) SnapshotConfig(sourcePath string) error {
	dir := BenchDir(b.OutPath, b.ID)
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return errs.New(errs.Filesystem, err)
	}
	dst := configSnapPath(dir, filepath.Ext(sourcePath))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	b.ConfigPath = dst
	return nil
}

// Dir returns the benchmark's root directory.
func (b *Benchmark) Dir() string { return BenchDir(b.OutPath, b.ID) }

// AddWorkpackage allocates the next workpackage id, creates its sandbox
// directory and parent symlinks, and appends it to the benchmark.
func (b *Benchmark) AddWorkpackage(step, suffix string, parents []*Workpackage, groupName string) (*Workpackage, error) {
	id := b.NextWPID
	b.NextWPID++
	dir := WPDir(b.Dir(), id, SanitizeStepDirName(step), suffix)
	if err := EnsureDir(WorkDir(dir), groupName); err != nil {
		return nil, errs.New(errs.Filesystem, err)
	}
	wp := &Workpackage{
		ID:    id,
		Step:  step,
		State: Created,
		Dir:   dir,
	}
	for _, p := range parents {
		wp.ParentIDs = append(wp.ParentIDs, p.ID)
		link := ParentLinkPath(dir, p.Step)
		target := WorkDir(p.Dir)
		if err := os.Symlink(target, link); err != nil && !os.IsExist(err) {
			return nil, errs.New(errs.Filesystem, fmt.Errorf("linking parent %s: %w", p.Step, err))
		}
	}
	b.Workpackages = append(b.Workpackages, wp)
	return wp, nil
}

// MarkDone writes the `done` marker and transitions the workpackage.
func (wp *Workpackage) MarkDone() error {
	if err := os.WriteFile(DonePath(wp.Dir), nil, 0o644); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	wp.State = Done
	return nil
}

// HasDoneMarker reports whether the `done` marker is present.
func (wp *Workpackage) HasDoneMarker() bool {
	_, err := os.Stat(DonePath(wp.Dir))
	return err == nil
}

// MarkWPDone writes the per-<do> wp_done_NN marker (async suspension).
func (wp *Workpackage) MarkWPDone(nn int) error {
	if err := os.WriteFile(WPDoneMarkerPath(wp.Dir, nn), nil, 0o644); err != nil {
		return errs.New(errs.Filesystem, err)
	}
	return nil
}

// HasWPDoneMarker reports whether the wp_done_NN marker is present.
func (wp *Workpackage) HasWPDoneMarker(nn int) bool {
	_, err := os.Stat(WPDoneMarkerPath(wp.Dir, nn))
	return err == nil
}

// HighestWPDoneMarker scans the workpackage directory for the highest
// present wp_done_NN marker, or -1 if none exist. Used on restart to
// find the resumption cursor.
func (wp *Workpackage) HighestWPDoneMarker() int {
	entries, err := os.ReadDir(wp.Dir)
	if err != nil {
		return -1
	}
	highest := -1
	for _, e := range entries {
		var nn int
		if _, err := fmt.Sscanf(e.Name(), "wp_done_%02d", &nn); err == nil {
			if nn > highest {
				highest = nn
			}
		}
	}
	return highest
}

// SentinelPresent checks whether a user-named sentinel file exists inside
// the workpackage's work directory.
func (wp *Workpackage) SentinelPresent(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(WorkDir(wp.Dir), name))
	return err == nil
}
