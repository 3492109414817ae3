package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
	"github.com/parambench/parambench/internal/param"
	"github.com/parambench/parambench/internal/store"
)

// stderrTailLines is the "last five lines" contract for a failed do's stderr.
const stderrTailLines = 5

// Execute drives the benchmark's workpackages to a fixed point: each pass
// advances every eligible workpackage by exactly one unit of work (enter
// running, execute one <do>, or re-probe a sentinel) and yields, matching
// a cooperative scheduling model. It returns once no workpackage made
// progress in a pass, which is also the point at which `run` returns with
// AwaitingSentinel workpackages still pending a user-touched sentinel.
func (s *Scheduler) Execute(ctx context.Context) error {
	s.reconcile()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		progressed, err := s.pass(ctx)
		if err != nil {
			return err
		}
		if serr := s.Bench.Save(); serr != nil {
			return serr
		}
		if !progressed {
			return nil
		}
	}
}

// reconcile cross-checks persisted workpackage state against on-disk
// sentinel markers, honoring the restart contract: a missing `done`
// marker with a present wp_done_NN cursor resumes at NN+1 rather than
// trusting possibly-stale in-memory state alone. A cursor recovered at
// an async do whose sentinel hasn't appeared yet is restored to
// AwaitingSentinel rather than advanced past, covering a crash between
// the do's wp_done_NN marker and the pass's end-of-loop Bench.Save.
func (s *Scheduler) reconcile() {
	for _, wp := range s.Bench.Workpackages {
		if wp.State.Terminal() {
			continue
		}
		if wp.HasDoneMarker() {
			wp.State = store.Done
			continue
		}
		st := s.steps[wp.Step]
		if st == nil || len(st.Dos) == 0 {
			continue
		}
		doCount := len(st.Dos)
		highest := wp.HighestWPDoneMarker()
		if highest < 0 {
			continue
		}
		if wp.State == store.AwaitingSentinel {
			if wp.AsyncDo == 0 {
				wp.AsyncDo = highest
			}
			continue
		}
		cycle, doIdx := highest/doCount, highest%doCount
		do := st.Dos[doIdx]
		if do.DoneFile != "" && !wp.SentinelPresent(do.DoneFile) {
			wp.State = store.AwaitingSentinel
			wp.AsyncDo = highest
			wp.Cycle, wp.DoIndex = cycle, doIdx
			continue
		}
		if doIdx+1 < doCount {
			wp.Cycle, wp.DoIndex = cycle, doIdx+1
		} else {
			wp.Cycle, wp.DoIndex = cycle+1, 0
		}
		if wp.State == store.Created {
			wp.State = store.Running
		}
	}
}

// asyncBudget tracks, for the duration of one pass, how many
// AwaitingSentinel workpackages each step currently holds, enforcing
// max_async.
type asyncBudget struct {
	mu     sync.Mutex
	counts map[string]int
}

func newAsyncBudget(bench *store.Benchmark) *asyncBudget {
	b := &asyncBudget{counts: map[string]int{}}
	for _, wp := range bench.Workpackages {
		if wp.State == store.AwaitingSentinel {
			b.counts[wp.Step]++
		}
	}
	return b
}

// reserve attempts to claim one async slot for step, honoring max (0 =
// unlimited). On success the caller must eventually hold that slot; on
// failure (quota exceeded) it returns false and reserves nothing.
func (b *asyncBudget) reserve(step string, max int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if max > 0 && b.counts[step] >= max {
		return false
	}
	b.counts[step]++
	return true
}

func (b *asyncBudget) release(step string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts[step] > 0 {
		b.counts[step]--
	}
}

// pass runs one scheduling pass: every non-terminal workpackage advances
// by at most one unit of work, concurrently (bounded per-step by
// max_async and by the shared-folder advisory lock).
func (s *Scheduler) pass(ctx context.Context) (bool, error) {
	budget := newAsyncBudget(s.Bench)
	var (
		g          errgroup.Group
		mu         sync.Mutex
		progressed bool
	)
	for _, wp := range s.Bench.Workpackages {
		wp := wp
		if wp.State.Terminal() {
			continue
		}
		g.Go(func() error {
			did, err := s.advance(ctx, wp, budget)
			if did {
				mu.Lock()
				progressed = true
				mu.Unlock()
			}
			if err != nil && s.Ctx.ExitOnError {
				return err
			}
			// Isolated to this workpackage otherwise: already recorded on wp.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return progressed, err
	}
	return progressed, nil
}

// advance performs the single next unit of work for wp: entering
// Running from Created, re-probing a sentinel, or executing one <do>.
func (s *Scheduler) advance(ctx context.Context, wp *store.Workpackage, budget *asyncBudget) (bool, error) {
	st := s.steps[wp.Step]
	if st == nil {
		return false, errs.ForWP(errs.Config, wp.Step, wp.ID, fmt.Errorf("unknown step"))
	}
	switch wp.State {
	case store.Created:
		return s.enterRunning(ctx, wp, st)
	case store.AwaitingSentinel:
		return s.reprobe(wp, st)
	case store.Running:
		return s.runOneDo(ctx, wp, st, budget)
	}
	return false, nil
}

// enterRunning checks the Ready-set rule and, if satisfied, resolves the
// workpackage's parameters, applies filesets/substitution, and moves it
// to Running at cursor (0,0).
func (s *Scheduler) enterRunning(ctx context.Context, wp *store.Workpackage, st *config.Step) (bool, error) {
	for _, pid := range wp.ParentIDs {
		parent := s.Bench.ByID(pid)
		if parent == nil || parent.State != store.Done {
			return false, nil
		}
	}
	ok, err := param.EvalActive(st.Active, wp.PointMap())
	if err != nil {
		return true, s.fail(wp, errs.Config, err)
	}
	if !ok {
		return false, nil
	}

	sets := s.stepParametersets(st)
	resolved, err := s.Expander.Reresolve(ctx, wp.PointMap(), wp.RawPointMap(), sets, s.ambientFor(wp), func(m config.UpdateMode) bool {
		return m == config.UpdateUse || m == config.UpdateStep || m == config.UpdateAlways
	})
	if err != nil {
		return true, s.fail(wp, errs.Resolution, err)
	}
	wp.SetPoint(resolved)

	filesets, subsets := s.stepFilesets(st)
	workDir := store.WorkDir(wp.Dir)
	activeFn := func(expr string) (bool, error) { return param.EvalActive(expr, wp.PointMap()) }
	if err := s.Files.Apply(ctx, workDir, filesets, subsets, wp.PointMap(), activeFn); err != nil {
		return true, s.fail(wp, errs.Filesystem, err)
	}

	wp.State = store.Running
	wp.Cycle, wp.DoIndex = 0, 0
	_ = s.Bench.AppendEvent("wp %d (%s) running", wp.ID, wp.Step)
	return true, nil
}

// reprobe checks the sentinel files for the <do> a workpackage suspended
// on, advancing its cursor (or failing it) without re-executing the command.
func (s *Scheduler) reprobe(wp *store.Workpackage, st *config.Step) (bool, error) {
	doCount := len(st.Dos)
	if doCount == 0 {
		_ = wp.MarkDone()
		return true, nil
	}
	cycle, doIdx := wp.AsyncDo/doCount, wp.AsyncDo%doCount
	do := st.Dos[doIdx]
	if do.ErrorFile != "" && wp.SentinelPresent(do.ErrorFile) {
		return true, s.fail(wp, errs.AsyncFailure, fmt.Errorf("error_file %q observed", do.ErrorFile))
	}
	if do.DoneFile == "" || !wp.SentinelPresent(do.DoneFile) {
		return false, nil
	}
	s.advanceCursor(wp, st, cycle, doIdx, doCount)
	if wp.State != store.Done {
		wp.State = store.Running
	}
	_ = s.Bench.AppendEvent("wp %d (%s) sentinel %s observed", wp.ID, wp.Step, do.DoneFile)
	return true, nil
}

// runOneDo executes exactly the <do> at the workpackage's current cursor.
func (s *Scheduler) runOneDo(ctx context.Context, wp *store.Workpackage, st *config.Step, budget *asyncBudget) (bool, error) {
	doCount := len(st.Dos)
	if doCount == 0 {
		_ = wp.MarkDone()
		return true, nil
	}
	cycle, doIdx := wp.Cycle, wp.DoIndex
	do := st.Dos[doIdx]

	active, err := param.EvalActive(do.Active, wp.PointMap())
	if err != nil {
		return true, s.fail(wp, errs.Config, err)
	}
	if !active {
		s.advanceCursor(wp, st, cycle, doIdx, doCount)
		return true, nil
	}
	if do.BreakFile != "" && wp.SentinelPresent(do.BreakFile) {
		_ = wp.MarkDone()
		_ = s.Bench.AppendEvent("wp %d (%s) break_file %s observed", wp.ID, wp.Step, do.BreakFile)
		return true, nil
	}

	isAsync := do.DoneFile != ""
	if isAsync {
		if !budget.reserve(wp.Step, st.MaxAsync) {
			return false, nil
		}
	}

	workDir := store.WorkDir(wp.Dir)
	if do.WorkDir != "" {
		workDir = store.IsAbsOrJoin(wp.Dir, param.SubstituteFinal(do.WorkDir, wp.PointMap(), s.ambientFor(wp)))
	}

	runner := s.runShared
	if !do.Shared {
		runner = s.runOnce
	}
	stderrTail, runErr := runner(ctx, wp, st, do, workDir, cycle, doIdx)
	if runErr != nil {
		if isAsync {
			budget.release(wp.Step)
		}
		return true, s.fail(wp, errs.Execution, runErr, stderrTail...)
	}

	nn := store.DoIndexKey(cycle, doIdx, doCount)
	_ = wp.MarkWPDone(nn)

	if isAsync {
		wp.AsyncDo = nn
		wp.State = store.AwaitingSentinel
		_ = s.Bench.AppendEvent("wp %d (%s) awaiting sentinel %s", wp.ID, wp.Step, do.DoneFile)
		return true, nil
	}

	s.advanceCursor(wp, st, cycle, doIdx, doCount)
	return true, nil
}

// advanceCursor moves (cycle,doIndex) forward by one <do>, wrapping into
// the next cycle (re-evaluating cycle-mode parameters) or marking the
// workpackage Done when the last cycle's last <do> completes.
func (s *Scheduler) advanceCursor(wp *store.Workpackage, st *config.Step, cycle, doIdx, doCount int) {
	if doIdx+1 < doCount {
		wp.Cycle, wp.DoIndex = cycle, doIdx+1
		return
	}
	if cycle+1 >= st.EffectiveCycles() {
		_ = wp.MarkDone()
		_ = s.Bench.AppendEvent("wp %d (%s) done", wp.ID, wp.Step)
		return
	}
	sets := s.stepParametersets(st)
	resolved, err := s.Expander.Reresolve(context.Background(), wp.PointMap(), wp.RawPointMap(), sets, s.ambientFor(wp), func(m config.UpdateMode) bool {
		return m == config.UpdateCycle || m == config.UpdateAlways
	})
	if err == nil {
		wp.SetPoint(resolved)
	}
	wp.Cycle, wp.DoIndex = cycle+1, 0
}

// runOnce executes a <do> command in the workpackage's own directory.
func (s *Scheduler) runOnce(ctx context.Context, wp *store.Workpackage, st *config.Step, do *config.Do, workDir string, cycle, doIdx int) ([]string, error) {
	return s.runShell(ctx, wp, do, workDir)
}

// runShared serializes a shared="true" <do> across every sibling
// workpackage at the same (cycle, do index): it runs once, in the step's
// shared folder, guarded by a per-step advisory lock and a persisted
// marker so a second sibling (even after a restart) observes success
// without re-running the command.
func (s *Scheduler) runShared(ctx context.Context, wp *store.Workpackage, st *config.Step, do *config.Do, workDir string, cycle, doIdx int) ([]string, error) {
	lock := s.sharedLocks[wp.Step]
	lock <- struct{}{}
	defer func() { <-lock }()

	dir := s.sharedDir(wp.Step)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	marker := filepath.Join(dir, fmt.Sprintf("shared_done_%02d", store.DoIndexKey(cycle, doIdx, len(st.Dos))))
	if _, err := os.Stat(marker); err == nil {
		return nil, nil
	}

	holder := SharedLockHolderPath(s.Bench.Dir(), wp.Step)
	if err := os.WriteFile(holder, fmt.Appendf(nil, "%d", wp.ID), 0o644); err == nil {
		defer os.Remove(holder)
	}

	tail, err := s.runShell(ctx, wp, do, dir)
	if err != nil {
		return tail, err
	}
	if werr := os.WriteFile(marker, nil, 0o644); werr != nil {
		return nil, werr
	}
	return nil, nil
}

// SharedLockHolderPath names the marker a shared="true" <do> writes for
// the duration of its execution, read by `info --step` to report which
// workpackage currently holds a step's shared lock.
func SharedLockHolderPath(benchDir, step string) string {
	return filepath.Join(benchDir, "shared_"+SanitizedStepName(step), "lock_holder")
}

func (s *Scheduler) sharedDir(step string) string {
	return filepath.Join(s.Bench.Dir(), "shared_"+SanitizedStepName(step))
}

// SanitizedStepName guards the shared folder name against a hostile step name.
func SanitizedStepName(name string) string { return store.SanitizeStepDirName(name) }

// runShell launches do's shell text through the configured shell,
// injecting ambient + exported environment, and returns the last lines
// of stderr on a non-zero exit.
func (s *Scheduler) runShell(ctx context.Context, wp *store.Workpackage, do *config.Do, workDir string) ([]string, error) {
	ambient := s.ambientFor(wp)
	shellText := param.SubstituteFinal(do.Shell, wp.PointMap(), ambient)

	cmd := exec.CommandContext(ctx, s.Ctx.Shell(), "-c", shellText)
	cmd.Dir = workDir
	cmd.Env = s.buildEnv(wp, ambient)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = nil
	if err := cmd.Run(); err != nil {
		return errs.LastLines(stderr.String(), stderrTailLines), err
	}
	return nil, nil
}

func (s *Scheduler) buildEnv(wp *store.Workpackage, ambient param.Point) []string {
	env := os.Environ()
	for _, name := range ambient.SortedNames() {
		env = append(env, name+"="+ambient[name])
	}
	exported := wp.EnvMap()
	for _, name := range exported.SortedNames() {
		env = append(env, name+"="+exported[name])
	}
	return env
}

// ambientFor assembles the jube_benchmark_*/jube_step_*/jube_wp_*
// variables visible to a workpackage's substitution and <do> execution.
func (s *Scheduler) ambientFor(wp *store.Workpackage) param.Point {
	st := s.steps[wp.Step]
	bmAmb := benchmarkAmbient(s.Bench, s.Home)
	var stepAmb param.Point
	if st != nil {
		stepAmb = stepAmbient(st.Name, st.EffectiveIterations(), st.EffectiveCycles())
	}
	var parents []*store.Workpackage
	for _, pid := range wp.ParentIDs {
		if p := s.Bench.ByID(pid); p != nil {
			parents = append(parents, p)
		}
	}
	wpAmb := wpAmbient(wp, s.Bench.Dir(), parents)
	return mergeAmbient(bmAmb, stepAmb, wpAmb)
}

// fail marks wp Error with kind/err and the stderr tail, appends an event,
// and returns the wrapped error (for the caller to decide propagation).
func (s *Scheduler) fail(wp *store.Workpackage, kind errs.Kind, err error, stderrTail ...string) error {
	wp.State = store.Error
	wp.ErrorMsg = err.Error()
	wrapped := errs.ForWP(kind, wp.Step, wp.ID, err).WithStderr(stderrTail)
	_ = s.Bench.AppendEvent("wp %d (%s) error: %v", wp.ID, wp.Step, wrapped)
	return wrapped
}
