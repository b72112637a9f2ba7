package solve

import (
	"context"
	"testing"
	"time"

	"github.com/jony/cascade/pkg/cascade/processed"
	"github.com/jony/cascade/pkg/cascade/task"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("time.LoadLocation(%q): %v", name, err)
	}
	return loc
}

func step(id string, dur time.Duration, priority, confidence int, after ...string) *task.Step {
	if priority == 0 {
		priority = 1
	}
	if confidence == 0 {
		confidence = 1
	}
	return &task.Step{
		Common: task.Common{
			ID: id, Name: id, Priority: priority,
			Deps: task.Dependencies{Before: task.NewStringSet(), After: task.NewStringSet(after...)},
		},
		Status:     task.StatusTodo,
		Duration:   dur,
		Confidence: confidence,
	}
}

func buildProcessed(t *testing.T, loc *time.Location, tasks []task.Task, bg map[string]task.BackgroundSource) *processed.AST {
	t.Helper()
	ast, err := task.New(task.CascadeConfig{DefaultTZ: loc}, bg, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}
	p, err := processed.FromTaskAST(ast)
	if err != nil {
		t.Fatalf("FromTaskAST: %v", err)
	}
	return p
}

// alignedWindow returns a (start, end) pair where start already sits on
// a slot boundary from local midnight, so snapping is a no-op and slot
// arithmetic in assertions lines up exactly.
func alignedWindow(loc *time.Location, length time.Duration) (time.Time, time.Time) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	return start, start.Add(length)
}

// S2 — CUF ordering with same terminal utility: task-c (priority 2,
// 5min) has the highest utility density and goes first, then task-a
// (5min), then task-b (20min, lowest density), regardless of the exact
// shape of task-b's non-degenerate utility curve.
func TestScheduleOrdersByUtilityDensity(t *testing.T) {
	loc := mustLoc(t, "UTC")
	tasks := []task.Task{
		step("task-a", 5*time.Minute, 1, 1),
		step("task-b", 20*time.Minute, 1, 1),
		step("task-c", 5*time.Minute, 2, 1),
	}
	p := buildProcessed(t, loc, tasks, nil)
	start, end := alignedWindow(loc, 100*time.Minute)

	sched, err := Solve(context.Background(), p, start, end, 5)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	a, b, c := sched.Details["task-a"], sched.Details["task-b"], sched.Details["task-c"]
	if a.TaskLength == 0 || b.TaskLength == 0 || c.TaskLength == 0 {
		t.Fatalf("expected all three tasks scheduled, got a=%+v b=%+v c=%+v", a, b, c)
	}
	if !(c.Start.Before(a.Start) && a.Start.Before(b.Start)) {
		t.Errorf("expected order task-c, task-a, task-b by start time, got c=%v a=%v b=%v", c.Start, a.Start, b.Start)
	}

	// task-a and task-c are step functions (sigma floors to 0) that
	// saturate at their 1-slot duration; task-b has a non-degenerate
	// lognormal curve whose CDF only rounds up to a full 100 once
	// extended to 8 slots (2x its 4-slot duration), per spec §4.4's
	// len ∈ [0, 2·d_i] bound. Total utility is therefore the full
	// 4·YSCALE, and total length is 1 (a) + 1 (c) + 8 (b) = 10.
	wantUtility := 4 * YSCALE
	if got := sched.GetTotalUtility(); got != wantUtility {
		t.Errorf("total utility = %d, want %d", got, wantUtility)
	}
	wantLength := 10
	if got := sched.GetTotalLengthSlots(); got != wantLength {
		t.Errorf("total length = %d, want %d", got, wantLength)
	}
	if a.TaskLength != 1 || c.TaskLength != 1 || b.TaskLength != 8 {
		t.Errorf("task lengths = a:%d b:%d c:%d, want a:1 b:8 c:1", a.TaskLength, b.TaskLength, c.TaskLength)
	}
}

// S3 — Precedence under squeeze: six linearly dependent 5-minute tasks
// in a 15-minute window. Precedence propagates through the window even
// past the point where the chain can no longer fit, so exactly the
// first three in chain order are scheduled.
func TestScheduleSqueezeStopsChainAtWindowEdge(t *testing.T) {
	loc := mustLoc(t, "UTC")
	tasks := []task.Task{
		step("task-a", 5*time.Minute, 1, 4),
		step("task-b", 5*time.Minute, 1, 4, "task-a"),
		step("task-c", 5*time.Minute, 1, 4, "task-b"),
		step("task-d", 5*time.Minute, 1, 4, "task-c"),
		step("task-e", 5*time.Minute, 1, 4, "task-d"),
		step("task-f", 5*time.Minute, 1, 4, "task-e"),
	}
	p := buildProcessed(t, loc, tasks, nil)
	start, end := alignedWindow(loc, 15*time.Minute)

	sched, err := Solve(context.Background(), p, start, end, 5)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	for _, id := range []string{"task-a", "task-b", "task-c"} {
		if sched.Details[id].TaskLength == 0 {
			t.Errorf("%s should be scheduled, got length 0", id)
		}
	}
	for _, id := range []string{"task-d", "task-e", "task-f"} {
		if sched.Details[id].TaskLength != 0 {
			t.Errorf("%s should not be scheduled, got length %d", id, sched.Details[id].TaskLength)
		}
	}

	a, b, c := sched.Details["task-a"], sched.Details["task-b"], sched.Details["task-c"]
	if !(a.Start.Before(b.Start) && b.Start.Before(c.Start)) {
		t.Errorf("expected chain order a < b < c, got a=%v b=%v c=%v", a.Start, b.Start, c.Start)
	}
	if !b.Start.Equal(a.End) || !c.Start.Equal(b.End) {
		t.Errorf("expected back-to-back placement, got a.End=%v b.Start=%v b.End=%v c.Start=%v", a.End, b.Start, b.End, c.Start)
	}

	wantTotal := 3 * YSCALE
	if got := sched.GetTotalUtility(); got != wantTotal {
		t.Errorf("total utility = %d, want %d", got, wantTotal)
	}
}

// S4 — Deadline clipping: a 30-minute step with a deadline at slot 4
// (20 minutes) achieves at most avail=4; stage 3 trims its scheduled
// length down from the full 6 slots to that deadline-clipped value.
func TestScheduleTrimsLengthToDeadline(t *testing.T) {
	loc := mustLoc(t, "UTC")
	start, end := alignedWindow(loc, 60*time.Minute)
	deadline := start.Add(20 * time.Minute)

	s := step("task-a", 30*time.Minute, 1, 1)
	s.Deadline = &deadline

	p := buildProcessed(t, loc, []task.Task{s}, nil)

	sched, err := Solve(context.Background(), p, start, end, 5)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	d := sched.Details["task-a"]
	if d.TaskLength == 0 {
		t.Fatalf("expected task-a scheduled, got length 0")
	}
	if !d.Start.Equal(start) {
		t.Errorf("expected start at window start, got %v", d.Start)
	}
	if d.TaskLength != 4 {
		t.Errorf("expected length trimmed to 4 slots (deadline-clipped avail), got %d", d.TaskLength)
	}
}

// S5 — Background exclusion: a 5-minute step must land in the
// complement of an hourly 10-minute background session.
func TestScheduleAvoidsBackgroundBlock(t *testing.T) {
	loc := mustLoc(t, "UTC")
	start, end := alignedWindow(loc, 60*time.Minute)

	s := step("task-a", 5*time.Minute, 1, 1)
	bg := map[string]task.BackgroundSource{
		"hourly-standup": task.BackgroundTask{Schedule: "0 * * * *", Duration: 10 * time.Minute},
	}
	p := buildProcessed(t, loc, []task.Task{s}, bg)

	sched, err := Solve(context.Background(), p, start, end, 5)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	d := sched.Details["task-a"]
	if d.TaskLength == 0 {
		t.Fatalf("expected task-a scheduled in the non-blocked complement, got length 0")
	}
	blockedEnd := start.Add(10 * time.Minute)
	if d.Start.Before(blockedEnd) {
		t.Errorf("task-a scheduled at %v, overlaps the background block ending at %v", d.Start, blockedEnd)
	}
}

// S5b — when the background obligation leaves no gap long enough for
// the task (a 5-minute gap for a 10-minute step), Solve reports
// Infeasible rather than silently overlapping it.
func TestScheduleInfeasibleWhenNoGapExists(t *testing.T) {
	loc := mustLoc(t, "UTC")
	start, end := alignedWindow(loc, 10*time.Minute)

	s := step("task-a", 10*time.Minute, 1, 1)
	bg := map[string]task.BackgroundSource{
		"wall-to-wall": task.BackgroundTask{Schedule: "0 * * * *", Duration: 5 * time.Minute},
	}
	p := buildProcessed(t, loc, []task.Task{s}, bg)

	_, err := Solve(context.Background(), p, start, end, 5)
	if err == nil {
		t.Fatalf("expected Infeasible error, got nil")
	}
}
