package normalize

import (
	"testing"
	"time"

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

func step(id string, after ...string) *task.Step {
	return &task.Step{
		Common: task.Common{
			ID: id, Name: id, Priority: 1,
			Deps: task.Dependencies{Before: task.NewStringSet(), After: task.NewStringSet(after...)},
		},
		Status:     task.StatusTodo,
		Duration:   5 * time.Minute,
		Confidence: 1,
	}
}

func goal(id string, subtasks []string, implicitOrder bool) *task.Goal {
	return &task.Goal{
		Common: task.Common{
			ID: id, Name: id, Priority: 1,
			Deps: task.Dependencies{Before: task.NewStringSet(), After: task.NewStringSet()},
		},
		Subtasks:            subtasks,
		ImplicitDepsByOrder: implicitOrder,
	}
}

// Mirrors the implicit-ordering scenario: Goal A (implicit order) owns
// [Goal B, Task A]; Goal B owns [Task B]; Task B already depends on
// Task C. After normalization only steps survive, each with deps
// purely expressed as `after` among other steps.
func TestNormalizeCollapsesGoalsIntoLeafDeps(t *testing.T) {
	tasks := []task.Task{
		step("task-a"),
		step("task-b", "task-c"),
		step("task-c"),
		goal("goal-a", []string{"goal-b", "task-a"}, true),
		goal("goal-b", []string{"task-b"}, false),
	}
	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "Europe/London")}

	ast, err := task.New(cfg, nil, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	steps, err := Normalize(ast)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 leaf steps, got %d", len(steps))
	}

	byID := make(map[string]*task.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	if !byID["task-a"].Deps.After.Has("task-b") || len(byID["task-a"].Deps.After) != 1 {
		t.Errorf("task-a deps = %v, want {task-b}", byID["task-a"].Deps.After)
	}
	if !byID["task-b"].Deps.After.Has("task-c") || len(byID["task-b"].Deps.After) != 1 {
		t.Errorf("task-b deps = %v, want {task-c}", byID["task-b"].Deps.After)
	}
	if len(byID["task-c"].Deps.After) != 0 {
		t.Errorf("task-c deps = %v, want empty", byID["task-c"].Deps.After)
	}
}

func TestPropagatePriorityMultipliesDownGoalTree(t *testing.T) {
	tasks := []task.Task{
		step("task-a"),
		goal("goal-a", []string{"task-a"}, false),
	}
	tasks[1].Common().Priority = 3
	tasks[0].Common().Priority = 2

	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "UTC")}
	ast, err := task.New(cfg, nil, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	propagated, err := PropagateProperties(ast)
	if err != nil {
		t.Fatalf("PropagateProperties: %v", err)
	}

	taskA := propagated.ByID()["task-a"].Common()
	if taskA.Priority != 6 {
		t.Errorf("task-a priority = %d, want 6 (2*3)", taskA.Priority)
	}
}

func TestPropagateDeadlineTightensOnly(t *testing.T) {
	parentDDL := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	childDDL := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	child := step("task-a")
	child.Deadline = &childDDL
	parent := goal("goal-a", []string{"task-a"}, false)
	parent.Deadline = &parentDDL

	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "UTC")}
	ast, err := task.New(cfg, nil, []task.Task{child, parent})
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	propagated, err := PropagateProperties(ast)
	if err != nil {
		t.Fatalf("PropagateProperties: %v", err)
	}

	got := propagated.ByID()["task-a"].Common().Deadline
	if got == nil || !got.Equal(childDDL) {
		t.Errorf("task-a deadline = %v, want unchanged %v (child's is tighter)", got, childDDL)
	}
}

func TestNormalizeIsIdempotentOnAlreadyFlatSteps(t *testing.T) {
	tasks := []task.Task{
		step("task-a"),
		step("task-b", "task-a"),
	}
	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "UTC")}
	ast, err := task.New(cfg, nil, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	first, err := Normalize(ast)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	reTasks := make([]task.Task, len(first))
	for i, s := range first {
		reTasks[i] = s
	}
	reAST, err := task.New(cfg, nil, reTasks)
	if err != nil {
		t.Fatalf("task.New (re-run): %v", err)
	}
	second, err := Normalize(reAST)
	if err != nil {
		t.Fatalf("Normalize (re-run): %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("non-idempotent: %d steps then %d steps", len(first), len(second))
	}
	for _, s := range second {
		if s.ID == "task-b" && !s.Deps.After.Has("task-a") {
			t.Errorf("task-b lost its dependency across a second normalize pass")
		}
	}
}
