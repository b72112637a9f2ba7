package processed

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

func step(id string, status task.Status, dur time.Duration, after ...string) *task.Step {
	return &task.Step{
		Common: task.Common{
			ID: id, Name: id, Priority: 1,
			Deps: task.Dependencies{Before: task.NewStringSet(), After: task.NewStringSet(after...)},
		},
		Status:     status,
		Duration:   dur,
		Confidence: 1,
	}
}

func TestFromTaskASTCeilsDurationToSlots(t *testing.T) {
	tasks := []task.Task{step("task-a", task.StatusTodo, 7*time.Minute)}
	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "UTC")}
	ast, err := task.New(cfg, nil, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	p, err := FromTaskAST(ast)
	if err != nil {
		t.Fatalf("FromTaskAST: %v", err)
	}
	if p.Nodes["task-a"].Duration != 2 {
		t.Errorf("Duration = %d slots, want 2 (ceil(7min/5min))", p.Nodes["task-a"].Duration)
	}
}

func TestFromTaskASTDropsDoneTaskFromDeps(t *testing.T) {
	tasks := []task.Task{
		step("task-a", task.StatusDone, 5*time.Minute),
		step("task-b", task.StatusTodo, 5*time.Minute, "task-a"),
	}
	cfg := task.CascadeConfig{DefaultTZ: mustLoc(t, "UTC")}
	ast, err := task.New(cfg, nil, tasks)
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	p, err := FromTaskAST(ast)
	if err != nil {
		t.Fatalf("FromTaskAST: %v", err)
	}
	if p.Nodes["task-b"].Deps.Has("task-a") {
		t.Errorf("task-b should have had its done prerequisite task-a dropped, got %v", p.Nodes["task-b"].Deps)
	}

	active := p.Active()
	if _, ok := active["task-a"]; ok {
		t.Errorf("done task-a should not appear in Active()")
	}
	if _, ok := active["task-b"]; !ok {
		t.Errorf("todo task-b should appear in Active()")
	}
}
