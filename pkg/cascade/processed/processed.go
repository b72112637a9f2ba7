// Package processed turns a normalized set of leaf steps into the
// flat, slot-quantized representation the solver consumes.
package processed

import (
	"math"
	"time"

	"github.com/jony/cascade/pkg/cascade/normalize"
	"github.com/jony/cascade/pkg/cascade/task"
)

// Slot is the scheduling grid unit: five minutes.
const Slot = 5 * time.Minute

// AtomicTask is a leaf step with every timestamp and duration resolved
// to integer slot units, ready for the solver.
type AtomicTask struct {
	Name       string
	ID         string
	Status     task.Status
	Priority   int
	Confidence int
	Duration   int // slots
	Deps       task.StringSet
	Deadline   *time.Time
}

// AST is the fully processed document: atomic tasks plus the raw
// background obligations (materialized into busy blocks later, once
// the schedule window is known).
type AST struct {
	Nodes map[string]*AtomicTask
	Bg    map[string]task.BackgroundSource
}

// FromTaskAST propagates properties, flattens dependencies, and
// converts the result into atomic tasks. Dangling `after` references
// to a done step are dropped: a prerequisite that is already done is
// semantically satisfied and should not block the solver on a task
// that will never appear in the model.
func FromTaskAST(ast *task.TaskAST) (*AST, error) {
	steps, err := normalize.Normalize(ast)
	if err != nil {
		return nil, err
	}

	done := task.NewStringSet()
	for _, s := range steps {
		if s.Status == task.StatusDone {
			done.Add(s.ID)
		}
	}

	nodes := make(map[string]*AtomicTask, len(steps))
	for _, s := range steps {
		deps := task.NewStringSet()
		for dep := range s.Deps.After {
			if done.Has(dep) {
				continue
			}
			deps.Add(dep)
		}

		confidence := s.Confidence
		if confidence == 0 {
			confidence = 1
		}

		nodes[s.ID] = &AtomicTask{
			Name:       s.Name,
			ID:         s.ID,
			Status:     s.Status,
			Priority:   s.Priority,
			Confidence: confidence,
			Duration:   int(math.Ceil(float64(s.Duration) / float64(Slot))),
			Deps:       deps,
			Deadline:   s.Deadline,
		}
	}

	return &AST{Nodes: nodes, Bg: ast.Bg}, nil
}

// Active returns only the nodes still in todo status: these are the
// only ones the solver ever schedules.
func (a *AST) Active() map[string]*AtomicTask {
	active := make(map[string]*AtomicTask, len(a.Nodes))
	for id, n := range a.Nodes {
		if n.Status == task.StatusTodo {
			active[id] = n
		}
	}
	return active
}
