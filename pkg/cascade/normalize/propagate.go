// Package normalize turns a validated task.TaskAST into a flat set of
// steps with fully propagated timezones, deadlines and priorities, and
// dependencies expressed purely as step-to-step `after` edges.
package normalize

import (
	"github.com/gammazero/toposort"

	"github.com/jony/cascade/pkg/cascade/cerr"
	"github.com/jony/cascade/pkg/cascade/task"
)

// PropagateProperties returns a copy of ast in which every task has
// had its timezone resolved, and every goal has pushed its deadline
// (tightening only) and priority (multiplicatively) down onto its
// subtasks. Goals are visited before their subtasks so the push
// chains correctly through nested goals.
func PropagateProperties(ast *task.TaskAST) (*task.TaskAST, error) {
	order, err := goalFirstOrder(ast)
	if err != nil {
		return nil, err
	}

	result := ast.Clone()
	byID := result.ByID()

	for _, id := range order {
		t := byID[id]
		if t == nil {
			continue
		}
		t.Common().UpdateTimezone(result.Config.DefaultTZ)

		g, ok := t.(*task.Goal)
		if !ok {
			continue
		}
		for _, subID := range g.Subtasks {
			sub := byID[subID]
			if sub == nil {
				continue
			}
			if g.Deadline != nil {
				sub.Common().TightenDeadline(*g.Deadline)
			}
			sub.Common().Priority *= g.Priority
		}
	}

	return result, nil
}

// goalFirstOrder returns task ids ordered so that every goal precedes
// its own subtasks, built from the goal→subtask edges via toposort.
// Tasks that are neither a goal nor anyone's subtask are anchored with
// a dummy edge so they still appear in the order.
func goalFirstOrder(ast *task.TaskAST) ([]string, error) {
	linked := task.NewStringSet()
	var edges []toposort.Edge
	for _, g := range ast.Goals() {
		linked.Add(g.ID)
		for _, sub := range g.Subtasks {
			edges = append(edges, toposort.Edge{g.ID, sub})
			linked.Add(sub)
		}
	}
	for _, t := range ast.Tasks {
		id := t.Common().ID
		if !linked.Has(id) {
			edges = append(edges, toposort.Edge{nil, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, cerr.Wrap(cerr.CyclicDependency, err, "propagating properties")
	}

	order := make([]string, 0, len(sorted))
	for _, v := range sorted {
		if v == nil {
			continue
		}
		order = append(order, v.(string))
	}
	return order, nil
}
