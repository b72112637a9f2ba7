package normalize

import "github.com/jony/cascade/pkg/cascade/task"

// Dependencies returns the leaf steps of ast with dependencies
// collapsed to a pure `after` relation: `before` is inverted, and any
// reference to a goal is replaced by that goal's leaf steps. The
// result is a flat list of steps, each depending only on other steps.
func Dependencies(ast *task.TaskAST) []*task.Step {
	work := ast.Clone()
	task.InvertDependencies(work)
	task.ConvertGoalToDeps(work)

	byID := work.ByID()
	for _, t := range work.Tasks {
		c := t.Common()
		expanded := c.Deps.After.Clone()
		for depID := range c.Deps.After {
			dep := byID[depID]
			g, ok := dep.(*task.Goal)
			if !ok {
				continue
			}
			expanded.Remove(depID)
			for leaf := range task.CollectLeafTasks(g, byID) {
				expanded.Add(leaf)
			}
		}
		c.Deps.After = expanded
	}

	return work.Steps()
}
