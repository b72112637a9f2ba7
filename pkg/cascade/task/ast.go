package task

import (
	"sort"

	"github.com/jony/cascade/pkg/cascade/cerr"
)

// TaskAST is the validated, user-shaped description of a TODO list.
// Construction enforces unique ids, reference closure, DAG-ness of the
// dependency graph, and deadline monotonicity. Once built it is treated
// as immutable; every transform in package normalize returns a copy.
type TaskAST struct {
	Config CascadeConfig
	Bg     map[string]BackgroundSource
	Tasks  []Task
}

// New validates raw tasks and background sources and returns an
// immutable TaskAST, or a *cerr.Error describing the first violation.
func New(cfg CascadeConfig, bg map[string]BackgroundSource, tasks []Task) (*TaskAST, error) {
	ast := &TaskAST{Config: cfg, Bg: bg, Tasks: tasks}

	if err := ast.checkUniqueIDs(); err != nil {
		return nil, err
	}
	if err := ast.checkRefs(); err != nil {
		return nil, err
	}

	// Implicit-order dependency injection must happen before the
	// acyclicity check, since it can itself introduce a cycle.
	for _, t := range ast.Tasks {
		if g, ok := t.(*Goal); ok && g.ImplicitDepsByOrder {
			injectImplicitDeps(g, ast)
		}
	}

	if err := ast.checkDepsGraph(); err != nil {
		return nil, err
	}
	if err := ast.checkDeadlines(); err != nil {
		return nil, err
	}

	return ast, nil
}

// ByID returns the task map keyed by id.
func (a *TaskAST) ByID() map[string]Task {
	m := make(map[string]Task, len(a.Tasks))
	for _, t := range a.Tasks {
		m[t.Common().ID] = t
	}
	return m
}

func (a *TaskAST) IDs() StringSet {
	ids := NewStringSet()
	for _, t := range a.Tasks {
		ids.Add(t.Common().ID)
	}
	return ids
}

func (a *TaskAST) Steps() []*Step {
	var out []*Step
	for _, t := range a.Tasks {
		if s, ok := t.(*Step); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a *TaskAST) Goals() []*Goal {
	var out []*Goal
	for _, t := range a.Tasks {
		if g, ok := t.(*Goal); ok {
			out = append(out, g)
		}
	}
	return out
}

// Clone returns a deep copy so transforms never alias the original.
func (a *TaskAST) Clone() *TaskAST {
	clone := &TaskAST{Config: a.Config, Bg: a.Bg, Tasks: make([]Task, len(a.Tasks))}
	for i, t := range a.Tasks {
		clone.Tasks[i] = t.Clone()
	}
	return clone
}

func injectImplicitDeps(g *Goal, ast *TaskAST) {
	byID := ast.ByID()
	for i := 1; i < len(g.Subtasks); i++ {
		successor := byID[g.Subtasks[i]]
		if successor == nil {
			continue // reported by checkRefs
		}
		successor.Common().Deps.After.Add(g.Subtasks[i-1])
		for j := 0; j < i-1; j++ {
			successor.Common().Deps.After.Add(g.Subtasks[j])
		}
	}
}

func (a *TaskAST) checkUniqueIDs() error {
	seen := make(map[string]bool, len(a.Tasks))
	for _, t := range a.Tasks {
		id := t.Common().ID
		if seen[id] {
			return cerr.New(cerr.InvalidInput, "duplicate task id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func (a *TaskAST) checkRefs() error {
	ids := a.IDs()
	undefined := NewStringSet()
	for _, t := range a.Tasks {
		c := t.Common()
		for id := range c.Deps.Before {
			if !ids.Has(id) {
				undefined.Add(id)
			}
		}
		for id := range c.Deps.After {
			if !ids.Has(id) {
				undefined.Add(id)
			}
		}
		if g, ok := t.(*Goal); ok {
			for _, id := range g.Subtasks {
				if !ids.Has(id) {
					undefined.Add(id)
				}
			}
		}
	}
	if len(undefined) > 0 {
		return cerr.New(cerr.ReferenceError, "reference to undefined task id(s): %s", sortedList(undefined))
	}
	return nil
}

// checkDeadlines asserts that no transitive predecessor of a deadlined
// task has a later deadline. It operates on a working copy with
// `before` inverted and goal→subtasks made explicit as `after`, exactly
// as spec.md §4.1 prescribes, then walks the `after` relation
// transitively from each deadlined task, so a later deadline reached
// through a predecessor without a deadline of its own is reported too.
func (a *TaskAST) checkDeadlines() error {
	work := a.Clone()
	invertDependencies(work)
	convertGoalToDeps(work)

	byID := work.ByID()
	for _, t := range work.Tasks {
		c := t.Common()
		if c.Deadline == nil {
			continue
		}
		var conflicting []string
		seen := NewStringSet()
		pending := c.Deps.After.Slice()
		for len(pending) > 0 {
			depID := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if seen.Has(depID) {
				continue
			}
			seen.Add(depID)
			dep := byID[depID]
			if dep == nil {
				continue
			}
			if dep.Common().Deadline != nil && dep.Common().Deadline.After(*c.Deadline) {
				conflicting = append(conflicting, depID)
			}
			pending = append(pending, dep.Common().Deps.After.Slice()...)
		}
		if len(conflicting) > 0 {
			sort.Strings(conflicting)
			return cerr.New(cerr.DeadlineConflict,
				"task(s) %v have deadlines later than %q, contradicting the dependency relation",
				conflicting, c.Name)
		}
	}
	return nil
}

// checkDepsGraph runs DFS-based cycle detection over a working copy
// with `before` inverted and goals merged into their own `after` set
// (a goal depends on all of its subtasks).
func (a *TaskAST) checkDepsGraph() error {
	work := a.Clone()
	invertDependencies(work)
	convertGoalToDeps(work)

	byID := work.ByID()
	const (
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(work.Tasks))

	var stack []string
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			cycleStart := 0
			for i, s := range stack {
				if s == id {
					cycleStart = i
					break
				}
			}
			path := append(append([]string(nil), stack[cycleStart:]...), id)
			return cerr.New(cerr.CyclicDependency, "dependency cycle detected: %s", joinArrow(path))
		}
		color[id] = gray
		stack = append(stack, id)
		t := byID[id]
		if t != nil {
			ids := t.Common().Deps.After.Slice()
			sort.Strings(ids)
			for _, dep := range ids {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(work.Tasks))
	for _, t := range work.Tasks {
		ids = append(ids, t.Common().ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// InvertDependencies rewrites every `before` edge as an `after` edge on
// the predecessor, in place, and clears `before`. Exported so package
// normalize can reuse it on its own working copy.
func InvertDependencies(a *TaskAST) { invertDependencies(a) }

// ConvertGoalToDeps makes the goal→subtasks relation explicit as an
// `after` edge on the goal, exported for package normalize.
func ConvertGoalToDeps(a *TaskAST) { convertGoalToDeps(a) }

func invertDependencies(a *TaskAST) {
	byID := a.ByID()
	for _, t := range a.Tasks {
		c := t.Common()
		for pred := range c.Deps.Before {
			if p := byID[pred]; p != nil {
				p.Common().Deps.After.Add(c.ID)
			}
		}
		c.Deps.Before = NewStringSet()
	}
}

// convertGoalToDeps makes the goal→subtasks relation explicit as an
// `after` edge on the goal itself (a goal depends on all its subtasks).
func convertGoalToDeps(a *TaskAST) {
	for _, t := range a.Tasks {
		if g, ok := t.(*Goal); ok {
			for _, sub := range g.Subtasks {
				g.Deps.After.Add(sub)
			}
		}
	}
}

// CollectLeafTasks recursively gathers the leaf Step ids under a Goal.
func CollectLeafTasks(g *Goal, byID map[string]Task) StringSet {
	leaves := NewStringSet()
	for _, subID := range g.Subtasks {
		sub := byID[subID]
		switch v := sub.(type) {
		case *Step:
			leaves.Add(subID)
		case *Goal:
			for id := range CollectLeafTasks(v, byID) {
				leaves.Add(id)
			}
		}
	}
	return leaves
}

func sortedList(s StringSet) []string {
	out := s.Slice()
	sort.Strings(out)
	return out
}

func joinArrow(path []string) string {
	out := ""
	for i, id := range path {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}
