// Package task implements Cascade's first-pass AST: the user-facing,
// goal/step shaped description of a TODO list, validated on construction.
package task

import (
	"time"
)

// Status is a Step's completion state.
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// StringSet is a small set of ids, used for deps/subtask references.
type StringSet map[string]struct{}

func NewStringSet(ids ...string) StringSet {
	s := make(StringSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s StringSet) Add(id string)    { s[id] = struct{}{} }
func (s StringSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
func (s StringSet) Remove(id string) { delete(s, id) }

func (s StringSet) Clone() StringSet {
	c := make(StringSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s StringSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Dependencies holds a task's raw declared precedence relations. Before
// every normalization pass `before` and `after` may both be populated;
// normalize.Normalize collapses both into `after` among leaf steps only.
type Dependencies struct {
	Before StringSet
	After  StringSet
}

func NewDependencies() Dependencies {
	return Dependencies{Before: NewStringSet(), After: NewStringSet()}
}

func (d Dependencies) Clone() Dependencies {
	return Dependencies{Before: d.Before.Clone(), After: d.After.Clone()}
}

// Common carries the fields shared by Step and Goal.
type Common struct {
	ID       string
	Name     string
	Desc     string
	Tags     []string
	Deadline *time.Time // naive until UpdateTimezone localizes it
	Timezone *time.Location
	Priority int
	Deps     Dependencies
}

func (c *Common) Clone() Common {
	clone := *c
	clone.Tags = append([]string(nil), c.Tags...)
	clone.Deps = c.Deps.Clone()
	if c.Deadline != nil {
		d := *c.Deadline
		clone.Deadline = &d
	}
	return clone
}

// UpdateTimezone attaches a timezone to the task's deadline if it has
// none of its own yet, falling back to the config default.
func (c *Common) UpdateTimezone(def *time.Location) {
	tz := c.Timezone
	if tz == nil {
		tz = def
	}
	if c.Deadline != nil && tz != nil {
		local := time.Date(
			c.Deadline.Year(), c.Deadline.Month(), c.Deadline.Day(),
			c.Deadline.Hour(), c.Deadline.Minute(), c.Deadline.Second(), c.Deadline.Nanosecond(),
			tz,
		)
		c.Deadline = &local
	}
}

// TightenDeadline sets the deadline to ddl if ddl is earlier, or if the
// task currently has none.
func (c *Common) TightenDeadline(ddl time.Time) {
	if c.Deadline == nil || ddl.Before(*c.Deadline) {
		d := ddl
		c.Deadline = &d
	}
}

// Task is the tagged-sum interface implemented by Step and Goal.
type Task interface {
	Common() *Common
	Clone() Task
}

// Step is a leaf unit of work.
type Step struct {
	Common
	Status     Status
	Duration   time.Duration
	Confidence int
}

func (s *Step) Common() *Common { return &s.Common }

func (s *Step) Clone() Task {
	clone := *s
	clone.Common = s.Common.Clone()
	return &clone
}

// Goal is a composite task that pushes deadline/priority down to its
// subtasks and never survives normalization.
type Goal struct {
	Common
	Subtasks            []string
	ImplicitDepsByOrder bool
}

func (g *Goal) Common() *Common { return &g.Common }

func (g *Goal) Clone() Task {
	clone := *g
	clone.Common = g.Common.Clone()
	clone.Subtasks = append([]string(nil), g.Subtasks...)
	return &clone
}
