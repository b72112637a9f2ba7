package solve

import (
	"github.com/jony/cascade/pkg/cascade/processed"
)

// slotBlock is a background busy interval expressed in slots relative
// to schedule_start, clipped to the schedule window by the caller.
type slotBlock struct {
	StartSlot int
	EndSlot   int
}

// taskModel is a solver-internal view of one active task: its
// processed fields plus the curves derived from them.
type taskModel struct {
	id       string
	name     string
	priority int
	duration int  // slots, the task's expected/nominal length
	maxLen   int  // slots, the spec's len ∈ [0, 2·duration] upper bound
	deadline *int // slot offset from schedule_start, if any
	deps     []string
	utility  utilityCurve
	integral integralCurve
}

// placement is one task's assignment on the timeline. A task absent
// from the placements map is simply not scheduled (length 0).
type placement struct {
	start  int
	length int // slots; 0 means the task isn't scheduled
}

// instance is the immutable problem description a solve run works
// against: tasks, the background blocks they must avoid, and the
// window length in slots.
type instance struct {
	tasks      map[string]*taskModel
	order      []string // stable iteration order, by id
	background []slotBlock
	totalSlots int
}

// newInstance builds the solver's internal view. deadlineSlots maps a
// task id to its deadline expressed as a slot offset from
// schedule_start, for tasks that have one.
func newInstance(active map[string]*processed.AtomicTask, deadlineSlots map[string]int, bg []slotBlock, totalSlots int) *instance {
	inst := &instance{
		tasks:      make(map[string]*taskModel, len(active)),
		background: bg,
		totalSlots: totalSlots,
	}
	for id, t := range active {
		sigma := t.Duration / (t.Confidence + 3)
		maxLen := 2 * t.Duration
		u, integ := newUtilityCurves(t.Duration, sigma, t.Priority, maxLen)

		tm := &taskModel{
			id:       id,
			name:     t.Name,
			priority: t.Priority,
			duration: t.Duration,
			maxLen:   maxLen,
			deps:     t.Deps.Slice(),
			utility:  u,
			integral: integ,
		}
		if d, ok := deadlineSlots[id]; ok {
			dd := d
			tm.deadline = &dd
		}
		inst.tasks[id] = tm
		inst.order = append(inst.order, id)
	}
	return inst
}

// availTime computes the deadline-clipped available time for a task
// scheduled at [start, start+length), mirroring TotalUtilityModel's
// three-way before/clipped/after case split.
func availTime(start, length int, deadline *int) int {
	if deadline == nil {
		return length
	}
	end := start + length
	switch {
	case end <= *deadline: // before: fully within deadline
		return length
	case start > *deadline: // after: deadline already passed before task even starts
		return 0
	default: // straddling the deadline
		return *deadline - start
	}
}

// overlaps reports whether two half-open slot intervals intersect.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
