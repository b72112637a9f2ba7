package solve

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/jony/cascade/pkg/cascade/background"
	"github.com/jony/cascade/pkg/cascade/cerr"
	"github.com/jony/cascade/pkg/cascade/processed"
)

// defaultSolverTimeout matches the reference wall-clock ceiling.
const defaultSolverTimeout = 120 * time.Second

// iterationsPerSecond is a rough budget for how many anneal candidates
// this engine can afford to try per second of wall clock, used to turn
// a timeout into a fixed iteration count (the search has no internal
// clock check of its own).
const iterationsPerSecond = 4000

// Solve runs the three-stage lexicographic pipeline over ast for the
// window [scheduleStart, scheduleEnd): maximize total utility, then
// maximize CUF under the utility floor, then minimize total scheduled
// length under the CUF floor. solverTimeout is in seconds; 0 uses the
// pipeline default of 120s.
func Solve(ctx context.Context, ast *processed.AST, scheduleStart, scheduleEnd time.Time, solverTimeoutSec int) (*Schedule, error) {
	if !scheduleEnd.After(scheduleStart) {
		return nil, cerr.New(cerr.WindowError, "schedule_end %s is not after schedule_start %s", scheduleEnd, scheduleStart)
	}

	snappedStart := snapToSlot(scheduleStart)
	totalSlots := int(scheduleEnd.Sub(snappedStart) / processed.Slot)
	if totalSlots <= 0 {
		return nil, cerr.New(cerr.WindowError, "schedule window is shorter than one slot once %s is snapped to %s", scheduleStart, snappedStart)
	}

	active := ast.Active()
	deadlineSlots := make(map[string]int, len(active))
	for id, t := range active {
		if t.Deadline == nil {
			continue
		}
		d := int(t.Deadline.Sub(snappedStart) / processed.Slot)
		deadlineSlots[id] = d
	}

	blocks, err := background.Materialize(ctx, ast.Bg, snappedStart, scheduleEnd)
	if err != nil {
		return nil, err
	}
	slotBlocks := make([]slotBlock, 0, len(blocks))
	for _, b := range blocks {
		slotBlocks = append(slotBlocks, toSlotBlock(b, snappedStart, totalSlots))
	}

	inst := newInstance(active, deadlineSlots, slotBlocks, totalSlots)
	if len(inst.tasks) == 0 {
		return &Schedule{
			Details:       map[string]ScheduleDetail{},
			ScheduleStart: snappedStart,
			ScheduleEnd:   scheduleEnd,
		}, nil
	}

	timeout := time.Duration(solverTimeoutSec) * time.Second
	if solverTimeoutSec <= 0 {
		timeout = defaultSolverTimeout
	}
	iterations := int(timeout.Seconds() * iterationsPerSecond)
	if iterations < 200 {
		iterations = 200
	}

	rng := rand.New(rand.NewSource(1))
	initialKey := greedyKey(inst)

	stage1, key1 := anneal(inst, initialKey, totalUtilityScore, noFloor, iterations, rng)
	utilityFloor := totalUtilityScore(inst, stage1)
	if !anyTaskFits(inst, stage1) {
		return nil, cerr.New(cerr.Infeasible, "no task could be scheduled in the given window")
	}

	utilityFloorCheck := func(a assignment) bool { return totalUtilityScore(inst, a) >= utilityFloor }
	stage2, _ := anneal(inst, key1, totalCUFScore, utilityFloorCheck, iterations, rng)
	cufFloor := totalCUFScore(inst, stage2)

	bothFloors := func(a assignment) bool {
		return totalUtilityScore(inst, a) >= utilityFloor && totalCUFScore(inst, a) >= cufFloor
	}
	stage3 := trimLengths(inst, stage2, bothFloors)

	sched := extractSchedule(inst, stage3, snappedStart, scheduleEnd)
	return sched, nil
}

// snapToSlot rounds t up to the next slot boundary measured from local
// midnight on t's calendar day, in t's own location.
func snapToSlot(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	elapsed := t.Sub(midnight)
	rem := elapsed % processed.Slot
	if rem == 0 {
		return t
	}
	return t.Add(processed.Slot - rem)
}

// toSlotBlock converts a wall-clock busy interval into slot offsets
// relative to snappedStart, clipped to [0, totalSlots].
func toSlotBlock(b background.Block, snappedStart time.Time, totalSlots int) slotBlock {
	start := int(b.Start.Sub(snappedStart) / processed.Slot)
	end := int(b.End.Sub(snappedStart) / processed.Slot)
	if start < 0 {
		start = 0
	}
	if end > totalSlots {
		end = totalSlots
	}
	if end < start {
		end = start
	}
	return slotBlock{StartSlot: start, EndSlot: end}
}

func noFloor(assignment) bool { return true }

// greedyKey seeds the tie-break keys with a Smith's-rule style density
// (utility per slot of duration): among ready tasks this favors
// scheduling the highest utility-density work earliest, which is the
// order that maximizes sum of (utility * remaining time) when all
// tasks are independent.
func greedyKey(inst *instance) map[string]float64 {
	key := make(map[string]float64, len(inst.tasks))
	for id, t := range inst.tasks {
		u := t.utility.Eval(t.duration)
		dur := t.duration
		if dur <= 0 {
			dur = 1
		}
		key[id] = float64(u) / float64(dur)
	}
	return key
}

// anyTaskFits reports whether some task in the assignment has a
// nonzero-length placement at all, used to distinguish "nothing
// fit" (infeasible window) from "correctly nothing worth scheduling".
func anyTaskFits(inst *instance, a assignment) bool {
	for _, p := range a {
		if p.length > 0 {
			return true
		}
	}
	return false
}

// trimLengths is the final length-minimization stage: for every
// scheduled task it binary-searches the shortest length (within
// [0, its current length]) that still satisfies both frozen floors,
// starts fixed. Shrinking a task's own interval can only ever reduce
// its own avail (monotonic non-decreasing in length) and never
// introduces a new collision, so the floor predicate is monotonic in
// length and binary search is valid: any length at or above the
// found minimum also satisfies the floor, any length below it does
// not. This subsumes deadline clipping (a task whose deadline falls
// mid-duration already has a shorter avail past that point, so the
// search finds the clipped length directly) as a special case of the
// general rule.
func trimLengths(inst *instance, base assignment, floor func(assignment) bool) assignment {
	result := make(assignment, len(base))
	for id, p := range base {
		result[id] = p
	}

	ids := make([]string, 0, len(base))
	for id := range base {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := result[id]
		if p.length == 0 {
			continue
		}

		fits := func(length int) bool {
			candidate := make(assignment, len(result))
			for k, v := range result {
				candidate[k] = v
			}
			candidate[id] = placement{start: p.start, length: length}
			return floor(candidate)
		}

		lo, hi := 0, p.length
		for lo < hi {
			mid := (lo + hi) / 2
			if fits(mid) {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		if lo < p.length {
			result[id] = placement{start: p.start, length: lo}
		}
	}

	return result
}
