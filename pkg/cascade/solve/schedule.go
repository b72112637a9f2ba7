package solve

import (
	"time"

	"github.com/jony/cascade/pkg/cascade/processed"
)

// ScheduleDetail is one task's final placement, in wall-clock time.
type ScheduleDetail struct {
	Name        string
	Start       time.Time
	End         time.Time
	TaskLength  int // slots actually scheduled; 0 if not scheduled
	TaskUtility int // achieved utility, scaled by YSCALE
	MaxUtility  int // task's integer priority, the spec's max_utility ceiling
}

// Schedule is the final output of the three-stage solve: one detail
// per active task plus the window it was solved for.
type Schedule struct {
	Details       map[string]ScheduleDetail
	ScheduleStart time.Time
	ScheduleEnd   time.Time
}

// GetTotalUtility sums the achieved utility across every scheduled task.
func (s *Schedule) GetTotalUtility() int {
	sum := 0
	for _, d := range s.Details {
		sum += d.TaskUtility
	}
	return sum
}

// GetTotalLengthSlots sums the scheduled length of every task.
func (s *Schedule) GetTotalLengthSlots() int {
	sum := 0
	for _, d := range s.Details {
		sum += d.TaskLength
	}
	return sum
}

// extractSchedule converts a frozen slot-integer assignment back into
// wall-clock ScheduleDetail entries.
func extractSchedule(inst *instance, a assignment, scheduleStart, scheduleEnd time.Time) *Schedule {
	details := make(map[string]ScheduleDetail, len(inst.tasks))
	for id, t := range inst.tasks {
		p, scheduled := a[id]
		detail := ScheduleDetail{
			Name:       t.name,
			MaxUtility: t.priority,
		}
		if scheduled && p.length > 0 {
			avail := availTime(p.start, p.length, t.deadline)
			detail.Start = scheduleStart.Add(time.Duration(p.start) * processed.Slot)
			detail.End = scheduleStart.Add(time.Duration(p.start+p.length) * processed.Slot)
			detail.TaskLength = p.length
			detail.TaskUtility = t.utility.Eval(avail)
		}
		details[id] = detail
	}
	return &Schedule{Details: details, ScheduleStart: scheduleStart, ScheduleEnd: scheduleEnd}
}
