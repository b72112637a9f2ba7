// Package render formats a solved Schedule for humans and for export.
package render

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jony/cascade/pkg/cascade/solve"
)

// Text writes a sorted, column-aligned rendering of sched to w: one
// line per task ordered by start time, scheduled tasks first, then
// every task reported as "not scheduled".
func Text(w io.Writer, sched *solve.Schedule) {
	ids := sortedByStart(sched)

	fmt.Fprintf(w, "Schedule %s -> %s\n", sched.ScheduleStart.Format(time.RFC3339), sched.ScheduleEnd.Format(time.RFC3339))
	for _, id := range ids {
		d := sched.Details[id]
		if d.TaskLength == 0 {
			fmt.Fprintf(w, "  %-20s not scheduled (max utility %d)\n", d.Name, d.MaxUtility)
			continue
		}
		fmt.Fprintf(w, "  %-20s %s -> %s  %d slots  utility %d/%d\n",
			d.Name, d.Start.Format("15:04"), d.End.Format("15:04"), d.TaskLength, d.TaskUtility, d.MaxUtility)
	}
	fmt.Fprintf(w, "total utility: %d  total length: %d slots\n", sched.GetTotalUtility(), sched.GetTotalLengthSlots())
}

// sortedByStart orders task ids: scheduled tasks first by start time,
// then unscheduled tasks by name, for stable, readable output.
func sortedByStart(sched *solve.Schedule) []string {
	ids := make([]string, 0, len(sched.Details))
	for id := range sched.Details {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := sched.Details[ids[i]], sched.Details[ids[j]]
		if a.TaskLength == 0 && b.TaskLength == 0 {
			return a.Name < b.Name
		}
		if a.TaskLength == 0 {
			return false
		}
		if b.TaskLength == 0 {
			return true
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Name < b.Name
	})
	return ids
}
