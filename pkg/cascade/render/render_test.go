package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jony/cascade/pkg/cascade/solve"
)

func sampleSchedule() *solve.Schedule {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &solve.Schedule{
		ScheduleStart: start,
		ScheduleEnd:   start.Add(time.Hour),
		Details: map[string]solve.ScheduleDetail{
			"task-a": {Name: "task-a", Start: start, End: start.Add(5 * time.Minute), TaskLength: 1, TaskUtility: 100, MaxUtility: 100},
			"task-b": {Name: "task-b", MaxUtility: 100},
		},
	}
}

func TestTextListsScheduledBeforeUnscheduled(t *testing.T) {
	var buf bytes.Buffer
	Text(&buf, sampleSchedule())
	out := buf.String()

	aIdx := strings.Index(out, "task-a")
	bIdx := strings.Index(out, "not scheduled")
	if aIdx < 0 || bIdx < 0 || aIdx > bIdx {
		t.Errorf("expected scheduled task-a before the not-scheduled line, got:\n%s", out)
	}
}

func TestICSOnlyEmitsScheduledTasks(t *testing.T) {
	var buf bytes.Buffer
	ICS(&buf, sampleSchedule())
	out := buf.String()

	if strings.Count(out, "BEGIN:VEVENT") != 1 {
		t.Errorf("expected exactly one VEVENT, got:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:task-a") {
		t.Errorf("expected task-a's summary in output, got:\n%s", out)
	}
	if strings.Contains(out, "task-b") {
		t.Errorf("unscheduled task-b should not appear in ICS output, got:\n%s", out)
	}
}
