// Package background materializes the busy-time blocks implied by a
// task document's background obligations: recurring cron sessions and
// events mirrored from external ICS feeds.
package background

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jony/cascade/pkg/cascade/cerr"
	"github.com/jony/cascade/pkg/cascade/task"
)

// Block is a single closed interval of committed busy time.
type Block struct {
	Start time.Time
	End   time.Time
}

// CronSessions enumerates every firing of bt.Schedule across
// [scheduleStart - 1 day, scheduleEnd], so a session straddling the
// window boundary is never missed, and returns each as a Block of
// length bt.Duration.
func CronSessions(bt task.BackgroundTask, scheduleStart, scheduleEnd time.Time) ([]Block, error) {
	sched, err := cron.ParseStandard(bt.Schedule)
	if err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "invalid cron expression %q", bt.Schedule)
	}

	var blocks []Block
	cursor := scheduleStart.AddDate(0, 0, -1)
	for {
		next := sched.Next(cursor)
		if next.IsZero() || next.After(scheduleEnd) {
			break
		}
		blocks = append(blocks, Block{Start: next, End: next.Add(bt.Duration)})
		cursor = next
	}
	return blocks, nil
}
