package background

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jony/cascade/pkg/cascade/task"
)

// Merge sweeps a set of possibly-overlapping or touching blocks into
// the minimal disjoint cover of busy time.
func Merge(blocks []Block) []Block {
	if len(blocks) == 0 {
		return nil
	}
	sorted := append([]Block(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []Block{sorted[0]}
	for _, b := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// Materialize concurrently resolves every background source in bg
// into busy blocks (calendar events clipped to [scheduleStart,
// scheduleEnd]; cron sessions enumerated from one day before
// scheduleStart and left unclipped), then returns their merged,
// minimal disjoint cover.
func Materialize(ctx context.Context, bg map[string]task.BackgroundSource, scheduleStart, scheduleEnd time.Time) ([]Block, error) {
	results := make([][]Block, len(bg))
	names := make([]string, 0, len(bg))
	for name := range bg {
		names = append(names, name)
	}
	sort.Strings(names)

	g, _ := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		src := bg[name]
		g.Go(func() error {
			var (
				blocks []Block
				err    error
			)
			switch v := src.(type) {
			case task.BackgroundTask:
				blocks, err = CronSessions(v, scheduleStart, scheduleEnd)
			case task.BackgroundCalendar:
				blocks, err = CalendarSessions(v, scheduleStart, scheduleEnd)
			}
			results[i] = blocks
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Block
	for _, r := range results {
		all = append(all, r...)
	}
	return Merge(all), nil
}
