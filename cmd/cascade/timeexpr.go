package main

import (
	"fmt"
	"time"
)

// parseStartExpr resolves a start-time expression: "next_day" (the
// next local midnight), "next_hour" (the next top-of-the-hour), or a
// relative duration from now (e.g. "30m", "2h").
func parseStartExpr(expr string, now time.Time) (time.Time, error) {
	switch expr {
	case "next_day":
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.AddDate(0, 0, 1), nil
	case "next_hour":
		h := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
		return h.Add(time.Hour), nil
	default:
		d, err := time.ParseDuration(expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid start expression %q: %w", expr, err)
		}
		return now.Add(d), nil
	}
}

// parseEndExpr resolves the end of the window as a relative duration
// from start.
func parseEndExpr(expr string, start time.Time) (time.Time, error) {
	d, err := time.ParseDuration(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end expression %q: %w", expr, err)
	}
	return start.Add(d), nil
}
