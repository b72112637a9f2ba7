package task

import (
	"strings"
	"time"
)

// BackgroundSource is the tagged sum of background-obligation kinds:
// cron-driven recurring sessions, or events mirrored from an external
// ICS feed.
type BackgroundSource interface {
	isBackgroundSource()
}

// BackgroundTask emits a fixed-duration session at every firing of a
// cron expression, interpreted in the config's default timezone.
type BackgroundTask struct {
	Schedule string
	Duration time.Duration
}

func (BackgroundTask) isBackgroundSource() {}

// BackgroundCalendar mirrors busy time from an external ICS feed
// (http(s):// or file://), filtered by a case-folded substring list.
type BackgroundCalendar struct {
	URL       string
	Filter    []string
	Whitelist bool
}

// Matches reports whether an event named `name` should be kept as a
// background block, given the filter/whitelist configuration.
func (bc BackgroundCalendar) Matches(name string) bool {
	folded := strings.ToLower(name)
	matched := false
	for _, f := range bc.Filter {
		if strings.Contains(folded, strings.ToLower(f)) {
			matched = true
			break
		}
	}
	if bc.Whitelist {
		return matched
	}
	return !matched
}

func (BackgroundCalendar) isBackgroundSource() {}
