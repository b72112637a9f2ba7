package background

import (
	"bufio"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jony/cascade/pkg/cascade/cerr"
	"github.com/jony/cascade/pkg/cascade/task"
)

// icsEvent is the subset of VEVENT fields Cascade cares about: a name
// and a start/end instant. All-day events are treated as spanning
// their whole calendar day.
type icsEvent struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// CalendarSessions fetches bc's ICS feed, parses its VEVENTs, filters
// them per bc.Matches, and returns the matching events as Blocks
// clipped to [scheduleStart, scheduleEnd].
func CalendarSessions(bc task.BackgroundCalendar, scheduleStart, scheduleEnd time.Time) ([]Block, error) {
	raw, err := fetchICS(bc.URL)
	if err != nil {
		return nil, err
	}

	events, err := parseICSEvents(normalizeICSLines(raw))
	if err != nil {
		return nil, err
	}

	var blocks []Block
	for _, e := range events {
		if !bc.Matches(e.Summary) {
			continue
		}
		if e.End.Before(scheduleStart) || e.Start.After(scheduleEnd) {
			continue
		}
		start := e.Start
		if start.Before(scheduleStart) {
			start = scheduleStart
		}
		end := e.End
		if end.After(scheduleEnd) {
			end = scheduleEnd
		}
		blocks = append(blocks, Block{Start: start, End: end})
	}
	return blocks, nil
}

func fetchICS(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "invalid calendar url %q", rawURL)
	}

	var body []byte
	switch u.Scheme {
	case "http", "https":
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(rawURL)
		if err != nil {
			return nil, cerr.Wrap(cerr.IOFailure, err, "fetching calendar %q", rawURL)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, cerr.New(cerr.IOFailure, "fetching calendar %q: status %d", rawURL, resp.StatusCode)
		}
		var lines []string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, cerr.Wrap(cerr.IOFailure, err, "reading calendar %q", rawURL)
		}
		return lines, nil
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, cerr.Wrap(cerr.IOFailure, err, "opening calendar file %q", u.Path)
		}
		defer f.Close()
		var lines []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, cerr.Wrap(cerr.IOFailure, err, "reading calendar file %q", u.Path)
		}
		return lines, nil
	default:
		return nil, cerr.New(cerr.InvalidInput, "unsupported calendar url scheme %q", u.Scheme)
	}
}

// normalizeICSLines handles RFC 5545 multiline unfolding: continuation
// lines begin with a SPACE or HTAB and are appended to the prior line.
func normalizeICSLines(rawLines []string) []string {
	var folded []string
	for _, line := range rawLines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if len(folded) > 0 {
				last := len(folded) - 1
				folded[last] = folded[last] + line[1:]
			}
		} else {
			folded = append(folded, line)
		}
	}
	return folded
}

func parseICSEvents(lines []string) ([]icsEvent, error) {
	var events []icsEvent
	var cur *icsEvent
	curAllDay := false

	for _, line := range lines {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 2 {
			continue
		}
		keyRaw, val := parts[0], parts[1]
		key := strings.ToUpper(strings.TrimSpace(strings.SplitN(keyRaw, ";", 2)[0]))

		switch key {
		case "BEGIN":
			if val == "VEVENT" {
				cur = &icsEvent{}
				curAllDay = false
			}
		case "END":
			if val == "VEVENT" && cur != nil {
				if curAllDay && cur.End.IsZero() {
					cur.End = cur.Start.AddDate(0, 0, 1)
				}
				events = append(events, *cur)
				cur = nil
			}
		case "SUMMARY":
			if cur != nil {
				cur.Summary = cleanICSString(val)
			}
		case "DTSTART":
			if cur != nil {
				if t, dateOnly, err := parseICSTime(val); err == nil {
					cur.Start = t
					curAllDay = dateOnly
				}
			}
		case "DTEND":
			if cur != nil {
				if t, _, err := parseICSTime(val); err == nil {
					cur.End = t
				}
			}
		}
	}

	for i := range events {
		if events[i].End.IsZero() {
			events[i].End = events[i].Start
		}
	}
	return events, nil
}

// cleanICSString unescapes the newline and comma escapes RFC 5545
// requires inside TEXT values.
func cleanICSString(s string) string {
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\,", ",")
	return s
}

// parseICSTime parses either a date-only value (20260220) or a
// date-time value (20260220T150000Z), reporting whether it was
// date-only so callers can treat it as spanning the full day.
func parseICSTime(val string) (time.Time, bool, error) {
	switch len(val) {
	case 8:
		t, err := time.Parse("20060102", val)
		return t, true, err
	default:
		if strings.HasSuffix(val, "Z") {
			t, err := time.Parse("20060102T150405Z", val)
			return t, false, err
		}
		t, err := time.Parse("20060102T150405", val)
		return t, false, err
	}
}
