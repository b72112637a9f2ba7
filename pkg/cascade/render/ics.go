package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/jony/cascade/pkg/cascade/solve"
)

const icsTimeFormat = "20060102T150405Z"

// ICS writes one VEVENT per scheduled task (length > 0) to w, matching
// the shape used elsewhere in this codebase for pushing calendar
// entries: a VCALENDAR wrapper, CRLF line endings, UID/SUMMARY/
// DESCRIPTION/DTSTART/DTEND fields.
func ICS(w io.Writer, sched *solve.Schedule) {
	fmt.Fprint(w, "BEGIN:VCALENDAR\r\n")
	fmt.Fprint(w, "VERSION:2.0\r\n")
	fmt.Fprint(w, "PRODID:-//Cascade//EN\r\n")

	for id, d := range sched.Details {
		if d.TaskLength == 0 {
			continue
		}
		fmt.Fprint(w, "BEGIN:VEVENT\r\n")
		fmt.Fprintf(w, "UID:%s\r\n", uuid.NewString())
		fmt.Fprintf(w, "SUMMARY:%s\r\n", escapeICSText(d.Name))
		score := float64(d.TaskUtility) / float64(solve.YSCALE)
		fmt.Fprintf(w, "DESCRIPTION:%s\r\n", escapeICSText(fmt.Sprintf("Task ID: %s, Score: %.2f", id, score)))
		fmt.Fprintf(w, "DTSTART:%s\r\n", d.Start.UTC().Format(icsTimeFormat))
		fmt.Fprintf(w, "DTEND:%s\r\n", d.End.UTC().Format(icsTimeFormat))
		fmt.Fprint(w, "END:VEVENT\r\n")
	}

	fmt.Fprint(w, "END:VCALENDAR\r\n")
}

func escapeICSText(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}
