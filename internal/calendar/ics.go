// Package calendar renders stored calendar records as an iCalendar (.ics) feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

const prodID = "-//econ-calendar//econ-calendar//EN"

// GenerateICS generates an iCalendar document with one VEVENT per record.
// Start times carry the TZID of the record's country so clients render them correctly.
// Records whose time cannot be resolved are left out.
func GenerateICS(records []*event.Record, stamp time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString(fmt.Sprintf("PRODID:%s\r\n", prodID))
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("X-WR-CALNAME:Economic Calendar\r\n")

	for _, r := range records {
		writeEvent(&ics, r, stamp)
	}

	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

func writeEvent(ics *strings.Builder, r *event.Record, stamp time.Time) {
	start, err := event.LocalTime(r)
	if err != nil {
		return
	}

	ics.WriteString("BEGIN:VEVENT\r\n")

	// UID - stable across fetches, derived from the natural key
	ics.WriteString(fmt.Sprintf("UID:%s@econ-calendar\r\n", r.ID()))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(stamp)))

	// Releases are instantaneous, so DTEND is omitted
	ics.WriteString(fmt.Sprintf("DTSTART;TZID=%s:%s\r\n", start.Location().String(), start.Format("20060102T150405")))

	summary := fmt.Sprintf("%s - %s", r.Currency, r.Event)
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(summary)))
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(describe(r))))
	ics.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", escapeICS(r.Currency)))

	// PRIORITY - 1 is highest; map impact 3..0 to 1, 5, 9, 0 (undefined)
	ics.WriteString(fmt.Sprintf("PRIORITY:%d\r\n", priority(r.Impact)))

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func describe(r *event.Record) string {
	lines := []string{fmt.Sprintf("Impact: %d/%d", r.Impact, event.MaxImpact)}
	if r.Actual != "" {
		lines = append(lines, "Actual: "+r.Actual)
	}
	if r.Forecast != "" {
		lines = append(lines, "Forecast: "+r.Forecast)
	}
	if r.Previous != "" {
		lines = append(lines, "Previous: "+r.Previous)
	}
	return strings.Join(lines, "\n")
}

func priority(impact int) int {
	switch impact {
	case 3:
		return 1
	case 2:
		return 5
	case 1:
		return 9
	default:
		return 0
	}
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
