package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

var stamp = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func TestGenerateICS(t *testing.T) {
	r := &event.Record{
		Time:     "2024-03-15 08:30",
		Currency: "United States",
		Impact:   2,
		Event:    "NY Empire State Manufacturing Index (Mar)",
		Actual:   "-20.90",
		Forecast: "-7.00",
		Previous: "-2.40",
	}

	ics := GenerateICS([]*event.Record{r}, stamp)

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//econ-calendar//econ-calendar//EN",
		"BEGIN:VEVENT",
		"UID:" + r.ID() + "@econ-calendar",
		"DTSTAMP:20240315T140000Z",
		"DTSTART;TZID=America/New_York:20240315T083000",
		"SUMMARY:United States - NY Empire State Manufacturing Index (Mar)",
		"DESCRIPTION:Impact: 2/3\\nActual: -20.90\\nForecast: -7.00\\nPrevious: -2.40",
		"PRIORITY:5",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing required field: %s", field)
		}
	}

	// Check that lines end with \r\n
	if !strings.Contains(ics, "\r\n") {
		t.Error("ICS should use \\r\\n line endings")
	}
	if strings.Contains(ics, "DTEND") {
		t.Error("ICS should not include DTEND for instantaneous releases")
	}
}

func TestGenerateICS_MultipleAndInvalid(t *testing.T) {
	records := []*event.Record{
		{Time: "2024-03-15 11:30", Currency: "Australia", Impact: 1, Event: "Home Loans (MoM)"},
		{Time: "2024-03-15 10:00", Currency: "Atlantis", Impact: 1, Event: "Unknown"},
		{Time: "not a time", Currency: "Japan", Impact: 1, Event: "Broken"},
		{Time: "2024-03-15 08:50", Currency: "Japan", Impact: 3, Event: "GDP"},
	}

	ics := GenerateICS(records, stamp)

	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 VEVENTs, got %d", n)
	}
	if !strings.Contains(ics, "DTSTART;TZID=Australia/Sydney:20240315T113000") {
		t.Error("missing Australia start time")
	}
	if !strings.Contains(ics, "DTSTART;TZID=Asia/Tokyo:20240315T085000") {
		t.Error("missing Japan start time")
	}
	if strings.Contains(ics, "Atlantis") || strings.Contains(ics, "Broken") {
		t.Error("unresolvable records should be left out")
	}
}

func TestGenerateICS_Empty(t *testing.T) {
	ics := GenerateICS(nil, stamp)
	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Errorf("unexpected empty calendar: %q", ics)
	}
	if strings.Contains(ics, "VEVENT") {
		t.Error("empty calendar should not contain events")
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple text", "simple text"},
		{"text, with comma", "text\\, with comma"},
		{"text; with semicolon", "text\\; with semicolon"},
		{"text\nwith newline", "text\\nwith newline"},
		{"back\\slash", "back\\\\slash"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeICS(tt.input); got != tt.want {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	tests := map[int]int{3: 1, 2: 5, 1: 9, 0: 0}
	for impact, want := range tests {
		if got := priority(impact); got != want {
			t.Errorf("priority(%d) = %d, want %d", impact, got, want)
		}
	}
}
