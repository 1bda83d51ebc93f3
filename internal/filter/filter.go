// Package filter narrows stored calendar records for display and export.
//
// Criteria combine with AND; within a list criterion any entry may match:
//   - Countries: record currency equals one of the names (case-insensitive)
//   - MinImpact: record impact is at least this level
//   - Events: record title contains one of the substrings (case-insensitive)
//   - From/To: record local time falls within the HH:mm window (inclusive)
//   - ReleasedOnly: record has an actual value
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Countries = []string{"United States", "Eurozone"}
//	f.MinImpact = 2
//
//	filtered := f.Apply(records)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

// Filter represents record filtering criteria
type Filter struct {
	Countries    []string `json:"countries,omitempty"`
	MinImpact    int      `json:"min_impact,omitempty"`
	Events       []string `json:"events,omitempty"`
	From         string   `json:"from,omitempty"` // HH:mm
	To           string   `json:"to,omitempty"`   // HH:mm
	ReleasedOnly bool     `json:"released_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Countries: []string{},
		Events:    []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return len(f.Countries) == 0 &&
		f.MinImpact <= 0 &&
		len(f.Events) == 0 &&
		f.From == "" &&
		f.To == "" &&
		!f.ReleasedOnly
}

// Validate checks criteria that can be malformed
func (f *Filter) Validate() error {
	for _, c := range f.Countries {
		if !isAllowedFold(c) {
			return fmt.Errorf("unknown country %q (choose from: %s)", c, strings.Join(event.Countries(), ", "))
		}
	}
	if f.MinImpact < 0 || f.MinImpact > event.MaxImpact {
		return fmt.Errorf("min impact must be between 0 and %d, got %d", event.MaxImpact, f.MinImpact)
	}
	for _, hm := range []string{f.From, f.To} {
		if hm != "" && !validClock(hm) {
			return fmt.Errorf("invalid time of day %q (want HH:mm)", hm)
		}
	}
	return nil
}

// Matches checks if a record matches all active filter criteria.
// An empty filter matches all records.
func (f *Filter) Matches(r *event.Record) bool {
	if f.IsEmpty() {
		return true
	}

	if len(f.Countries) > 0 {
		matched := false
		for _, c := range f.Countries {
			if strings.EqualFold(r.Currency, c) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if r.Impact < f.MinImpact {
		return false
	}

	if len(f.Events) > 0 {
		matched := false
		titleLower := strings.ToLower(r.Event)
		for _, e := range f.Events {
			if strings.Contains(titleLower, strings.ToLower(e)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// Record.Time is "YYYY-MM-DD HH:mm"; the clock part compares lexically
	clock := clockOf(r.Time)
	if f.From != "" && clock < f.From {
		return false
	}
	if f.To != "" && clock > f.To {
		return false
	}

	if f.ReleasedOnly && strings.TrimSpace(r.Actual) == "" {
		return false
	}

	return true
}

// Apply applies the filter to a list of records and returns only matching records.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(records []*event.Record) []*event.Record {
	if f.IsEmpty() {
		return records
	}

	filtered := make([]*event.Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Countries: Japan, China | Impact >= 2 | Released only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if len(f.Countries) > 0 {
		parts = append(parts, fmt.Sprintf("Countries: %s", strings.Join(f.Countries, ", ")))
	}
	if f.MinImpact > 0 {
		parts = append(parts, fmt.Sprintf("Impact >= %d", f.MinImpact))
	}
	if len(f.Events) > 0 {
		parts = append(parts, fmt.Sprintf("Events: %s", strings.Join(f.Events, ", ")))
	}
	if f.From != "" {
		parts = append(parts, fmt.Sprintf("From: %s", f.From))
	}
	if f.To != "" {
		parts = append(parts, fmt.Sprintf("To: %s", f.To))
	}
	if f.ReleasedOnly {
		parts = append(parts, "Released only")
	}

	return strings.Join(parts, " | ")
}

func clockOf(localTime string) string {
	if i := strings.IndexByte(localTime, ' '); i >= 0 {
		return localTime[i+1:]
	}
	return localTime
}

func validClock(hm string) bool {
	if len(hm) != 5 {
		return false
	}
	_, err := time.Parse("15:04", hm)
	return err == nil
}

func isAllowedFold(country string) bool {
	for _, c := range event.Countries() {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}
