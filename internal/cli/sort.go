package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByTime     SortOrder = "time"
	SortByImpact   SortOrder = "impact"
	SortByCurrency SortOrder = "currency"
)

// sortRecords sorts a slice of records based on the specified sort order
func sortRecords(records []*event.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByTime:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByTime(records[i], records[j])
		})
	case SortByImpact:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Impact != records[j].Impact {
				return records[i].Impact > records[j].Impact
			}
			// If impacts are equal, sort by time
			return compareByTime(records[i], records[j])
		})
	case SortByCurrency:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Currency != records[j].Currency {
				return records[i].Currency < records[j].Currency
			}
			return compareByTime(records[i], records[j])
		})
	}
}

// compareByTime compares two records by the instant they are released.
// Local times of different countries are not comparable as strings, so they are
// resolved through each country's zone first.
func compareByTime(i, j *event.Record) bool {
	ti, errI := event.LocalTime(i)
	tj, errJ := event.LocalTime(j)

	// If both times are valid, compare them
	if errI == nil && errJ == nil {
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return strings.ToLower(i.Event) < strings.ToLower(j.Event)
	}

	// If only one time is valid, put the valid one first
	if errI == nil {
		return true
	}
	if errJ == nil {
		return false
	}

	if i.Time != j.Time {
		return i.Time < j.Time
	}
	return strings.ToLower(i.Event) < strings.ToLower(j.Event)
}
