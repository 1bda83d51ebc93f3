package event

import (
	"sort"
	"time"
)

// Snapshot is a set of records indexed by natural key
type Snapshot struct {
	Records map[Key]*Record
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Records: make(map[Key]*Record),
	}
}

// CreateSnapshot indexes records by key. A later record with the same key replaces an earlier one.
func CreateSnapshot(records []*Record) *Snapshot {
	snap := NewSnapshot()
	for _, r := range records {
		snap.Records[r.Key()] = r
	}
	return snap
}

// Collapse drops repeated keys, keeping the last record for each key at the
// position where the key first appeared.
func Collapse(records []*Record) []*Record {
	index := make(map[Key]int, len(records))
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if i, ok := index[key]; ok {
			out[i] = r
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// DiffResult contains the results of comparing fetched records against stored ones
type DiffResult struct {
	New       []*Record
	Revised   []*Record
	Changes   []*Change
	Unchanged int
}

// Diff classifies current records as new, revised or unchanged relative to previous
func Diff(previous *Snapshot, current []*Record) *DiffResult {
	result := &DiffResult{
		New:     make([]*Record, 0),
		Revised: make([]*Record, 0),
	}

	if previous == nil {
		previous = NewSnapshot()
	}

	for _, r := range Collapse(current) {
		old, exists := previous.Records[r.Key()]
		switch {
		case !exists:
			result.New = append(result.New, r)
		case !old.SameValues(r):
			result.Revised = append(result.Revised, r)
			result.Changes = append(result.Changes, DetectChanges(old, r)...)
		default:
			result.Unchanged++
		}
	}

	sortRecords(result.New)
	sortRecords(result.Revised)

	return result
}

func sortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Time != records[j].Time {
			return records[i].Time < records[j].Time
		}
		if records[i].Currency != records[j].Currency {
			return records[i].Currency < records[j].Currency
		}
		return records[i].Event < records[j].Event
	})
}

// Change represents one value that moved between fetches
type Change struct {
	Key        Key       `json:"key"`
	Field      string    `json:"field"` // "actual", "forecast", "previous"
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	DetectedAt time.Time `json:"detected_at"`
}

// DetectChanges compares the mutable values of two records with the same key
func DetectChanges(previous, current *Record) []*Change {
	var changes []*Change
	now := time.Now().UTC()

	fields := []struct {
		name     string
		old, new string
	}{
		{"actual", previous.Actual, current.Actual},
		{"forecast", previous.Forecast, current.Forecast},
		{"previous", previous.Previous, current.Previous},
	}

	for _, f := range fields {
		if f.old == f.new {
			continue
		}
		changes = append(changes, &Change{
			Key:        current.Key(),
			Field:      f.name,
			OldValue:   f.old,
			NewValue:   f.new,
			DetectedAt: now,
		})
	}

	return changes
}
