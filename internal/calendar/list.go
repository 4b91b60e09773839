package calendar

import (
	"sort"
	"time"
)

// ListEntry is one row of the chronological session list.
type ListEntry struct {
	Event
	IsPast bool
}

// BuildList orders events by start time, breaking ties by id, and marks the
// ones that started before now. It works on a copy and applies no filtering.
func BuildList(events []Event, now time.Time) []ListEntry {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	SortEvents(ordered)

	entries := make([]ListEntry, len(ordered))
	for i, event := range ordered {
		entries[i] = ListEntry{Event: event, IsPast: event.Start.Before(now)}
	}
	return entries
}

// SortEvents sorts events in place by start time, then id.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return startsBefore(events[i], events[j])
	})
}

func startsBefore(a, b Event) bool {
	if a.Start.Equal(b.Start) {
		return a.ID < b.ID
	}
	return a.Start.Before(b.Start)
}
