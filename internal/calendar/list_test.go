package calendar

import (
	"testing"
	"time"
)

func TestBuildListOrdersByStartThenID(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "c", Start: start.Add(time.Hour)},
		{ID: "b", Start: start},
		{ID: "a", Start: start},
		{ID: "d", Start: start.Add(-time.Hour)},
	}

	entries := BuildList(events, start)

	want := []string{"d", "a", "b", "c"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, id := range want {
		if entries[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, entries[i].ID)
		}
	}
	if !entries[0].IsPast {
		t.Fatalf("expected session before now to be marked past")
	}
	if entries[1].IsPast || entries[2].IsPast {
		t.Fatalf("session starting exactly now is not past")
	}
	if events[0].ID != "c" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestBuildListIsIdempotent(t *testing.T) {
	t.Parallel()

	events := sampleEvents()
	now := time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

	first := BuildList(events, now)
	again := make([]Event, len(first))
	for i, entry := range first {
		again[i] = entry.Event
	}
	second := BuildList(again, now)

	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuildListEmpty(t *testing.T) {
	t.Parallel()

	if got := BuildList(nil, time.Now()); len(got) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(got))
	}
}
