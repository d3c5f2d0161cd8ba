package audit

import "testing"

func TestAppend_EvictsOldestOnceAtCapacity(t *testing.T) {
	l := New(3)
	for i := 0; i < 5; i++ {
		l.Append(Entry{TickCount: int64(i), ActionType: "tick"})
	}

	entries := l.All()
	if len(entries) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(entries))
	}
	if entries[0].TickCount != 2 {
		t.Errorf("oldest surviving entry TickCount = %d, want 2", entries[0].TickCount)
	}
	if entries[2].TickCount != 4 {
		t.Errorf("newest entry TickCount = %d, want 4", entries[2].TickCount)
	}
}

func TestAppend_BelowCapacityKeepsEverything(t *testing.T) {
	l := New(10)
	for i := 0; i < 3; i++ {
		l.Append(Entry{TickCount: int64(i)})
	}
	if len(l.All()) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(l.All()))
	}
}

func TestAll_ReturnsASnapshotNotTheBackingSlice(t *testing.T) {
	l := New(5)
	l.Append(Entry{TickCount: 1})
	snap := l.All()
	snap[0].TickCount = 999

	if l.All()[0].TickCount != 1 {
		t.Errorf("mutating the returned snapshot mutated the log's internal state")
	}
}

func TestReset_ClearsEntries(t *testing.T) {
	l := New(5)
	l.Append(Entry{TickCount: 1})
	l.Reset()
	if len(l.All()) != 0 {
		t.Fatalf("Reset did not clear entries")
	}
}

func TestReset_ThenAppendStillRespectsCapacity(t *testing.T) {
	l := New(2)
	l.Append(Entry{TickCount: 1})
	l.Reset()
	for i := 0; i < 5; i++ {
		l.Append(Entry{TickCount: int64(i)})
	}
	if len(l.All()) != 2 {
		t.Fatalf("len(All()) after reset+refill = %d, want 2", len(l.All()))
	}
}
