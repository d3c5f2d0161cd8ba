// Package audit is the fixed-capacity audit log: every action handler
// records an entry here, even on failure (spec.md §4.13, §4.14).
package audit

import "sync"

// Entry is one audit record.
type Entry struct {
	TickCount  int64          `json:"tick_count"`
	Time       float64        `json:"time"`
	Source     string         `json:"source"` // "api" | "scenario" | "agent"
	ActionType string         `json:"action_type"`
	Params     map[string]any `json:"params"`
	Result     string         `json:"result"` // "ok" or a sentinel-kind label
}

// Log is a ring buffer of fixed capacity; the oldest entry is dropped on
// insert once full. Appends never fail.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New creates a Log with the given capacity.
func New(capacity int) *Log {
	return &Log{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

// Append records one entry, dropping the oldest if the log is full.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, e)
}

// All returns a snapshot of every entry, oldest first.
func (l *Log) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears the log, for Simulator.reset().
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
