package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Outcome is the result of one step.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Counters captures the engine-owned iteration counters.
type Counters struct {
	Editing  int `json:"editing"`
	Writing  int `json:"writing"`
	Critique int `json:"critique"`
}

// CountersOf reads the counters from s.
func CountersOf(s *State) Counters {
	if s == nil {
		return Counters{}
	}
	return Counters{Editing: s.EditingIteration, Writing: s.WritingIteration, Critique: s.CritiqueCycle}
}

// LedgerEntry records one step. Entries are written once and never edited.
type LedgerEntry struct {
	Index int    `json:"index"`
	Role  Role   `json:"role"`
	Visit int    `json:"visit"`
	Model string `json:"model,omitempty"`

	Outcome  Outcome  `json:"outcome"`
	Edge     Edge     `json:"edge,omitempty"`
	Next     Role     `json:"next,omitempty"`
	Counters Counters `json:"counters"`

	Input   *State     `json:"input"`
	Output  *State     `json:"output,omitempty"`
	Changes *StateDiff `json:"changes,omitempty"`
	Error   string     `json:"error,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Label is the human readable context of the step, e.g. "Editor #2".
func (e LedgerEntry) Label() string {
	return fmt.Sprintf("%s #%d", e.Role.Title(), e.Visit)
}

// Ledger is the append-only execution record of a run.
// One goroutine appends while any number of readers inspect it.
type Ledger struct {
	mu      sync.RWMutex
	entries []LedgerEntry
}

// NewLedger creates a ledger seeded with entries (used when loading a run).
func NewLedger(entries ...LedgerEntry) *Ledger {
	return &Ledger{entries: append([]LedgerEntry(nil), entries...)}
}

// Append stores entry, assigning its index, and returns that index.
func (l *Ledger) Append(entry LedgerEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Index = len(l.entries)
	l.entries = append(l.entries, entry)
	return entry.Index
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the entry at index i.
func (l *Ledger) At(i int) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return LedgerEntry{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy of all entries in order.
func (l *Ledger) Entries() []LedgerEntry {
	return l.Since(0)
}

// Since returns the entries from index i onwards.
func (l *Ledger) Since(i int) []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(l.entries) {
		return nil
	}
	return append([]LedgerEntry(nil), l.entries[i:]...)
}

// ByRole returns the entries produced by role, in order.
func (l *Ledger) ByRole(role Role) []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []LedgerEntry
	for _, e := range l.entries {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// Completed returns the number of entries whose step succeeded.
func (l *Ledger) Completed() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.Outcome == OutcomeCompleted {
			n++
		}
	}
	return n
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	entries := l.Entries()
	if entries == nil {
		entries = []LedgerEntry{}
	}
	return json.Marshal(entries)
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var entries []LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	return nil
}
