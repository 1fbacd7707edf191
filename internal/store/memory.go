package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/discovery"
	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/inventory"
	"github.com/bookbridge/shelfsync/pkg/marketplace"
)

// Memory is an in-memory store implementing the same surface as Postgres.
// It backs tests and carries failure-injection hooks for exercising the
// partial-failure policies.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]inventory.SnapshotEntry
	changes    []AuditRow
	candidates map[string]discovery.Candidate

	// Failure injection for tests.
	FailSnapshot bool
	FailUpdate   bool
	FailAudit    bool
}

// AuditRow is one persisted change plus its latest propagation outcome.
type AuditRow struct {
	RunID   string
	Record  differ.ChangeRecord
	Outcome *marketplace.Outcome
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[string]inventory.SnapshotEntry),
		candidates: make(map[string]discovery.Candidate),
	}
}

// Seed sets the current value for one ISBN.
func (m *Memory) Seed(isbn string, stock int, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[isbn] = inventory.SnapshotEntry{Stock: stock, Price: price}
}

// LoadSnapshot copies the current state into an immutable Snapshot.
func (m *Memory) LoadSnapshot(_ context.Context) (*inventory.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSnapshot {
		return nil, errors.WrapSource("inventory database", errors.New("injected failure"))
	}
	return inventory.NewSnapshot(m.entries), nil
}

// Entry returns the current stock/price for one ISBN.
func (m *Memory) Entry(_ context.Context, isbn string) (int, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[isbn]
	if !ok {
		return 0, decimal.Zero, errors.ErrNotFound
	}
	return e.Stock, e.Price, nil
}

// UpdateEntry writes new stock/price for one ISBN.
func (m *Memory) UpdateEntry(_ context.Context, isbn string, stock int, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdate {
		return errors.New("injected update failure")
	}
	m.entries[isbn] = inventory.SnapshotEntry{Stock: stock, Price: price}
	return nil
}

// AppendChange appends one audit row.
func (m *Memory) AppendChange(_ context.Context, runID string, rec differ.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAudit {
		return errors.New("injected audit failure")
	}
	m.changes = append(m.changes, AuditRow{RunID: runID, Record: rec})
	return nil
}

// InsertCandidates stores candidates, skipping keys already present.
func (m *Memory) InsertCandidates(_ context.Context, candidates []discovery.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candidates {
		if _, ok := m.candidates[c.ISBN]; ok {
			continue
		}
		m.candidates[c.ISBN] = c
	}
	return nil
}

// PendingChanges returns audit rows never marked successfully propagated.
func (m *Memory) PendingChanges(_ context.Context, runID string) ([]differ.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []differ.ChangeRecord
	for _, row := range m.changes {
		if row.RunID != runID {
			continue
		}
		if row.Outcome != nil && row.Outcome.Success {
			continue
		}
		pending = append(pending, row.Record)
	}
	return pending, nil
}

// RecordOutcome attaches the latest propagation outcome to the audit row.
func (m *Memory) RecordOutcome(_ context.Context, runID string, outcome marketplace.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.changes {
		if m.changes[i].RunID == runID && m.changes[i].Record.ISBN == outcome.ISBN {
			o := outcome
			m.changes[i].Outcome = &o
		}
	}
	return nil
}

// Changes returns a copy of the audit rows, for assertions.
func (m *Memory) Changes() []AuditRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditRow, len(m.changes))
	copy(out, m.changes)
	return out
}

// Candidates returns a copy of the stored candidates, for assertions.
func (m *Memory) Candidates() map[string]discovery.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]discovery.Candidate, len(m.candidates))
	for isbn, c := range m.candidates {
		out[isbn] = c
	}
	return out
}
