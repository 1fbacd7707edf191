// Package inventory defines the typed inventory records shared by the
// reconciliation pipeline: the normalized Entry produced from raw feed
// rows, and the immutable per-run Snapshot of the system-of-record.
package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Entry is one normalized inventory record keyed by ISBN.
type Entry struct {
	// ISBN is the unique commercial identifier correlating records
	// across the feed, the inventory database, and the marketplace.
	ISBN string

	// Stock is the non-negative number of units on hand.
	Stock int

	// Price is the retail price (RRP). Nil when the source feed omitted
	// it, which is only permitted for discovery evaluation.
	Price *decimal.Decimal

	// Descriptive metadata, optional free text.
	Title     string
	Author    string
	Publisher string

	// Feed names the delimited-text resource this entry came from.
	Feed string
}

// SnapshotEntry is the stock/price projection of one system-of-record row.
type SnapshotEntry struct {
	Stock int
	Price decimal.Decimal
}

// Snapshot is an immutable point-in-time ISBN -> SnapshotEntry mapping,
// loaded once per run. It is never mutated after construction; a new
// Snapshot is loaded for the next run.
type Snapshot struct {
	entries map[string]SnapshotEntry
}

// NewSnapshot builds a Snapshot from a projection map. The map is copied;
// callers may not mutate the Snapshot afterwards through it.
func NewSnapshot(entries map[string]SnapshotEntry) *Snapshot {
	copied := make(map[string]SnapshotEntry, len(entries))
	for isbn, e := range entries {
		copied[isbn] = e
	}
	return &Snapshot{entries: copied}
}

// Get returns the snapshot entry for an ISBN.
func (s *Snapshot) Get(isbn string) (SnapshotEntry, bool) {
	e, ok := s.entries[isbn]
	return e, ok
}

// Has reports whether the ISBN exists in the system-of-record.
func (s *Snapshot) Has(isbn string) bool {
	_, ok := s.entries[isbn]
	return ok
}

// Len returns the number of entries. An empty system-of-record yields a
// valid empty Snapshot, not an error.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// ISBNs returns all keys in sorted order.
func (s *Snapshot) ISBNs() []string {
	isbns := make([]string, 0, len(s.entries))
	for isbn := range s.entries {
		isbns = append(isbns, isbn)
	}
	sort.Strings(isbns)
	return isbns
}
