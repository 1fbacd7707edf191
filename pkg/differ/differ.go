package differ

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/inventory"
)

// Differ detects changes between feed entries and the snapshot.
type Differ struct {
	now func() time.Time
}

// Option configures a Differ.
type Option func(*Differ)

// WithClock overrides the timestamp source for ChangeRecords.
func WithClock(now func() time.Time) Option {
	return func(d *Differ) {
		d.now = now
	}
}

// New creates a Differ with default settings.
func New(opts ...Option) *Differ {
	d := &Differ{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classify returns the class of one entry against the snapshot.
func (d *Differ) Classify(snap *inventory.Snapshot, e inventory.Entry) Class {
	current, ok := snap.Get(e.ISBN)
	if !ok {
		return ClassUnknownKey
	}
	if changed(current, e) {
		return ClassUpdated
	}
	return ClassUnchanged
}

// Diff compares entries against the snapshot in input order. The snapshot
// is the constant comparison baseline for the whole run; when the same key
// appears more than once, the later entry's value is authoritative for the
// resulting ChangeRecord. Updated records are returned sorted by ISBN so
// the same input set always yields the same changeset.
func (d *Differ) Diff(snap *inventory.Snapshot, entries []inventory.Entry) *Changeset {
	cs := &Changeset{}
	cs.Summary.Rows = len(entries)

	// Final per-key outcome under last-write-wins.
	latest := make(map[string]*ChangeRecord)
	known := make(map[string]struct{})

	for _, e := range entries {
		current, ok := snap.Get(e.ISBN)
		if !ok {
			cs.Unknown = append(cs.Unknown, e)
			cs.Summary.Unknown++
			continue
		}
		known[e.ISBN] = struct{}{}

		if !changed(current, e) {
			// A later identical row supersedes any earlier diff for the key.
			if _, seen := latest[e.ISBN]; seen {
				delete(latest, e.ISBN)
			}
			continue
		}

		rec := &ChangeRecord{
			ISBN:      e.ISBN,
			OldStock:  current.Stock,
			NewStock:  e.Stock,
			OldPrice:  current.Price,
			NewPrice:  newPrice(current, e),
			ChangedAt: d.now(),
		}
		latest[e.ISBN] = rec
	}

	for _, rec := range latest {
		cs.Updated = append(cs.Updated, *rec)
	}
	sort.Slice(cs.Updated, func(i, j int) bool {
		return cs.Updated[i].ISBN < cs.Updated[j].ISBN
	})

	cs.Summary.Updated = len(cs.Updated)
	cs.Summary.Unchanged = len(known) - len(latest)

	return cs
}

// changed reports whether a compared field differs. Stock uses exact
// integer equality; price uses exact decimal equality, no tolerance
// banding. An entry without a price never produces a price change.
func changed(current inventory.SnapshotEntry, e inventory.Entry) bool {
	if current.Stock != e.Stock {
		return true
	}
	if e.Price == nil {
		return false
	}
	return !current.Price.Equal(*e.Price)
}

// newPrice resolves the "after" price, falling back to the snapshot value
// when the entry carries none.
func newPrice(current inventory.SnapshotEntry, e inventory.Entry) decimal.Decimal {
	if e.Price == nil {
		return current.Price
	}
	return *e.Price
}
