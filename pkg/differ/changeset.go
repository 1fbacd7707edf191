// Package differ compares normalized feed entries against the
// system-of-record snapshot and produces the run's minimal changeset.
package differ

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/inventory"
)

// Class is the per-key classification the diff assigns.
type Class string

const (
	// ClassUnchanged means the feed value equals the snapshot value.
	ClassUnchanged Class = "unchanged"
	// ClassUpdated means at least one compared field differs.
	ClassUpdated Class = "updated"
	// ClassUnknownKey means the key is absent from the snapshot.
	ClassUnknownKey Class = "unknown-key"
)

// ChangeRecord is an audited before/after delta for one ISBN. Both fields
// are captured even when only one changed; the "before" values always equal
// the snapshot values at diff time. Immutable once created.
type ChangeRecord struct {
	ISBN      string
	OldStock  int
	NewStock  int
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
	ChangedAt time.Time
}

// FieldChange is one field's before/after pair, for logging and reports.
type FieldChange struct {
	Field  string
	Before string
	After  string
}

// FieldChanges returns the before/after pairs for both compared fields,
// including the one that did not change.
func (r ChangeRecord) FieldChanges() []FieldChange {
	return []FieldChange{
		{Field: inventory.FieldStock, Before: fmt.Sprintf("%d", r.OldStock), After: fmt.Sprintf("%d", r.NewStock)},
		{Field: inventory.FieldPrice, Before: r.OldPrice.String(), After: r.NewPrice.String()},
	}
}

// String renders the delta the way it is logged: "stock 5→3, rrp 10→9.5".
func (r ChangeRecord) String() string {
	parts := make([]string, 0, 2)
	for _, fc := range r.FieldChanges() {
		parts = append(parts, fmt.Sprintf("%s %s→%s", fc.Field, fc.Before, fc.After))
	}
	return fmt.Sprintf("%s: %s", r.ISBN, strings.Join(parts, ", "))
}

// Changeset is the outcome of diffing one run's feed entries against the
// snapshot. Updated is collapsed to one record per key (last-write-wins
// across feeds) and sorted by ISBN for deterministic output. Unknown keeps
// every unknown-key occurrence in input order; the discovery filter
// de-duplicates them.
type Changeset struct {
	Updated []ChangeRecord
	Unknown []inventory.Entry
	Summary Summary
}

// Summary holds changeset statistics. Updated and Unchanged count keys by
// their final last-write-wins classification, so duplicate rows for one
// key contribute once; Rows and Unknown count row occurrences.
type Summary struct {
	Rows      int // entries examined
	Updated   int // keys whose final value differs from the snapshot
	Unchanged int // keys whose final value equals the snapshot
	Unknown   int // unknown-key row occurrences
}

// HasChanges reports whether the changeset contains anything to apply.
func (c *Changeset) HasChanges() bool {
	return len(c.Updated) > 0
}

// String returns a one-line human-readable summary.
func (c *Changeset) String() string {
	if !c.HasChanges() && c.Summary.Unknown == 0 {
		return "no changes detected"
	}
	return fmt.Sprintf("changeset: %d updated, %d unchanged, %d unknown (of %d rows)",
		c.Summary.Updated, c.Summary.Unchanged, c.Summary.Unknown, c.Summary.Rows)
}
