// Package discovery identifies feed records whose ISBN is entirely absent
// from the system-of-record and admits them as onboarding candidates when
// they pass the minimum-stock threshold.
package discovery

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/inventory"
)

// DefaultMinStock is the admission threshold used when none is configured.
const DefaultMinStock = 4

// Candidate is a proposed new inventory entity. Written once, never
// updated; a later re-discovery of the same key is a no-op.
type Candidate struct {
	ISBN         string
	Stock        int
	Price        *decimal.Decimal // nil when the feed carried no price
	Title        string
	Author       string
	Publisher    string
	DiscoveredAt time.Time
	SourceFeed   string
}

// Filter admits unknown-key entries by stock threshold and de-duplicates
// them for the duration of one run. Not safe for concurrent use; the run
// is sequential by design.
type Filter struct {
	minStock int
	seen     map[string]struct{}
	now      func() time.Time
}

// Option configures a Filter.
type Option func(*Filter)

// WithClock overrides the discovery timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		f.now = now
	}
}

// NewFilter creates a Filter with the given admission threshold. The
// de-duplication set is seeded from the snapshot's keys, so a key present
// in the system-of-record can never become a candidate.
func NewFilter(minStock int, snap *inventory.Snapshot, opts ...Option) *Filter {
	f := &Filter{
		minStock: minStock,
		seen:     make(map[string]struct{}, snap.Len()),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, isbn := range snap.ISBNs() {
		f.seen[isbn] = struct{}{}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Consider evaluates one unknown-key entry. It returns the candidate and
// true on admission. The threshold is inclusive: stock equal to the
// minimum is admitted. Every admitted key joins the de-duplication set, so
// the same ISBN appearing in multiple feeds or rows yields one candidate.
func (f *Filter) Consider(e inventory.Entry) (Candidate, bool) {
	if _, ok := f.seen[e.ISBN]; ok {
		return Candidate{}, false
	}
	if e.Stock < f.minStock {
		return Candidate{}, false
	}
	f.seen[e.ISBN] = struct{}{}
	return Candidate{
		ISBN:         e.ISBN,
		Stock:        e.Stock,
		Price:        e.Price,
		Title:        e.Title,
		Author:       e.Author,
		Publisher:    e.Publisher,
		DiscoveredAt: f.now(),
		SourceFeed:   e.Feed,
	}, true
}

// Candidates evaluates entries in order and returns the admitted ones.
func (f *Filter) Candidates(entries []inventory.Entry) []Candidate {
	var out []Candidate
	for _, e := range entries {
		if c, ok := f.Consider(e); ok {
			out = append(out, c)
		}
	}
	return out
}
