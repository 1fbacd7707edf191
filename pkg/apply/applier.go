// Package apply writes a run's changeset to the system-of-record and
// persists the audit trail. Each record is applied atomically on its own;
// the run never rolls back a live write.
package apply

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/logging"
)

// Store is the narrow system-of-record surface the applier needs.
type Store interface {
	// Entry returns the current stock/price for an ISBN.
	Entry(ctx context.Context, isbn string) (stock int, price decimal.Decimal, err error)

	// UpdateEntry writes new stock/price for an ISBN.
	UpdateEntry(ctx context.Context, isbn string, stock int, price decimal.Decimal) error

	// AppendChange appends one audit row for the given run.
	AppendChange(ctx context.Context, runID string, rec differ.ChangeRecord) error
}

// Result summarizes one Apply pass.
type Result struct {
	// Applied counts records whose live write and audit both succeeded.
	Applied int

	// NoOps counts records whose target value already matched the
	// system-of-record. Logged, not audited, not an error.
	NoOps int

	// Failed counts records whose live write failed. Skipped, never fatal.
	Failed int

	// AuditIncomplete lists ISBNs whose live write succeeded but whose
	// audit append failed. The live update is kept; the gap is surfaced
	// for operator follow-up rather than rolled back.
	AuditIncomplete []string
}

// Applier applies ChangeRecords to a Store under an explicit run ID.
type Applier struct {
	store Store
	runID string
	log   zerolog.Logger
}

// New creates an Applier. The run ID is threaded into every audit row.
func New(store Store, runID string, log *zerolog.Logger) *Applier {
	if log == nil {
		log = logging.Default()
	}
	return &Applier{
		store: store,
		runID: runID,
		log:   log.With().Str("run_id", runID).Logger(),
	}
}

// Apply writes each record in order. It is idempotent: the current
// system-of-record value is checked before writing, so applying the same
// record twice yields one audit row and a second no-op log entry.
func (a *Applier) Apply(ctx context.Context, records []differ.ChangeRecord) (*Result, error) {
	res := &Result{}

	for _, rec := range records {
		log := a.log.With().Str("isbn", rec.ISBN).Logger()

		stock, price, err := a.store.Entry(ctx, rec.ISBN)
		if err != nil {
			if errors.IsNotFound(err) {
				log.Error().Msg("key absent from system-of-record, record skipped")
			} else {
				log.Error().Err(err).Msg("reading current entry failed, record skipped")
			}
			res.Failed++
			continue
		}

		if stock == rec.NewStock && price.Equal(rec.NewPrice) {
			log.Info().
				Int("stock", stock).
				Str("rrp", price.String()).
				Msg("value already matches target, no-op")
			res.NoOps++
			continue
		}

		if err := a.store.UpdateEntry(ctx, rec.ISBN, rec.NewStock, rec.NewPrice); err != nil {
			log.Error().Err(err).Msg("live write failed, record skipped")
			res.Failed++
			continue
		}

		for _, fc := range rec.FieldChanges() {
			log.Info().
				Str("field", fc.Field).
				Str("before", fc.Before).
				Str("after", fc.After).
				Msg("applied change")
		}

		if err := a.store.AppendChange(ctx, a.runID, rec); err != nil {
			// The live write stands; losing an inventory update would be
			// worse than an audit gap. Surface it loudly instead.
			log.Warn().Err(err).Msg("audit-incomplete: live write applied but audit append failed")
			res.AuditIncomplete = append(res.AuditIncomplete, rec.ISBN)
		}
		res.Applied++
	}

	return res, nil
}
