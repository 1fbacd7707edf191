// Package propagate pushes audited inventory changes to the external
// marketplace, strictly sequentially, pacing every external call to honor
// the service's request-rate ceiling.
package propagate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/logging"
	"github.com/bookbridge/shelfsync/pkg/marketplace"
)

// DefaultInterval is the cool-down enforced between marketplace calls.
const DefaultInterval = time.Second

// Ledger is the audit-store surface the worker needs: which changes still
// await propagation, and where to record each attempt's outcome.
type Ledger interface {
	PendingChanges(ctx context.Context, runID string) ([]differ.ChangeRecord, error)
	RecordOutcome(ctx context.Context, runID string, outcome marketplace.Outcome) error
}

// Pacer gates external calls. *rate.Limiter satisfies it; tests inject a
// counting fake so the one-call-per-interval policy is verifiable without
// wall-clock sleep.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Summary tallies one propagation pass. Failures are data, not process
// failure: the run exits zero even when every record failed.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Worker propagates pending ChangeRecords one at a time. It never issues
// concurrent external calls; ordering within a run is the ledger's order.
type Worker struct {
	client marketplace.Client
	ledger Ledger
	pacer  Pacer
	log    zerolog.Logger
	now    func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the cool-down between external calls.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		w.pacer = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithPacer injects a custom pacer.
func WithPacer(p Pacer) Option {
	return func(w *Worker) {
		w.pacer = p
	}
}

// WithClock overrides the outcome timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

// WithLogger sets the worker's logger.
func WithLogger(log *zerolog.Logger) Option {
	return func(w *Worker) {
		w.log = *log
	}
}

// New creates a Worker with the default one-second pacing.
func New(client marketplace.Client, ledger Ledger, opts ...Option) *Worker {
	w := &Worker{
		client: client,
		ledger: ledger,
		pacer:  rate.NewLimiter(rate.Every(DefaultInterval), 1),
		log:    *logging.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run propagates every pending change for the run. Only an unreadable
// ledger is fatal; per-record failures are recorded as outcomes and remain
// eligible for retry on a future run. No record is retried within the same
// run.
func (w *Worker) Run(ctx context.Context, runID string) (*Summary, error) {
	log := w.log.With().
		Str("run_id", runID).
		Str("session", uuid.NewString()).
		Logger()

	pending, err := w.ledger.PendingChanges(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		log.Info().Msg("no pending changes to propagate")
		return &Summary{}, nil
	}
	log.Info().Int("pending", len(pending)).Msg("starting marketplace propagation")

	sum := &Summary{}
	for _, rec := range pending {
		outcome, err := w.attempt(ctx, log, rec)
		if err != nil {
			// Only pacing interruption (context cancellation) lands here.
			return sum, err
		}

		sum.Attempted++
		if outcome.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}

		if err := w.ledger.RecordOutcome(ctx, runID, outcome); err != nil {
			log.Error().Err(err).Str("isbn", rec.ISBN).Msg("recording propagation outcome failed")
		}
	}

	log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Msg("marketplace propagation finished")
	return sum, nil
}

// attempt resolves and pushes one record. Every external call is preceded
// by a pacer wait, so consecutive calls are at least one interval apart
// whether they succeed or fail.
func (w *Worker) attempt(ctx context.Context, log zerolog.Logger, rec differ.ChangeRecord) (marketplace.Outcome, error) {
	outcome := marketplace.Outcome{ISBN: rec.ISBN, AttemptedAt: w.now()}
	log = log.With().Str("isbn", rec.ISBN).Logger()

	if err := w.pacer.Wait(ctx); err != nil {
		return outcome, err
	}
	itemID, found, err := w.client.FindListing(ctx, rec.ISBN)
	if err != nil {
		log.Error().Err(err).Msg("marketplace lookup failed")
		outcome.Detail = err.Error()
		return outcome, nil
	}
	if !found {
		log.Warn().Msg("no marketplace listing for key")
		outcome.Detail = marketplace.DetailEntityNotFound
		return outcome, nil
	}

	if err := w.pacer.Wait(ctx); err != nil {
		return outcome, err
	}
	status, detail, err := w.client.ReviseListing(ctx, marketplace.Revision{
		ItemID:   itemID,
		Price:    rec.NewPrice,
		Quantity: rec.NewStock,
	})
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("marketplace update failed")
		outcome.Detail = err.Error()
		return outcome, nil
	}

	switch status {
	case marketplace.StatusSuccess, marketplace.StatusWarning:
		// Success-with-warning counts as success; keep the warning text.
		outcome.Success = true
		outcome.Detail = detail
		log.Info().
			Str("item_id", itemID).
			Int("quantity", rec.NewStock).
			Str("price", rec.NewPrice.String()).
			Str("status", string(status)).
			Msg("marketplace listing updated")
	default:
		outcome.Detail = detail
		log.Error().Str("item_id", itemID).Str("detail", detail).Msg("marketplace rejected update")
	}
	return outcome, nil
}
