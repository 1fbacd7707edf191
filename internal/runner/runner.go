// Package runner orchestrates one reconciliation run: snapshot load, feed
// ingestion, normalization, diffing, change application, and discovery.
package runner

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbridge/shelfsync/internal/feeds"
	"github.com/bookbridge/shelfsync/pkg/apply"
	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/discovery"
	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/inventory"
	"github.com/bookbridge/shelfsync/pkg/logging"
)

// Store is the system-of-record surface a refresh run needs.
type Store interface {
	apply.Store

	// LoadSnapshot reads the full key/stock/price projection once.
	LoadSnapshot(ctx context.Context) (*inventory.Snapshot, error)

	// InsertCandidates persists discovery candidates.
	InsertCandidates(ctx context.Context, candidates []discovery.Candidate) error
}

// Runner executes refresh runs. One Runner processes one feed snapshot
// against one inventory snapshot; it is not reused across runs.
type Runner struct {
	store    Store
	feeds    feeds.Source
	runID    string
	minStock int
	dryRun   bool
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithDryRun diffs and reports without writing anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithMinStock sets the discovery admission threshold.
func WithMinStock(minStock int) Option {
	return func(r *Runner) {
		r.minStock = minStock
	}
}

// WithLogger sets the runner's logger.
func WithLogger(log *zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = *log
	}
}

// WithClock overrides the run's timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner for one refresh run.
func New(store Store, src feeds.Source, runID string, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		feeds:    src,
		runID:    runID,
		minStock: discovery.DefaultMinStock,
		log:      *logging.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh performs one reconciliation run. Only a failed snapshot load or
// feed listing is fatal; every per-record problem is counted and logged.
func (r *Runner) Refresh(ctx context.Context) (*Report, error) {
	log := r.log.With().Str("run_id", r.runID).Logger()
	report := &Report{RunID: r.runID, DryRun: r.dryRun, StartedAt: r.now()}

	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("entries", snap.Len()).Msg("loaded inventory snapshot")

	names, err := r.feeds.List(ctx)
	if err != nil {
		return nil, err
	}
	// Lexicographic feed order keeps the run deterministic and auditable.
	sort.Strings(names)
	report.Feeds = names
	if len(names) == 0 {
		log.Warn().Msg("no feed files found")
	}

	entries, rejected := r.ingest(ctx, log, snap, names)
	report.Rows = len(entries) + rejected
	report.Rejected = rejected

	cs := differ.New(differ.WithClock(r.now)).Diff(snap, entries)
	log.Info().
		Int("updated", cs.Summary.Updated).
		Int("unchanged", cs.Summary.Unchanged).
		Int("unknown", cs.Summary.Unknown).
		Msg(cs.String())
	report.Updated = cs.Summary.Updated
	report.Unchanged = cs.Summary.Unchanged
	report.Unknown = cs.Summary.Unknown

	filter := discovery.NewFilter(r.minStock, snap, discovery.WithClock(r.now))
	candidates := filter.Candidates(cs.Unknown)
	report.Candidates = len(candidates)

	if r.dryRun {
		log.Info().Msg("dry run, skipping writes")
		report.FinishedAt = r.now()
		return report, nil
	}

	applier := apply.New(r.store, r.runID, &log)
	res, err := applier.Apply(ctx, cs.Updated)
	if err != nil {
		return nil, err
	}
	report.Applied = res.Applied
	report.NoOps = res.NoOps
	report.Failed = res.Failed
	report.AuditIncomplete = res.AuditIncomplete

	if len(candidates) > 0 {
		if err := r.store.InsertCandidates(ctx, candidates); err != nil {
			// Candidates are advisory; losing them does not invalidate
			// the applied changeset.
			log.Error().Err(err).Msg("writing discovery candidates failed")
			report.CandidatesFailed = true
		} else {
			log.Info().Int("candidates", len(candidates)).Msg("recorded discovery candidates")
		}
	}

	report.FinishedAt = r.now()
	log.Info().
		Int("applied", report.Applied).
		Int("no_ops", report.NoOps).
		Int("failed", report.Failed).
		Int("candidates", report.Candidates).
		Msg("reconciliation run finished")
	return report, nil
}

// ingest fetches every feed and normalizes its rows. The normalization
// mode follows snapshot membership: known keys get the strict update
// rules, unknown keys the lenient discovery rules.
func (r *Runner) ingest(ctx context.Context, log zerolog.Logger, snap *inventory.Snapshot, names []string) ([]inventory.Entry, int) {
	var entries []inventory.Entry
	rejected := 0

	for _, name := range names {
		records, err := r.feeds.Fetch(ctx, name)
		if err != nil {
			// One unreadable feed never aborts the remaining feeds.
			log.Error().Err(err).Str("feed", name).Msg("fetching feed failed, skipped")
			continue
		}
		log.Info().Str("feed", name).Int("rows", len(records)).Msg("parsed feed")

		for _, rec := range records {
			mode := inventory.ModeDiscovery
			if snap.Has(trimKey(rec.Fields)) {
				mode = inventory.ModeUpdate
			}
			entry, rej := inventory.Normalize(rec.Fields, rec.Feed, mode)
			if rej != nil {
				rej.Line = rec.Line
				rejected++
				log.Warn().
					Err(&errors.RecordError{
						Feed:   rej.Feed,
						Key:    rej.ISBN,
						Field:  rej.Field,
						Raw:    rej.Raw,
						Reason: rej.Reason,
					}).
					Int("line", rej.Line).
					Msg("record rejected")
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, rejected
}

// trimKey extracts the trimmed key field for membership routing.
func trimKey(fields map[string]string) string {
	return strings.TrimSpace(fields[inventory.FieldISBN])
}
