// Package store persists the system-of-record: the inventory projection,
// the append-only change audit, and the discovery-candidate table. The
// Postgres implementation serves production; Memory serves tests.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/discovery"
	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/inventory"
	"github.com/bookbridge/shelfsync/pkg/marketplace"
)

// candidateBatchSize bounds candidate insert payloads.
const candidateBatchSize = 100

// Postgres is the production system-of-record store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and pings the inventory database. Failure here is
// fatal-setup; there is no diffing without a baseline.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.WrapSource("inventory database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WrapSource("inventory database", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the audit and candidate tables when absent. The
// inventory table itself is owned by the bookseller's upstream tooling.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS inventory_changes (
	run_id                 text        NOT NULL,
	isbn                   text        NOT NULL,
	old_stock              integer     NOT NULL,
	new_stock              integer     NOT NULL,
	old_rrp                numeric     NOT NULL,
	new_rrp                numeric     NOT NULL,
	modified_at            timestamptz NOT NULL,
	marketplace_updated    boolean,
	marketplace_detail     text,
	marketplace_updated_at timestamptz
);
CREATE INDEX IF NOT EXISTS inventory_changes_run_idx ON inventory_changes (run_id, isbn);
CREATE TABLE IF NOT EXISTS new_isbns (
	isbn          text PRIMARY KEY,
	stock         integer     NOT NULL,
	rrp           numeric,
	title         text,
	author        text,
	publisher     text,
	discovered_at timestamptz NOT NULL,
	source_file   text        NOT NULL
);`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return errors.WrapSource("inventory database schema", err)
	}
	return nil
}

// LoadSnapshot reads the full key/stock/price projection in one query.
// An empty inventory yields an empty Snapshot, not an error.
func (p *Postgres) LoadSnapshot(ctx context.Context) (*inventory.Snapshot, error) {
	rows, err := p.pool.Query(ctx, `SELECT isbn, stock, rrp::text FROM inventory`)
	if err != nil {
		return nil, errors.WrapSource("inventory database", err)
	}
	defer rows.Close()

	entries := make(map[string]inventory.SnapshotEntry)
	for rows.Next() {
		var (
			isbn     string
			stock    int
			rawPrice string
		)
		if err := rows.Scan(&isbn, &stock, &rawPrice); err != nil {
			return nil, errors.WrapSource("inventory database", err)
		}
		price, err := decimal.NewFromString(rawPrice)
		if err != nil {
			return nil, errors.WrapSource("inventory database", err)
		}
		entries[isbn] = inventory.SnapshotEntry{Stock: stock, Price: price}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapSource("inventory database", err)
	}
	return inventory.NewSnapshot(entries), nil
}

// Entry returns the current stock/price for one ISBN.
func (p *Postgres) Entry(ctx context.Context, isbn string) (int, decimal.Decimal, error) {
	var (
		stock    int
		rawPrice string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT stock, rrp::text FROM inventory WHERE isbn = $1`, isbn,
	).Scan(&stock, &rawPrice)
	if err == pgx.ErrNoRows {
		return 0, decimal.Zero, errors.ErrNotFound
	}
	if err != nil {
		return 0, decimal.Zero, err
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return stock, price, nil
}

// UpdateEntry writes new stock/price for one ISBN.
func (p *Postgres) UpdateEntry(ctx context.Context, isbn string, stock int, price decimal.Decimal) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE inventory SET stock = $2, rrp = $3 WHERE isbn = $1`,
		isbn, stock, price.String())
	return err
}

// AppendChange appends one audit row. The table is append-only; outcomes
// are attached later by RecordOutcome.
func (p *Postgres) AppendChange(ctx context.Context, runID string, rec differ.ChangeRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO inventory_changes
			(run_id, isbn, old_stock, new_stock, old_rrp, new_rrp, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, rec.ISBN, rec.OldStock, rec.NewStock,
		rec.OldPrice.String(), rec.NewPrice.String(), rec.ChangedAt)
	return err
}

// InsertCandidates writes discovery candidates in batches. Conflicting
// keys are skipped, so re-discovery across runs stays a no-op.
func (p *Postgres) InsertCandidates(ctx context.Context, candidates []discovery.Candidate) error {
	for start := 0; start < len(candidates); start += candidateBatchSize {
		end := start + candidateBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		batch := &pgx.Batch{}
		for _, c := range candidates[start:end] {
			var price *string
			if c.Price != nil {
				s := c.Price.String()
				price = &s
			}
			batch.Queue(
				`INSERT INTO new_isbns
					(isbn, stock, rrp, title, author, publisher, discovered_at, source_file)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (isbn) DO NOTHING`,
				c.ISBN, c.Stock, price, c.Title, c.Author, c.Publisher, c.DiscoveredAt, c.SourceFeed)
		}
		if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return nil
}

// PendingChanges returns audit rows for the run that have never propagated
// successfully, ordered by ISBN.
func (p *Postgres) PendingChanges(ctx context.Context, runID string) ([]differ.ChangeRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT isbn, old_stock, new_stock, old_rrp::text, new_rrp::text, modified_at
		 FROM inventory_changes
		 WHERE run_id = $1 AND marketplace_updated IS DISTINCT FROM TRUE
		 ORDER BY isbn`, runID)
	if err != nil {
		return nil, errors.WrapSource("audit store", err)
	}
	defer rows.Close()

	var pending []differ.ChangeRecord
	for rows.Next() {
		var (
			rec            differ.ChangeRecord
			rawOld, rawNew string
			modifiedAt     time.Time
		)
		if err := rows.Scan(&rec.ISBN, &rec.OldStock, &rec.NewStock, &rawOld, &rawNew, &modifiedAt); err != nil {
			return nil, errors.WrapSource("audit store", err)
		}
		if rec.OldPrice, err = decimal.NewFromString(rawOld); err != nil {
			return nil, errors.WrapSource("audit store", err)
		}
		if rec.NewPrice, err = decimal.NewFromString(rawNew); err != nil {
			return nil, errors.WrapSource("audit store", err)
		}
		rec.ChangedAt = modifiedAt
		pending = append(pending, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapSource("audit store", err)
	}
	return pending, nil
}

// RecordOutcome attaches a propagation outcome to the audit row. A retry
// overwrites the prior outcome; the latest attempt is authoritative.
func (p *Postgres) RecordOutcome(ctx context.Context, runID string, outcome marketplace.Outcome) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE inventory_changes
		 SET marketplace_updated = $3, marketplace_detail = $4, marketplace_updated_at = $5
		 WHERE run_id = $1 AND isbn = $2`,
		runID, outcome.ISBN, outcome.Success, outcome.Detail, outcome.AttemptedAt)
	return err
}
