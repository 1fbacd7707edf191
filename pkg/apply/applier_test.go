package apply

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/shelfsync/internal/store"
	"github.com/bookbridge/shelfsync/pkg/differ"
	"github.com/bookbridge/shelfsync/pkg/logging"
)

func changeRecord(isbn string, oldStock, newStock int, oldPrice, newPrice string) differ.ChangeRecord {
	return differ.ChangeRecord{
		ISBN:      isbn,
		OldStock:  oldStock,
		NewStock:  newStock,
		OldPrice:  decimal.RequireFromString(oldPrice),
		NewPrice:  decimal.RequireFromString(newPrice),
		ChangedAt: time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC),
	}
}

func TestApplyWritesAndAudits(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed("9780000000001", 5, decimal.RequireFromString("10.00"))

	a := New(mem, "refresh_test", &logging.Nop)
	res, err := a.Apply(context.Background(), []differ.ChangeRecord{
		changeRecord("9780000000001", 5, 3, "10.00", "9.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.NoOps)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.AuditIncomplete)

	stock, price, err := mem.Entry(context.Background(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	assert.True(t, price.Equal(decimal.RequireFromString("9.50")))

	changes := mem.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "refresh_test", changes[0].RunID)
	assert.Equal(t, "9780000000001", changes[0].Record.ISBN)
}

func TestApplyIdempotent(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed("9780000000001", 5, decimal.RequireFromString("10.00"))

	a := New(mem, "refresh_test", &logging.Nop)
	rec := changeRecord("9780000000001", 5, 3, "10.00", "9.50")

	res, err := a.Apply(context.Background(), []differ.ChangeRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	// The second pass sees the target value already in place: a logged
	// no-op, no second audit row.
	res, err = a.Apply(context.Background(), []differ.ChangeRecord{rec})
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 1, res.NoOps)
	assert.Len(t, mem.Changes(), 1)
}

func TestApplyFailedWriteSkipsRecord(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed("9780000000001", 5, decimal.RequireFromString("10.00"))
	mem.FailUpdate = true

	a := New(mem, "refresh_test", &logging.Nop)
	res, err := a.Apply(context.Background(), []differ.ChangeRecord{
		changeRecord("9780000000001", 5, 3, "10.00", "9.50"),
	})
	require.NoError(t, err, "a per-record write failure is never fatal")

	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Applied)
	assert.Empty(t, mem.Changes(), "a failed write must not be audited")

	stock, _, err := mem.Entry(context.Background(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 5, stock, "the current value must be untouched")
}

func TestApplyUnknownKeySkipped(t *testing.T) {
	mem := store.NewMemory()

	a := New(mem, "refresh_test", &logging.Nop)
	res, err := a.Apply(context.Background(), []differ.ChangeRecord{
		changeRecord("missing", 5, 3, "10.00", "9.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestApplyAuditIncomplete(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed("9780000000001", 5, decimal.RequireFromString("10.00"))
	mem.FailAudit = true

	a := New(mem, "refresh_test", &logging.Nop)
	res, err := a.Apply(context.Background(), []differ.ChangeRecord{
		changeRecord("9780000000001", 5, 3, "10.00", "9.50"),
	})
	require.NoError(t, err)

	// The live write stands even though the audit append failed.
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, []string{"9780000000001"}, res.AuditIncomplete)

	stock, _, err := mem.Entry(context.Background(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, stock, "the live write is never rolled back")
}
