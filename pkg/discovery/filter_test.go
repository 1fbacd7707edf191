package discovery

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbridge/shelfsync/pkg/inventory"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
}

func emptySnapshot() *inventory.Snapshot {
	return inventory.NewSnapshot(nil)
}

func TestConsiderThresholdInclusive(t *testing.T) {
	f := NewFilter(DefaultMinStock, emptySnapshot(), WithClock(testClock))

	_, ok := f.Consider(inventory.Entry{ISBN: "9780000000010", Stock: DefaultMinStock - 1})
	assert.False(t, ok, "stock below threshold must be rejected")

	c, ok := f.Consider(inventory.Entry{ISBN: "9780000000011", Stock: DefaultMinStock})
	require.True(t, ok, "stock equal to threshold must be admitted")
	assert.Equal(t, DefaultMinStock, c.Stock)
	assert.Equal(t, testClock(), c.DiscoveredAt)
}

func TestConsiderDeduplicatesAcrossFeeds(t *testing.T) {
	f := NewFilter(2, emptySnapshot(), WithClock(testClock))

	first, ok := f.Consider(inventory.Entry{ISBN: "9780000000010", Stock: 5, Feed: "a.csv"})
	require.True(t, ok)
	assert.Equal(t, "a.csv", first.SourceFeed)

	// First admission wins; the same key from a later feed is dropped.
	_, ok = f.Consider(inventory.Entry{ISBN: "9780000000010", Stock: 9, Feed: "b.csv"})
	assert.False(t, ok)
}

func TestConsiderRejectedKeyMayRequalify(t *testing.T) {
	f := NewFilter(4, emptySnapshot(), WithClock(testClock))

	// A below-threshold occurrence does not join the seen set, so a later
	// occurrence with enough stock is still admitted.
	_, ok := f.Consider(inventory.Entry{ISBN: "9780000000010", Stock: 1})
	require.False(t, ok)

	_, ok = f.Consider(inventory.Entry{ISBN: "9780000000010", Stock: 6})
	assert.True(t, ok)
}

func TestFilterSeededFromSnapshot(t *testing.T) {
	snap := inventory.NewSnapshot(map[string]inventory.SnapshotEntry{
		"9780000000001": {Stock: 5, Price: decimal.RequireFromString("10.00")},
	})
	f := NewFilter(1, snap, WithClock(testClock))

	_, ok := f.Consider(inventory.Entry{ISBN: "9780000000001", Stock: 99})
	assert.False(t, ok, "a key in the system-of-record can never become a candidate")
}

func TestCandidates(t *testing.T) {
	f := NewFilter(4, emptySnapshot(), WithClock(testClock))
	price := decimal.RequireFromString("15.00")

	got := f.Candidates([]inventory.Entry{
		{ISBN: "9780000000010", Stock: 6, Price: &price, Title: "First", Feed: "a.csv"},
		{ISBN: "9780000000011", Stock: 2, Feed: "a.csv"},
		{ISBN: "9780000000010", Stock: 8, Feed: "b.csv"},
		{ISBN: "9780000000012", Stock: 4, Feed: "b.csv"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "9780000000010", got[0].ISBN)
	assert.Equal(t, 6, got[0].Stock)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "9780000000012", got[1].ISBN)
	assert.Nil(t, got[1].Price)
}
