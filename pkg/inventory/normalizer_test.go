package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUpdateMode(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		wantStock  int
		wantPrice  string
		wantReason string
		wantField  string
	}{
		{
			name:      "complete record",
			fields:    map[string]string{"isbn": "9780000000001", "stock": "5", "rrp": "12.99"},
			wantStock: 5,
			wantPrice: "12.99",
		},
		{
			name:      "whitespace trimmed",
			fields:    map[string]string{"isbn": " 9780000000001 ", "stock": " 5 ", "rrp": " 12.99 "},
			wantStock: 5,
			wantPrice: "12.99",
		},
		{
			name:      "absent stock counts as zero",
			fields:    map[string]string{"isbn": "9780000000001", "rrp": "12.99"},
			wantStock: 0,
			wantPrice: "12.99",
		},
		{
			name:       "missing key",
			fields:     map[string]string{"stock": "5", "rrp": "12.99"},
			wantReason: ReasonMissingKey,
			wantField:  FieldISBN,
		},
		{
			name:       "blank key",
			fields:     map[string]string{"isbn": "   ", "stock": "5", "rrp": "12.99"},
			wantReason: ReasonMissingKey,
			wantField:  FieldISBN,
		},
		{
			name:       "unparsable stock",
			fields:     map[string]string{"isbn": "9780000000001", "stock": "lots", "rrp": "12.99"},
			wantReason: ReasonInvalidStock,
			wantField:  FieldStock,
		},
		{
			name:       "negative stock",
			fields:     map[string]string{"isbn": "9780000000001", "stock": "-2", "rrp": "12.99"},
			wantReason: ReasonInvalidStock,
			wantField:  FieldStock,
		},
		{
			name:       "absent price",
			fields:     map[string]string{"isbn": "9780000000001", "stock": "5"},
			wantReason: ReasonInvalidPrice,
			wantField:  FieldPrice,
		},
		{
			name:       "unparsable price",
			fields:     map[string]string{"isbn": "9780000000001", "stock": "5", "rrp": "free"},
			wantReason: ReasonInvalidPrice,
			wantField:  FieldPrice,
		},
		{
			name:       "negative price",
			fields:     map[string]string{"isbn": "9780000000001", "stock": "5", "rrp": "-1.00"},
			wantReason: ReasonInvalidPrice,
			wantField:  FieldPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, rej := Normalize(tt.fields, "stock.csv", ModeUpdate)

			if tt.wantReason != "" {
				require.NotNil(t, rej)
				assert.Equal(t, tt.wantReason, rej.Reason)
				assert.Equal(t, tt.wantField, rej.Field)
				assert.Equal(t, "stock.csv", rej.Feed)
				return
			}

			require.Nil(t, rej)
			assert.Equal(t, "9780000000001", entry.ISBN)
			assert.Equal(t, tt.wantStock, entry.Stock)
			require.NotNil(t, entry.Price)
			assert.True(t, entry.Price.Equal(decimal.RequireFromString(tt.wantPrice)))
			assert.Equal(t, "stock.csv", entry.Feed)
		})
	}
}

func TestNormalizeDiscoveryMode(t *testing.T) {
	t.Run("lenient stock coercion", func(t *testing.T) {
		for _, raw := range []string{"", "lots", "-3"} {
			entry, rej := Normalize(map[string]string{"isbn": "9780000000002", "stock": raw}, "new.csv", ModeDiscovery)
			require.Nil(t, rej, "stock %q", raw)
			assert.Equal(t, 0, entry.Stock, "stock %q", raw)
		}
	})

	t.Run("price optional", func(t *testing.T) {
		entry, rej := Normalize(map[string]string{"isbn": "9780000000002", "stock": "6"}, "new.csv", ModeDiscovery)
		require.Nil(t, rej)
		assert.Nil(t, entry.Price)
		assert.Equal(t, 6, entry.Stock)
	})

	t.Run("unparsable price dropped not rejected", func(t *testing.T) {
		entry, rej := Normalize(map[string]string{"isbn": "9780000000002", "stock": "6", "rrp": "n/a"}, "new.csv", ModeDiscovery)
		require.Nil(t, rej)
		assert.Nil(t, entry.Price)
	})

	t.Run("missing key still rejected", func(t *testing.T) {
		_, rej := Normalize(map[string]string{"stock": "6"}, "new.csv", ModeDiscovery)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonMissingKey, rej.Reason)
	})

	t.Run("metadata carried", func(t *testing.T) {
		entry, rej := Normalize(map[string]string{
			"isbn":      "9780000000002",
			"stock":     "6",
			"rrp":       "8.50",
			"title":     " The Go Programming Language ",
			"author":    "Donovan",
			"publisher": "Addison-Wesley",
		}, "new.csv", ModeDiscovery)
		require.Nil(t, rej)
		assert.Equal(t, "The Go Programming Language", entry.Title)
		assert.Equal(t, "Donovan", entry.Author)
		assert.Equal(t, "Addison-Wesley", entry.Publisher)
		require.NotNil(t, entry.Price)
		assert.True(t, entry.Price.Equal(decimal.RequireFromString("8.50")))
	})
}

func TestSnapshotImmutable(t *testing.T) {
	src := map[string]SnapshotEntry{
		"b": {Stock: 1, Price: decimal.RequireFromString("2.00")},
		"a": {Stock: 2, Price: decimal.RequireFromString("3.00")},
	}
	snap := NewSnapshot(src)

	// Mutating the source map must not leak into the snapshot.
	src["c"] = SnapshotEntry{Stock: 9}
	delete(src, "a")

	assert.Equal(t, 2, snap.Len())
	assert.True(t, snap.Has("a"))
	assert.False(t, snap.Has("c"))
	assert.Equal(t, []string{"a", "b"}, snap.ISBNs())

	e, ok := snap.Get("b")
	require.True(t, ok)
	assert.Equal(t, 1, e.Stock)
}
