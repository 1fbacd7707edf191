package inventory

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Feed field names consumed by the normalizer.
const (
	FieldISBN      = "isbn"
	FieldStock     = "stock"
	FieldPrice     = "rrp"
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldPublisher = "publisher"
)

// Mode selects the coercion rules applied while normalizing a raw record.
type Mode int

const (
	// ModeUpdate applies strict rules for records that will be diffed
	// against the snapshot: a record claiming a change must carry
	// parseable stock and price values.
	ModeUpdate Mode = iota

	// ModeDiscovery applies lenient rules for records whose key is absent
	// from the system-of-record: unparsable or missing stock counts as 0,
	// and price may be unset.
	ModeDiscovery
)

// Rejection reasons.
const (
	ReasonMissingKey   = "missing-key"
	ReasonInvalidStock = "invalid-stock"
	ReasonInvalidPrice = "invalid-price"
)

// Rejection reports why a raw record was not normalized. Rejections are
// data, not failures: one bad record never aborts the rest of a feed.
type Rejection struct {
	Feed   string
	Line   int
	ISBN   string
	Field  string
	Raw    string
	Reason string
}

// Normalize parses one raw field mapping into a typed Entry, or rejects it.
// The zero Line on the returned Rejection is filled in by callers that know
// the row position.
func Normalize(fields map[string]string, feed string, mode Mode) (Entry, *Rejection) {
	isbn := strings.TrimSpace(fields[FieldISBN])
	if isbn == "" {
		return Entry{}, &Rejection{Feed: feed, Field: FieldISBN, Reason: ReasonMissingKey}
	}

	entry := Entry{
		ISBN:      isbn,
		Title:     strings.TrimSpace(fields[FieldTitle]),
		Author:    strings.TrimSpace(fields[FieldAuthor]),
		Publisher: strings.TrimSpace(fields[FieldPublisher]),
		Feed:      feed,
	}

	rawStock := strings.TrimSpace(fields[FieldStock])
	stock, stockErr := strconv.Atoi(rawStock)
	switch mode {
	case ModeUpdate:
		// Absent stock counts as zero, but a present unparsable value is
		// rejected rather than silently coerced.
		if rawStock == "" {
			stock = 0
		} else if stockErr != nil || stock < 0 {
			return Entry{}, &Rejection{Feed: feed, ISBN: isbn, Field: FieldStock, Raw: rawStock, Reason: ReasonInvalidStock}
		}
	case ModeDiscovery:
		if stockErr != nil || stock < 0 {
			stock = 0
		}
	}
	entry.Stock = stock

	rawPrice := strings.TrimSpace(fields[FieldPrice])
	switch mode {
	case ModeUpdate:
		price, err := decimal.NewFromString(rawPrice)
		if rawPrice == "" || err != nil || price.IsNegative() {
			return Entry{}, &Rejection{Feed: feed, ISBN: isbn, Field: FieldPrice, Raw: rawPrice, Reason: ReasonInvalidPrice}
		}
		entry.Price = &price
	case ModeDiscovery:
		if rawPrice != "" {
			if price, err := decimal.NewFromString(rawPrice); err == nil && !price.IsNegative() {
				entry.Price = &price
			}
		}
	}

	return entry, nil
}
