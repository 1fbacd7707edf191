// Package marketplace defines the narrow interface to the external listing
// service and the recorded outcome of each propagation attempt. The
// concrete eBay Trading client lives in internal/ebay.
package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the external service's verdict on an update call.
type Status string

const (
	// StatusSuccess means the revision was accepted.
	StatusSuccess Status = "success"
	// StatusWarning means the revision was accepted with a warning.
	StatusWarning Status = "warning"
	// StatusFailure means the revision was not applied.
	StatusFailure Status = "failure"
)

// DetailEntityNotFound is the outcome detail recorded when the key has no
// listing on the marketplace. An expected outcome, not an error.
const DetailEntityNotFound = "entity-not-found"

// Revision is one price/quantity update for a marketplace listing.
type Revision struct {
	ItemID   string
	Price    decimal.Decimal
	Quantity int
}

// Client is the marketplace surface the propagation worker consumes.
type Client interface {
	// FindListing resolves an internal key (SKU) to the marketplace's
	// entity identifier. found is false when no listing carries the SKU;
	// err is reserved for transport or authorization failures.
	FindListing(ctx context.Context, sku string) (itemID string, found bool, err error)

	// ReviseListing pushes new price and quantity to a listing. The
	// detail carries warning or failure diagnostics from the service.
	ReviseListing(ctx context.Context, rev Revision) (status Status, detail string, err error)
}

// Outcome records one propagation attempt for one key. A retried record
// produces a new Outcome that supersedes the prior one for reporting.
type Outcome struct {
	ISBN        string
	Success     bool
	Detail      string
	AttemptedAt time.Time
}
