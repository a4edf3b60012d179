package order

import (
	"context"
	"errors"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

var ErrCredentialMissing = errors.New("storefront credential missing")

type Service interface {
	List(ctx context.Context, limit int) ([]storage.Order, error)

	// Get returns a stored order with its fulfillment transactions. With
	// refresh set the order is re-fetched first and the snapshot replaced
	// unless the fetch failed outright.
	// Returns storage.ErrNotFound for orders never received by webhook.
	Get(ctx context.Context, orderID string, refresh bool) (Detail, error)
}

type Fetcher interface {
	FetchOrder(ctx context.Context, orderID string) (salla.FetchResult, error)
}

type Detail struct {
	Order        storage.Order
	Transactions []storage.Transaction
	Refreshed    bool
}
