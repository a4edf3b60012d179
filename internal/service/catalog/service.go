package catalog

import (
	"context"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

type Service interface {
	// Resolve returns the catalog entry for a sku.
	// Returns storage.ErrNotFound if the provider does not offer it.
	Resolve(ctx context.Context, sku string) (storage.CatalogEntry, error)

	// Sync refreshes the local catalog from the provider. Unless force is
	// set, a catalog younger than the configured TTL is left alone.
	Sync(ctx context.Context, force bool) (SyncResult, error)

	// List serves the stored catalog, syncing first when it is stale.
	List(ctx context.Context, q Query) (Listing, error)
}

// Provider is the upstream catalog source.
type Provider interface {
	ListServices(ctx context.Context) ([]funnerlife.Service, error)
}

type SyncResult struct {
	Skipped  bool
	Fetched  int
	Kept     int
	Removed  int64
	SyncedAt time.Time
}

type Query struct {
	Category string
	Search   string
	Sort     string
	Counts   bool
}

type CategoryCount struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
}

type Listing struct {
	Entries []storage.CatalogEntry
	// Counts is nil unless requested.
	Counts []CategoryCount
}
