package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// Backend is the shared, non-durable state used by the HTTP edge.
type Backend interface {
	RateLimiter

	Close() error

	Ping(ctx context.Context) error
}

// EventLog is the append-only record of inbound webhook deliveries.
type EventLog interface {
	// RecordEvent inserts the event unless its EventID was already recorded.
	// created is false for a duplicate delivery; that is not an error.
	RecordEvent(ctx context.Context, event WebhookEvent) (created bool, err error)

	// ListEvents returns the most recently received events, newest first.
	ListEvents(ctx context.Context, limit int) ([]WebhookEvent, error)
}

type OrderStore interface {
	// UpsertOrder creates or overwrites the snapshot for OrderID in a single
	// statement. The latest write always wins.
	UpsertOrder(ctx context.Context, order OrderUpsert) (Order, error)

	// RefreshOrder replaces the payload and statuses of an existing order
	// without touching LastEvent. Returns ErrNotFound for unknown orders.
	RefreshOrder(ctx context.Context, order OrderUpsert) (Order, error)

	GetOrder(ctx context.Context, orderID string) (Order, error)

	// ListOrders returns orders by most recent update first.
	ListOrders(ctx context.Context, limit int) ([]Order, error)
}

type TokenStore interface {
	GetToken(ctx context.Context, provider string) (Token, error)

	// UpsertToken stores the single active credential for a provider.
	// An empty RefreshToken keeps the previously stored one.
	UpsertToken(ctx context.Context, token Token) error
}

type TransactionStore interface {
	// ClaimTransaction inserts tx unless a row for (OrderID, SKU) exists.
	// The insert is the idempotency decision: claimed is false when another
	// delivery already owns the pair.
	ClaimTransaction(ctx context.Context, tx Transaction) (claimed bool, err error)

	// CompleteTransaction stores the provider response for a claimed row.
	CompleteTransaction(ctx context.Context, idtrx string, response []byte) error

	// RecordCallback attaches a provider callback. Returns ErrNotFound for
	// unknown transaction ids.
	RecordCallback(ctx context.Context, idtrx string, callback []byte) error

	GetTransaction(ctx context.Context, idtrx string) (Transaction, error)

	ListTransactions(ctx context.Context, orderID string) ([]Transaction, error)
}

type CatalogStore interface {
	// ReplaceCatalog upserts entries stamped with syncedAt and removes every
	// entry not part of this sync. An empty entries slice removes nothing.
	ReplaceCatalog(ctx context.Context, entries []CatalogEntry, syncedAt time.Time) (removed int64, err error)

	GetCatalogEntry(ctx context.Context, serviceID string) (CatalogEntry, error)

	ListCatalog(ctx context.Context) ([]CatalogEntry, error)

	// LastCatalogSync returns ErrNotFound when the catalog is empty.
	LastCatalogSync(ctx context.Context) (time.Time, error)
}

// Store is the durable storage used by the fulfillment pipeline.
type Store interface {
	EventLog
	OrderStore
	TokenStore
	TransactionStore
	CatalogStore

	Ping(ctx context.Context) error

	Close() error
}
