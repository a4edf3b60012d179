package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	o := applyOptions(opts)
	return &PostgresStore{pool: pool, now: o.now}
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event WebhookEvent) (bool, error) {
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	var id int64
	err := s.pool.QueryRow(ctx, rebind(insertEventQuery),
		event.EventID, event.EventType, jsonText(event.Payload), event.SignatureValid, receivedAt.UTC(),
	).Scan(&id)
	// no row comes back when ON CONFLICT DO NOTHING skipped a duplicate event_id
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, limit int) ([]WebhookEvent, error) {
	rows, err := s.pool.Query(ctx, rebind(listEventsQuery), limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return collect(rows, scanEvent)
}

func (s *PostgresStore) UpsertOrder(ctx context.Context, order OrderUpsert) (Order, error) {
	now := s.now().UTC()
	o, err := scanOrder(s.pool.QueryRow(ctx, rebind(upsertOrderQuery+returningOrder),
		order.OrderID, jsonText(order.Payload), order.StandardStatus, order.CustomStatus, order.LastEvent, now, now,
	))
	if err != nil {
		return Order{}, fmt.Errorf("upsert order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) RefreshOrder(ctx context.Context, order OrderUpsert) (Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, rebind(refreshOrderQuery+returningOrder),
		jsonText(order.Payload), order.StandardStatus, order.CustomStatus, s.now().UTC(), order.OrderID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("refresh order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, rebind(getOrderQuery), orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := s.pool.Query(ctx, rebind(listOrdersQuery), limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collect(rows, scanOrder)
}

func (s *PostgresStore) GetToken(ctx context.Context, provider string) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, rebind(getTokenQuery), provider))
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpsertToken(ctx context.Context, token Token) error {
	_, err := s.pool.Exec(ctx, rebind(upsertTokenQuery),
		token.Provider, token.AccessToken, nullableString(token.RefreshToken), nullableTime(token.ExpiresAt), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClaimTransaction(ctx context.Context, tx Transaction) (bool, error) {
	now := s.now().UTC()
	var idtrx string
	err := s.pool.QueryRow(ctx, rebind(claimTransactionQuery),
		tx.IDTrx, tx.OrderID, tx.SKU, tx.Target, jsonText(tx.Response), now, now,
	).Scan(&idtrx)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim transaction: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) CompleteTransaction(ctx context.Context, idtrx string, response []byte) error {
	tag, err := s.pool.Exec(ctx, rebind(completeTransactionQuery), jsonText(response), s.now().UTC(), idtrx)
	if err != nil {
		return fmt.Errorf("complete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordCallback(ctx context.Context, idtrx string, callback []byte) error {
	now := s.now().UTC()
	tag, err := s.pool.Exec(ctx, rebind(recordCallbackQuery), jsonText(callback), now, now, idtrx)
	if err != nil {
		return fmt.Errorf("record callback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, idtrx string) (Transaction, error) {
	tx, err := scanTransaction(s.pool.QueryRow(ctx, rebind(getTransactionQuery), idtrx))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, orderID string) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, rebind(listTransactionsQuery), orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collect(rows, scanTransaction)
}

func (s *PostgresStore) ReplaceCatalog(ctx context.Context, entries []CatalogEntry, syncedAt time.Time) (int64, error) {
	syncedAt = normalizeSyncTime(syncedAt)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin catalog sync: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	upsert := rebind(upsertCatalogQuery)
	for _, e := range entries {
		batch.Queue(upsert, catalogArgs(e, syncedAt)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("upsert catalog: %w", err)
	}

	var removed int64
	if len(entries) > 0 {
		tag, err := tx.Exec(ctx, rebind(deleteStaleCatalogQuery), syncedAt)
		if err != nil {
			return 0, fmt.Errorf("delete stale catalog entries: %w", err)
		}
		removed = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit catalog sync: %w", err)
	}
	return removed, nil
}

func (s *PostgresStore) GetCatalogEntry(ctx context.Context, serviceID string) (CatalogEntry, error) {
	e, err := scanCatalogEntry(s.pool.QueryRow(ctx, rebind(getCatalogEntryQuery), serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("get catalog entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, listCatalogQuery)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return collect(rows, scanCatalogEntry)
}

func (s *PostgresStore) LastCatalogSync(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, lastCatalogSyncQuery).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last catalog sync: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func collect[T any](rows pgx.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// rebind converts "?" placeholders to postgres positional parameters.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
