package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on database/sql with the sqlite3 driver.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB, opts ...Option) *SQLStore {
	o := applyOptions(opts)
	return &SQLStore{db: db, now: o.now}
}

// OpenSQLite opens a sqlite database. The pool is limited to a single
// connection so that writers serialize and ":memory:" databases are shared.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func (s *SQLStore) RecordEvent(ctx context.Context, event WebhookEvent) (bool, error) {
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, insertEventQuery,
		event.EventID, event.EventType, jsonText(event.Payload), event.SignatureValid, receivedAt.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return true, nil
}

func (s *SQLStore) ListEvents(ctx context.Context, limit int) ([]WebhookEvent, error) {
	rows, err := s.db.QueryContext(ctx, listEventsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return collectSQL(rows, scanEvent)
}

func (s *SQLStore) UpsertOrder(ctx context.Context, order OrderUpsert) (Order, error) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, upsertOrderQuery,
		order.OrderID, jsonText(order.Payload), order.StandardStatus, order.CustomStatus, order.LastEvent, now, now,
	)
	if err != nil {
		return Order{}, fmt.Errorf("upsert order: %w", err)
	}
	return s.GetOrder(ctx, order.OrderID)
}

func (s *SQLStore) RefreshOrder(ctx context.Context, order OrderUpsert) (Order, error) {
	res, err := s.db.ExecContext(ctx, refreshOrderQuery,
		jsonText(order.Payload), order.StandardStatus, order.CustomStatus, s.now().UTC(), order.OrderID,
	)
	if err != nil {
		return Order{}, fmt.Errorf("refresh order: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Order{}, err
	}
	return s.GetOrder(ctx, order.OrderID)
}

func (s *SQLStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, getOrderQuery, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *SQLStore) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, listOrdersQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectSQL(rows, scanOrder)
}

func (s *SQLStore) GetToken(ctx context.Context, provider string) (Token, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx, getTokenQuery, provider))
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

func (s *SQLStore) UpsertToken(ctx context.Context, token Token) error {
	_, err := s.db.ExecContext(ctx, upsertTokenQuery,
		token.Provider, token.AccessToken, nullableString(token.RefreshToken), nullableTime(token.ExpiresAt), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (s *SQLStore) ClaimTransaction(ctx context.Context, tx Transaction) (bool, error) {
	now := s.now().UTC()
	var idtrx string
	err := s.db.QueryRowContext(ctx, claimTransactionQuery,
		tx.IDTrx, tx.OrderID, tx.SKU, tx.Target, jsonText(tx.Response), now, now,
	).Scan(&idtrx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim transaction: %w", err)
	}
	return true, nil
}

func (s *SQLStore) CompleteTransaction(ctx context.Context, idtrx string, response []byte) error {
	res, err := s.db.ExecContext(ctx, completeTransactionQuery, jsonText(response), s.now().UTC(), idtrx)
	if err != nil {
		return fmt.Errorf("complete transaction: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLStore) RecordCallback(ctx context.Context, idtrx string, callback []byte) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, recordCallbackQuery, jsonText(callback), now, now, idtrx)
	if err != nil {
		return fmt.Errorf("record callback: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLStore) GetTransaction(ctx context.Context, idtrx string) (Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, getTransactionQuery, idtrx))
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLStore) ListTransactions(ctx context.Context, orderID string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, listTransactionsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectSQL(rows, scanTransaction)
}

func (s *SQLStore) ReplaceCatalog(ctx context.Context, entries []CatalogEntry, syncedAt time.Time) (int64, error) {
	syncedAt = normalizeSyncTime(syncedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin catalog sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertCatalogQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare catalog upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, catalogArgs(e, syncedAt)...); err != nil {
			return 0, fmt.Errorf("upsert catalog entry %s: %w", e.ServiceID, err)
		}
	}

	var removed int64
	if len(entries) > 0 {
		res, err := tx.ExecContext(ctx, deleteStaleCatalogQuery, syncedAt)
		if err != nil {
			return 0, fmt.Errorf("delete stale catalog entries: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("delete stale catalog entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit catalog sync: %w", err)
	}
	return removed, nil
}

func (s *SQLStore) GetCatalogEntry(ctx context.Context, serviceID string) (CatalogEntry, error) {
	e, err := scanCatalogEntry(s.db.QueryRowContext(ctx, getCatalogEntryQuery, serviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("get catalog entry: %w", err)
	}
	return e, nil
}

func (s *SQLStore) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, listCatalogQuery)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return collectSQL(rows, scanCatalogEntry)
}

func (s *SQLStore) LastCatalogSync(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, lastCatalogSyncQuery).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last catalog sync: %w", err)
	}
	return t, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSQL[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()

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
