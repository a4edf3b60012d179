package storage

import (
	"database/sql"
	"time"
)

// Queries are written with "?" placeholders and shared by both drivers.
// PostgresStore rebinds them to positional "$n" parameters.
const (
	insertEventQuery = `
		INSERT INTO webhook_events (event_id, event_type, payload, signature_valid, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id`

	listEventsQuery = `
		SELECT event_id, event_type, payload, signature_valid, received_at
		FROM webhook_events
		ORDER BY received_at DESC, id DESC
		LIMIT ?`

	orderColumns = `order_id, full_payload, standard_status, custom_status, last_event, created_at, updated_at`

	upsertOrderQuery = `
		INSERT INTO orders (order_id, full_payload, standard_status, custom_status, last_event, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO UPDATE SET
			full_payload = excluded.full_payload,
			standard_status = excluded.standard_status,
			custom_status = excluded.custom_status,
			last_event = excluded.last_event,
			updated_at = excluded.updated_at`

	refreshOrderQuery = `
		UPDATE orders SET
			full_payload = ?,
			standard_status = ?,
			custom_status = ?,
			updated_at = ?
		WHERE order_id = ?`

	// returningOrder is appended by drivers that can scan RETURNING rows
	// with typed timestamps.
	returningOrder = ` RETURNING ` + orderColumns

	getOrderQuery = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ?`

	listOrdersQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY updated_at DESC, order_id DESC LIMIT ?`

	getTokenQuery = `
		SELECT provider, access_token, refresh_token, expires_at, updated_at
		FROM integration_tokens
		WHERE provider = ?`

	upsertTokenQuery = `
		INSERT INTO integration_tokens (provider, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, integration_tokens.refresh_token),
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	transactionColumns = `idtrx, order_id, sku, target, response, callback, callback_at, created_at, updated_at`

	claimTransactionQuery = `
		INSERT INTO fulfillment_transactions (idtrx, order_id, sku, target, response, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, sku) DO NOTHING
		RETURNING idtrx`

	completeTransactionQuery = `
		UPDATE fulfillment_transactions
		SET response = ?, updated_at = ?
		WHERE idtrx = ?`

	recordCallbackQuery = `
		UPDATE fulfillment_transactions
		SET callback = ?, callback_at = ?, updated_at = ?
		WHERE idtrx = ?`

	getTransactionQuery = `SELECT ` + transactionColumns + ` FROM fulfillment_transactions WHERE idtrx = ?`

	listTransactionsQuery = `SELECT ` + transactionColumns + ` FROM fulfillment_transactions WHERE order_id = ? ORDER BY created_at, sku`

	catalogColumns = `service_id, name, category, CAST(price AS DOUBLE PRECISION), CAST(price_gold AS DOUBLE PRECISION),
		CAST(price_silver AS DOUBLE PRECISION), CAST(price_pro AS DOUBLE PRECISION), status, last_synced_at`

	upsertCatalogQuery = `
		INSERT INTO catalog_services (service_id, name, category, price, price_gold, price_silver, price_pro, status, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (service_id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			price = excluded.price,
			price_gold = excluded.price_gold,
			price_silver = excluded.price_silver,
			price_pro = excluded.price_pro,
			status = excluded.status,
			last_synced_at = excluded.last_synced_at`

	deleteStaleCatalogQuery = `DELETE FROM catalog_services WHERE last_synced_at <> ?`

	getCatalogEntryQuery = `SELECT ` + catalogColumns + ` FROM catalog_services WHERE service_id = ?`

	listCatalogQuery = `SELECT ` + catalogColumns + ` FROM catalog_services ORDER BY category, name`

	lastCatalogSyncQuery = `SELECT last_synced_at FROM catalog_services ORDER BY last_synced_at DESC LIMIT 1`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (WebhookEvent, error) {
	var e WebhookEvent
	err := row.Scan(&e.EventID, &e.EventType, &e.Payload, &e.SignatureValid, &e.ReceivedAt)
	return e, err
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.OrderID, &o.Payload, &o.StandardStatus, &o.CustomStatus, &o.LastEvent, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func scanToken(row rowScanner) (Token, error) {
	var (
		t       Token
		refresh sql.NullString
		expires sql.NullTime
	)
	if err := row.Scan(&t.Provider, &t.AccessToken, &refresh, &expires, &t.UpdatedAt); err != nil {
		return Token{}, err
	}
	t.RefreshToken = refresh.String
	t.ExpiresAt = expires.Time
	return t, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		tx         Transaction
		callbackAt sql.NullTime
	)
	err := row.Scan(&tx.IDTrx, &tx.OrderID, &tx.SKU, &tx.Target, &tx.Response,
		&tx.Callback, &callbackAt, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	tx.CallbackAt = callbackAt.Time
	return tx, nil
}

func scanCatalogEntry(row rowScanner) (CatalogEntry, error) {
	var (
		e                 CatalogEntry
		gold, silver, pro sql.NullFloat64
	)
	err := row.Scan(&e.ServiceID, &e.Name, &e.Category, &e.Price, &gold, &silver, &pro, &e.Status, &e.LastSyncedAt)
	if err != nil {
		return CatalogEntry{}, err
	}
	e.PriceGold = nullFloat(gold)
	e.PriceSilver = nullFloat(silver)
	e.PricePro = nullFloat(pro)
	return e, nil
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}

// nullable* helpers map Go zero values to SQL NULL parameters.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// jsonText renders a JSON column parameter, treating an empty payload as
// an empty object.
func jsonText(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}

func catalogArgs(e CatalogEntry, syncedAt time.Time) []any {
	return []any{
		e.ServiceID, e.Name, e.Category, e.Price,
		nullableFloat(e.PriceGold), nullableFloat(e.PriceSilver), nullableFloat(e.PricePro),
		e.Status, syncedAt,
	}
}

// normalizeSyncTime truncates to the precision both databases keep so the
// stale sweep compares equal values.
func normalizeSyncTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
