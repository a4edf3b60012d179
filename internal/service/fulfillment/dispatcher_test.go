package fulfillment_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	go_json "github.com/goccy/go-json"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/migrations"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/fulfillment"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

type fakeCatalog map[string]storage.CatalogEntry

func (c fakeCatalog) Resolve(_ context.Context, sku string) (storage.CatalogEntry, error) {
	e, ok := c[sku]
	if !ok {
		return storage.CatalogEntry{}, storage.ErrNotFound
	}
	return e, nil
}

type fakeCharger struct {
	mu       sync.Mutex
	requests []funnerlife.ChargeRequest
	result   funnerlife.ChargeResult
}

func (c *fakeCharger) Charge(_ context.Context, req funnerlife.ChargeRequest) funnerlife.ChargeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.result
}

func (c *fakeCharger) calls() []funnerlife.ChargeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]funnerlife.ChargeRequest(nil), c.requests...)
}

var catalogEntries = fakeCatalog{
	"ML86":  {ServiceID: "ML86", Category: "Mobile Legends"},
	"FF100": {ServiceID: "FF100", Category: "Free Fire"},
}

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrations.Apply(t.Context(), db); err != nil {
		t.Fatalf("migrations.Apply() error = %v", err)
	}
	return storage.NewSQLStore(db)
}

func newDispatcher(store storage.TransactionStore, charger *fakeCharger) *fulfillment.Dispatcher {
	var seq atomic.Int64
	return fulfillment.NewDispatcher(store, catalogEntries, charger, fulfillment.Config{
		PayableStatuses: []string{"paid", "processing", "under_review"},
		ZoneCategories:  []string{"Mobile Legends"},
		Concurrency:     4,
		CallbackURL:     "https://example.com/api/funnerlife/callback",
	}, fulfillment.WithIDFunc(func() string {
		return "trx-" + strconv.FormatInt(seq.Add(1), 10)
	}))
}

func item(sku string, values ...string) salla.Item {
	opts := make([]salla.ItemOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, salla.ItemOption{Value: salla.Values{v}})
	}
	return salla.Item{SKU: salla.Text(sku), Options: opts}
}

func paidOrder(items ...salla.Item) salla.Order {
	return salla.Order{ID: "1001", Status: salla.Status{Slug: "paid"}, Items: items}
}

func okCharge() funnerlife.ChargeResult {
	return funnerlife.ChargeResult{HTTPStatus: http.StatusOK, Body: []byte(`{"status":true}`)}
}

func TestDispatchSkipsUnpayableOrders(t *testing.T) {
	t.Parallel()

	charger := &fakeCharger{result: okCharge()}
	d := newDispatcher(newStore(t), charger)

	order := paidOrder(item("ML86", "P1", "Z1"))
	order.Status.Slug = "pending_payment"

	report := d.Dispatch(t.Context(), "1001", order)
	if report.Payable || len(report.Items) != 0 {
		t.Errorf("Dispatch() = %+v, want not payable", report)
	}
	if n := len(charger.calls()); n != 0 {
		t.Errorf("charges = %d, want 0", n)
	}
}

func TestDispatchKnownAndUnknownSKU(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	charger := &fakeCharger{result: okCharge()}
	d := newDispatcher(store, charger)

	report := d.Dispatch(t.Context(), "1001", paidOrder(
		item("ML86", "P123", "Z9"),
		item("UNKNOWN", "P123"),
		item(""),
	))

	if got := report.Count(fulfillment.OutcomeDispatched); got != 1 {
		t.Errorf("dispatched = %d, want 1", got)
	}
	if got := report.Count(fulfillment.OutcomeUnknownSKU); got != 1 {
		t.Errorf("unknown sku = %d, want 1", got)
	}
	if got := report.Count(fulfillment.OutcomeSkipped); got != 1 {
		t.Errorf("skipped = %d, want 1", got)
	}

	calls := charger.calls()
	if len(calls) != 1 {
		t.Fatalf("charges = %d, want 1", len(calls))
	}
	if calls[0].Service != "ML86" || calls[0].Target != "P123|Z9" || calls[0].CallbackURL == "" {
		t.Errorf("charge request = %+v", calls[0])
	}

	txs, err := store.ListTransactions(t.Context(), "1001")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].SKU != "ML86" || txs[0].IDTrx != calls[0].IDTrx {
		t.Fatalf("transactions = %+v, want one ML86 row", txs)
	}

	var resp map[string]any
	if err := go_json.Unmarshal(txs[0].Response, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["state"] != "sent" || resp["http_status"] != float64(http.StatusOK) {
		t.Errorf("stored response = %v, want sent with 200", resp)
	}
}

func TestDispatchIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	charger := &fakeCharger{result: okCharge()}
	d := newDispatcher(store, charger)
	order := paidOrder(item("ML86", "P123", "Z9"), item("FF100", "777"))

	const deliveries = 8
	var wg sync.WaitGroup
	reports := make([]fulfillment.Report, deliveries)
	for i := range deliveries {
		wg.Go(func() {
			reports[i] = d.Dispatch(t.Context(), "1001", order)
		})
	}
	wg.Wait()

	if n := len(charger.calls()); n != 2 {
		t.Errorf("charges = %d, want exactly one per sku", n)
	}

	var dispatched, duplicates int
	for _, r := range reports {
		dispatched += r.Count(fulfillment.OutcomeDispatched)
		duplicates += r.Count(fulfillment.OutcomeDuplicate)
	}
	if dispatched != 2 || duplicates != 2*deliveries-2 {
		t.Errorf("dispatched = %d, duplicates = %d", dispatched, duplicates)
	}

	txs, err := store.ListTransactions(t.Context(), "1001")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("transactions = %d, want 2", len(txs))
	}
}

func TestDispatchRecordsChargeFailure(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	charger := &fakeCharger{result: funnerlife.ChargeResult{
		HTTPStatus: http.StatusBadGateway,
		Body:       []byte("upstream unavailable"),
	}}
	d := newDispatcher(store, charger)

	report := d.Dispatch(t.Context(), "1001", paidOrder(item("FF100", "777")))
	if got := report.Count(fulfillment.OutcomeChargeFailed); got != 1 {
		t.Fatalf("charge failures = %d, want 1: %+v", got, report)
	}

	tx, err := store.GetTransaction(t.Context(), report.Items[0].IDTrx)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	var resp map[string]any
	if err := go_json.Unmarshal(tx.Response, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["state"] != "failed" || resp["body"] != "upstream unavailable" {
		t.Errorf("stored response = %v, want failed with raw body", resp)
	}

	// a failed charge still blocks redelivery
	report = d.Dispatch(t.Context(), "1001", paidOrder(item("FF100", "777")))
	if got := report.Count(fulfillment.OutcomeDuplicate); got != 1 {
		t.Errorf("redelivery duplicates = %d, want 1", got)
	}
	if n := len(charger.calls()); n != 1 {
		t.Errorf("charges = %d, want 1", n)
	}
}

func TestDispatchMissingPlayerID(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	charger := &fakeCharger{result: okCharge()}
	d := newDispatcher(store, charger)

	report := d.Dispatch(t.Context(), "1001", paidOrder(item("ML86"), item("FF100", "777")))

	if report.Items[0].Outcome != fulfillment.OutcomeFailed || !errors.Is(report.Items[0].Err, fulfillment.ErrMissingOption) {
		t.Errorf("items[0] = %+v, want failed with ErrMissingOption", report.Items[0])
	}
	if report.Items[1].Outcome != fulfillment.OutcomeDispatched {
		t.Errorf("items[1] = %+v, want dispatched", report.Items[1])
	}

	txs, err := store.ListTransactions(t.Context(), "1001")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].SKU != "FF100" {
		t.Errorf("transactions = %+v, want only FF100", txs)
	}
}

func TestDispatchIsolatesUnreadableItem(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":1001,"status":{"slug":"paid"},"items":[` +
		`{"sku":"ML86","options":[{"value":["P123"]},{"value":"Z9"}]},` +
		`{"sku":"TSHIRT","options":[{"value":{"id":5,"name":"XL"}}]}]}`)
	var order salla.Order
	if err := go_json.Unmarshal(payload, &order); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}

	store := newStore(t)
	charger := &fakeCharger{result: okCharge()}
	d := newDispatcher(store, charger)

	report := d.Dispatch(t.Context(), "1001", order)
	if len(report.Items) != 2 {
		t.Fatalf("items = %d, want 2: %+v", len(report.Items), report)
	}
	if report.Items[0].Outcome != fulfillment.OutcomeDispatched {
		t.Errorf("items[0] = %+v, want dispatched", report.Items[0])
	}
	if report.Items[1].Outcome != fulfillment.OutcomeFailed || report.Items[1].SKU != "TSHIRT" {
		t.Errorf("items[1] = %+v, want failed TSHIRT", report.Items[1])
	}
	if n := len(charger.calls()); n != 1 {
		t.Errorf("charges = %d, want 1", n)
	}
}
