package storage_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/migrations"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/google/go-cmp/cmp"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := migrations.Apply(t.Context(), db); err != nil {
		t.Fatalf("migrations.Apply() error = %v", err)
	}

	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return storage.NewSQLStore(db, storage.WithClock(clock.Now))
}

func TestRecordEventDeduplicates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	event := storage.WebhookEvent{
		EventID:        "evt-1",
		EventType:      "order.created",
		Payload:        []byte(`{"event":"order.created"}`),
		SignatureValid: true,
	}

	created, err := s.RecordEvent(ctx, event)
	if err != nil || !created {
		t.Fatalf("first RecordEvent() = %v, %v; want true, nil", created, err)
	}

	event.EventType = "order.updated"
	created, err = s.RecordEvent(ctx, event)
	if err != nil || created {
		t.Fatalf("duplicate RecordEvent() = %v, %v; want false, nil", created, err)
	}

	if _, err := s.RecordEvent(ctx, storage.WebhookEvent{EventID: "evt-2", EventType: "unknown"}); err != nil {
		t.Fatalf("RecordEvent() without payload error = %v", err)
	}

	events, err := s.ListEvents(ctx, 100)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}

	type row struct {
		ID, Type, Payload string
		Valid             bool
	}
	got := make([]row, 0, len(events))
	for _, e := range events {
		got = append(got, row{e.EventID, e.EventType, string(e.Payload), e.SignatureValid})
	}
	want := []row{
		{"evt-2", "unknown", "{}", false},
		{"evt-1", "order.created", `{"event":"order.created"}`, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListEvents() mismatch (-want +got):\n%s", diff)
	}

	limited, err := s.ListEvents(ctx, 1)
	if err != nil {
		t.Fatalf("ListEvents(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].EventID != "evt-2" {
		t.Errorf("ListEvents(1) = %+v, want only evt-2", limited)
	}
}

func TestUpsertOrderLastWriteWins(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	first, err := s.UpsertOrder(ctx, storage.OrderUpsert{
		OrderID:        "1001",
		Payload:        []byte(`{"v":1}`),
		StandardStatus: "pending",
		LastEvent:      "order.created",
	})
	if err != nil {
		t.Fatalf("first UpsertOrder() error = %v", err)
	}

	second, err := s.UpsertOrder(ctx, storage.OrderUpsert{
		OrderID:        "1001",
		Payload:        []byte(`{"v":2}`),
		StandardStatus: "paid",
		CustomStatus:   "ready",
		LastEvent:      "order.status.updated",
	})
	if err != nil {
		t.Fatalf("second UpsertOrder() error = %v", err)
	}

	if string(second.Payload) != `{"v":2}` || second.StandardStatus != "paid" || second.CustomStatus != "ready" {
		t.Errorf("second UpsertOrder() = %+v, want latest payload and statuses", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", second.UpdatedAt, first.UpdatedAt)
	}

	orders, err := s.ListOrders(ctx, 100)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("ListOrders() returned %d rows, want 1", len(orders))
	}
	if orders[0].LastEvent != "order.status.updated" {
		t.Errorf("LastEvent = %q, want order.status.updated", orders[0].LastEvent)
	}
}

func TestRefreshOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	if _, err := s.RefreshOrder(ctx, storage.OrderUpsert{OrderID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("RefreshOrder(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := s.UpsertOrder(ctx, storage.OrderUpsert{OrderID: "7", StandardStatus: "pending", LastEvent: "order.created"}); err != nil {
		t.Fatalf("UpsertOrder() error = %v", err)
	}

	got, err := s.RefreshOrder(ctx, storage.OrderUpsert{OrderID: "7", Payload: []byte(`{"fresh":true}`), StandardStatus: "completed"})
	if err != nil {
		t.Fatalf("RefreshOrder() error = %v", err)
	}
	if got.StandardStatus != "completed" || got.LastEvent != "order.created" {
		t.Errorf("RefreshOrder() = %+v, want status completed with last event untouched", got)
	}

	if _, err := s.GetOrder(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetOrder(nope) error = %v, want ErrNotFound", err)
	}
}

func TestTokenUpsert(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	if _, err := s.GetToken(ctx, storage.ProviderSalla); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetToken() on empty store error = %v, want ErrNotFound", err)
	}

	expiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpsertToken(ctx, storage.Token{
		Provider:     storage.ProviderSalla,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiry,
	}); err != nil {
		t.Fatalf("UpsertToken() error = %v", err)
	}

	if err := s.UpsertToken(ctx, storage.Token{Provider: storage.ProviderSalla, AccessToken: "access-2"}); err != nil {
		t.Fatalf("second UpsertToken() error = %v", err)
	}

	got, err := s.GetToken(ctx, storage.ProviderSalla)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-1" {
		t.Errorf("GetToken() = %+v, want access-2 with refresh-1 kept", got)
	}
	if !got.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero after upsert without expiry", got.ExpiresAt)
	}
}

func TestClaimTransactionOncePerOrderSKU(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := range workers {
		wg.Go(func() {
			ok, err := s.ClaimTransaction(ctx, storage.Transaction{
				IDTrx:    "trx-" + string(rune('a'+i)),
				OrderID:  "1001",
				SKU:      "ML86",
				Target:   "P123|Z9",
				Response: []byte(`{"state":"pending"}`),
			})
			if err != nil {
				t.Errorf("ClaimTransaction() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if claimed != 1 {
		t.Fatalf("claimed = %d, want exactly 1", claimed)
	}

	txs, err := s.ListTransactions(ctx, "1001")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("ListTransactions() returned %d rows, want 1", len(txs))
	}

	other, err := s.ClaimTransaction(ctx, storage.Transaction{IDTrx: "trx-other", OrderID: "1001", SKU: "FF100", Target: "P1"})
	if err != nil || !other {
		t.Errorf("ClaimTransaction() for another sku = %v, %v; want true, nil", other, err)
	}
}

func TestTransactionCompleteAndCallback(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	if _, err := s.ClaimTransaction(ctx, storage.Transaction{IDTrx: "trx-1", OrderID: "5", SKU: "FF100", Target: "P1"}); err != nil {
		t.Fatalf("ClaimTransaction() error = %v", err)
	}
	if err := s.CompleteTransaction(ctx, "trx-1", []byte(`{"state":"sent","http_status":200}`)); err != nil {
		t.Fatalf("CompleteTransaction() error = %v", err)
	}
	if err := s.RecordCallback(ctx, "trx-1", []byte(`{"status":"success"}`)); err != nil {
		t.Fatalf("RecordCallback() error = %v", err)
	}
	if err := s.RecordCallback(ctx, "trx-unknown", []byte(`{}`)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RecordCallback(unknown) error = %v, want ErrNotFound", err)
	}
	if err := s.CompleteTransaction(ctx, "trx-unknown", nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CompleteTransaction(unknown) error = %v, want ErrNotFound", err)
	}

	got, err := s.GetTransaction(ctx, "trx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if string(got.Response) != `{"state":"sent","http_status":200}` {
		t.Errorf("Response = %s", got.Response)
	}
	if string(got.Callback) != `{"status":"success"}` || got.CallbackAt.IsZero() {
		t.Errorf("Callback = %s at %v, want stored callback", got.Callback, got.CallbackAt)
	}
}

func TestReplaceCatalog(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	if _, err := s.LastCatalogSync(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("LastCatalogSync() on empty catalog error = %v, want ErrNotFound", err)
	}

	gold := 9.5
	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	removed, err := s.ReplaceCatalog(ctx, []storage.CatalogEntry{
		{ServiceID: "ML86", Name: "86 Diamonds", Category: "Mobile Legends", Price: 10, PriceGold: &gold, Status: "active"},
		{ServiceID: "FF100", Name: "100 Diamonds", Category: "Free Fire", Price: 5.25, Status: "active"},
	}, first)
	if err != nil || removed != 0 {
		t.Fatalf("first ReplaceCatalog() = %d, %v; want 0, nil", removed, err)
	}

	second := first.Add(time.Hour)
	removed, err = s.ReplaceCatalog(ctx, []storage.CatalogEntry{
		{ServiceID: "ML86", Name: "86 Diamonds", Category: "Mobile Legends", Price: 11, Status: "inactive"},
	}, second)
	if err != nil || removed != 1 {
		t.Fatalf("second ReplaceCatalog() = %d, %v; want 1, nil", removed, err)
	}

	removed, err = s.ReplaceCatalog(ctx, nil, second.Add(time.Hour))
	if err != nil || removed != 0 {
		t.Fatalf("empty ReplaceCatalog() = %d, %v; want 0, nil", removed, err)
	}

	entries, err := s.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ListCatalog() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.ServiceID != "ML86" || got.Price != 11 || got.Status != "inactive" || got.PriceGold != nil {
		t.Errorf("ListCatalog()[0] = %+v", got)
	}

	if _, err := s.GetCatalogEntry(ctx, "FF100"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCatalogEntry(FF100) error = %v, want ErrNotFound", err)
	}

	last, err := s.LastCatalogSync(ctx)
	if err != nil {
		t.Fatalf("LastCatalogSync() error = %v", err)
	}
	if !last.Equal(second) {
		t.Errorf("LastCatalogSync() = %v, want %v", last, second)
	}
}
