package storage

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewSQLStore(db), mock
}

func TestSQLStoreErrorPaths(t *testing.T) {
	t.Parallel()

	errConn := errors.New("connection reset")

	t.Run("get order maps no rows to not found", func(t *testing.T) {
		t.Parallel()

		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(getOrderQuery)).
			WithArgs("42").
			WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

		if _, err := s.GetOrder(t.Context(), "42"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOrder() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("record event wraps driver errors", func(t *testing.T) {
		t.Parallel()

		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(insertEventQuery)).WillReturnError(errConn)

		created, err := s.RecordEvent(t.Context(), WebhookEvent{EventID: "evt", EventType: "order.created"})
		if created || !errors.Is(err, errConn) {
			t.Errorf("RecordEvent() = %v, %v; want false, wrapped %v", created, err, errConn)
		}
	})

	t.Run("claim transaction surfaces errors instead of claiming", func(t *testing.T) {
		t.Parallel()

		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(claimTransactionQuery)).WillReturnError(errConn)

		claimed, err := s.ClaimTransaction(t.Context(), Transaction{IDTrx: "t", OrderID: "1", SKU: "s"})
		if claimed || !errors.Is(err, errConn) {
			t.Errorf("ClaimTransaction() = %v, %v; want false, wrapped %v", claimed, err, errConn)
		}
	})

	t.Run("catalog sync rolls back on failure", func(t *testing.T) {
		t.Parallel()

		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectPrepare(regexp.QuoteMeta(upsertCatalogQuery)).
			ExpectExec().
			WillReturnError(errConn)
		mock.ExpectRollback()

		_, err := s.ReplaceCatalog(t.Context(), []CatalogEntry{{ServiceID: "ML86"}}, normalizeSyncTime(testTime))
		if !errors.Is(err, errConn) {
			t.Errorf("ReplaceCatalog() error = %v, want wrapped %v", err, errConn)
		}
	})
}
