package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

var _ Service = (*Dashboard)(nil)

type Dashboard struct {
	orders       storage.OrderStore
	transactions storage.TransactionStore
	fetcher      Fetcher
}

func NewDashboard(orders storage.OrderStore, transactions storage.TransactionStore, fetcher Fetcher) *Dashboard {
	return &Dashboard{
		orders:       orders,
		transactions: transactions,
		fetcher:      fetcher,
	}
}

func (d *Dashboard) List(ctx context.Context, limit int) ([]storage.Order, error) {
	return d.orders.ListOrders(ctx, limit)
}

func (d *Dashboard) Get(ctx context.Context, orderID string, refresh bool) (Detail, error) {
	o, err := d.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Order: o}

	if refresh {
		refreshed, err := d.refresh(ctx, orderID)
		if err != nil {
			return Detail{}, err
		}
		if refreshed != nil {
			detail.Order = *refreshed
			detail.Refreshed = true
		}
	}

	txs, err := d.transactions.ListTransactions(ctx, orderID)
	if err != nil {
		return Detail{}, fmt.Errorf("list transactions: %w", err)
	}
	detail.Transactions = txs
	return detail, nil
}

func (d *Dashboard) refresh(ctx context.Context, orderID string) (*storage.Order, error) {
	fetched, err := d.fetcher.FetchOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, oauth.ErrNoToken) || errors.Is(err, oauth.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrCredentialMissing, err)
		}
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if fetched.Status == salla.FetchFailed {
		xslog.FromContext(ctx).WarnContext(ctx, "order refresh failed, keeping stored snapshot",
			xslog.OrderID(orderID),
			xslog.ErrorAny(fetched.Err),
		)
		return nil, nil
	}

	o, err := d.orders.RefreshOrder(ctx, storage.OrderUpsert{
		OrderID:        orderID,
		Payload:        fetched.Payload,
		StandardStatus: fetched.Order.Status.Slug,
		CustomStatus:   fetched.Order.Status.CustomSlug(),
	})
	if err != nil {
		return nil, fmt.Errorf("refresh order: %w", err)
	}
	return &o, nil
}
