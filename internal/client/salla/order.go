package salla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	go_json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

type FetchStatus int

const (
	FetchOK FetchStatus = iota
	// FetchPartial means exactly one of the details and items calls failed.
	FetchPartial
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchPartial:
		return "partial"
	case FetchFailed:
		return "failed"
	default:
		return fmt.Sprintf("FetchStatus(%d)", int(s))
	}
}

type FetchResult struct {
	Order Order
	// Payload is the order document with the item list merged in under
	// "items". It is "{"items":[]}" when both calls failed.
	Payload []byte
	Status  FetchStatus
	// Err joins the upstream failures. Nil when Status is FetchOK.
	Err error
}

// FetchOrder loads the order document and its line items concurrently.
// Upstream failures are reported through FetchResult; the returned error is
// reserved for a missing or unusable credential.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (FetchResult, error) {
	if _, err := c.tokenSource.Token(); err != nil {
		if errors.Is(err, oauth.ErrNoToken) || errors.Is(err, oauth.ErrTokenExpired) {
			return FetchResult{}, err
		}
		return failedFetch(fmt.Errorf("getting token: %w", err)), nil
	}

	var (
		details    map[string]go_json.RawMessage
		items      []go_json.RawMessage
		detailsErr error
		itemsErr   error
		g          errgroup.Group
	)

	g.Go(func() error {
		var resp envelope[map[string]go_json.RawMessage]
		if err := c.get(ctx, "orders/"+url.PathEscape(orderID), nil, &resp); err != nil {
			detailsErr = fmt.Errorf("fetch order details: %w", err)
			return nil
		}
		details = resp.Data
		return nil
	})
	g.Go(func() error {
		var resp envelope[[]go_json.RawMessage]
		if err := c.get(ctx, "orders/items", url.Values{"order_id": {orderID}}, &resp); err != nil {
			itemsErr = fmt.Errorf("fetch order items: %w", err)
			return nil
		}
		items = resp.Data
		return nil
	})
	_ = g.Wait()

	result := FetchResult{Status: FetchOK, Err: errors.Join(detailsErr, itemsErr)}
	switch {
	case detailsErr != nil && itemsErr != nil:
		result.Status = FetchFailed
	case detailsErr != nil || itemsErr != nil:
		result.Status = FetchPartial
	}

	if details == nil {
		details = make(map[string]go_json.RawMessage, 1)
	}
	if items == nil {
		items = []go_json.RawMessage{}
	}
	rawItems, err := go_json.Marshal(items)
	if err != nil {
		return failedFetch(fmt.Errorf("encode order items: %w", err)), nil
	}
	details["items"] = rawItems

	payload, err := go_json.Marshal(details)
	if err != nil {
		return failedFetch(fmt.Errorf("encode order payload: %w", err)), nil
	}
	result.Payload = payload

	if err := go_json.Unmarshal(payload, &result.Order); err != nil {
		result.Err = errors.Join(result.Err, fmt.Errorf("decode order: %w", err))
		if result.Status == FetchOK {
			result.Status = FetchPartial
		}
	}

	if result.Err != nil {
		c.logger.WarnContext(ctx, "order fetch incomplete",
			xslog.OrderID(orderID),
			xslog.FetchStatus(result.Status.String()),
			xslog.Error(result.Err),
		)
	}
	return result, nil
}

func failedFetch(err error) FetchResult {
	return FetchResult{
		Payload: []byte(`{"items":[]}`),
		Status:  FetchFailed,
		Err:     err,
	}
}

// LogValue lets a FetchResult be logged as a group.
func (r FetchResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("status", r.Status.String()),
		slog.Int("items", len(r.Order.Items)),
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
