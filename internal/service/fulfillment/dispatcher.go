package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

var pendingResponse = []byte(`{"state":"pending"}`)

var _ Service = (*Dispatcher)(nil)

type Config struct {
	PayableStatuses []string
	ZoneCategories  []string
	Concurrency     int
	CallbackURL     string
}

type Dispatcher struct {
	store       storage.TransactionStore
	catalog     Resolver
	charger     Charger
	payable     map[string]struct{}
	zoned       map[string]struct{}
	concurrency int
	callbackURL string
	newID       func() string
}

type Option func(*Dispatcher)

// WithIDFunc overrides transaction id generation.
func WithIDFunc(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

func NewDispatcher(store storage.TransactionStore, catalog Resolver, charger Charger, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		catalog:     catalog,
		charger:     charger,
		payable:     toSet(cfg.PayableStatuses),
		zoned:       toSet(cfg.ZoneCategories),
		concurrency: max(cfg.Concurrency, 1),
		callbackURL: cfg.CallbackURL,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, orderID string, order salla.Order) Report {
	report := Report{OrderID: orderID, Status: order.Status.Slug}
	if _, ok := d.payable[order.Status.Slug]; !ok {
		return report
	}
	report.Payable = true
	report.Items = make([]ItemResult, len(order.Items))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, item := range order.Items {
		g.Go(func() error {
			report.Items[i] = d.dispatchItem(ctx, orderID, item)
			return nil
		})
	}
	_ = g.Wait()

	xslog.FromContext(ctx).InfoContext(ctx, "order dispatched",
		xslog.OrderID(orderID),
		xslog.OrderStatus(order.Status.Slug),
		slog.Int("items", len(report.Items)),
		slog.Int(string(OutcomeDispatched), report.Count(OutcomeDispatched)),
		slog.Int(string(OutcomeChargeFailed), report.Count(OutcomeChargeFailed)),
		slog.Int(string(OutcomeDuplicate), report.Count(OutcomeDuplicate)),
	)
	return report
}

func (d *Dispatcher) dispatchItem(ctx context.Context, orderID string, item salla.Item) ItemResult {
	sku := strings.TrimSpace(item.SKU.String())
	res := ItemResult{SKU: sku}
	logger := xslog.FromContext(ctx).With(xslog.ItemGroup(orderID, sku))

	if item.Err != nil {
		return d.fail(ctx, logger, res, item.Err)
	}
	if sku == "" {
		res.Outcome = OutcomeSkipped
		return res
	}

	entry, err := d.catalog.Resolve(ctx, sku)
	if errors.Is(err, storage.ErrNotFound) {
		logger.InfoContext(ctx, "sku not in catalog, skipping")
		res.Outcome = OutcomeUnknownSKU
		return res
	}
	if err != nil {
		return d.fail(ctx, logger, res, fmt.Errorf("resolve sku: %w", err))
	}

	target, err := Target(item, entry.Category, d.zoned)
	if err != nil {
		return d.fail(ctx, logger, res, err)
	}
	res.Target = target

	idtrx := d.newID()
	claimed, err := d.store.ClaimTransaction(ctx, storage.Transaction{
		IDTrx:    idtrx,
		OrderID:  orderID,
		SKU:      sku,
		Target:   target,
		Response: pendingResponse,
	})
	if err != nil {
		return d.fail(ctx, logger, res, fmt.Errorf("claim transaction: %w", err))
	}
	if !claimed {
		logger.InfoContext(ctx, "item already fulfilled")
		res.Outcome = OutcomeDuplicate
		return res
	}
	res.IDTrx = idtrx

	// The row is claimed. Charge and record even if the caller goes away so
	// that it never stays pending.
	ctx = context.WithoutCancel(ctx)

	charge := d.charger.Charge(ctx, funnerlife.ChargeRequest{
		IDTrx:       idtrx,
		Service:     sku,
		Target:      target,
		CallbackURL: d.callbackURL,
	})
	res.Outcome = OutcomeDispatched
	if !charge.OK() {
		res.Outcome = OutcomeChargeFailed
		res.Err = charge.Err
	}

	if err := d.store.CompleteTransaction(ctx, idtrx, chargeRecord(charge)); err != nil {
		logger.ErrorContext(ctx, "failed to record charge response",
			xslog.TransactionID(idtrx),
			xslog.Error(err),
		)
		res.Err = errors.Join(res.Err, err)
	}

	logger.InfoContext(ctx, "charge sent",
		xslog.TransactionID(idtrx),
		xslog.Target(target),
		xslog.Outcome(string(res.Outcome)),
		xslog.HTTPStatus(charge.HTTPStatus),
	)
	return res
}

func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, res ItemResult, err error) ItemResult {
	logger.WarnContext(ctx, "item not dispatched", xslog.Error(err))
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

type chargeResponse struct {
	State      string `json:"state"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Body       any    `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// chargeRecord is the stored form of a charge outcome. A JSON body is kept
// as a document, anything else as a string.
func chargeRecord(c funnerlife.ChargeResult) []byte {
	rec := chargeResponse{State: "sent", HTTPStatus: c.HTTPStatus}
	if !c.OK() {
		rec.State = "failed"
	}
	if c.Err != nil {
		rec.Error = c.Err.Error()
	}
	if len(c.Body) > 0 {
		if go_json.Valid(c.Body) {
			rec.Body = go_json.RawMessage(c.Body)
		} else {
			rec.Body = string(c.Body)
		}
	}

	data, err := go_json.Marshal(rec)
	if err != nil {
		return []byte(`{"state":"failed","error":"unencodable charge response"}`)
	}
	return data
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
