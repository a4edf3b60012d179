package fulfillment

import (
	"context"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

type Service interface {
	// Dispatch charges every qualifying line item of a payable order at most
	// once per (order, sku). Item failures are reported, never returned.
	Dispatch(ctx context.Context, orderID string, order salla.Order) Report
}

type Resolver interface {
	Resolve(ctx context.Context, sku string) (storage.CatalogEntry, error)
}

type Charger interface {
	Charge(ctx context.Context, req funnerlife.ChargeRequest) funnerlife.ChargeResult
}

type Outcome string

const (
	OutcomeDispatched   Outcome = "dispatched"
	OutcomeChargeFailed Outcome = "charge_failed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnknownSKU   Outcome = "unknown_sku"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeFailed       Outcome = "failed"
)

type ItemResult struct {
	SKU     string
	IDTrx   string
	Target  string
	Outcome Outcome
	Err     error
}

type Report struct {
	OrderID string
	Status  string
	Payable bool
	Items   []ItemResult
}

func (r Report) Count(o Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == o {
			n++
		}
	}
	return n
}
