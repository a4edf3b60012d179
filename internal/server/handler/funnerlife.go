package handler

import (
	"errors"
	"log/slog"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/catalog"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xerrors"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const maxCallbackBytes int64 = 64 << 10

type FunnerLife struct {
	catalog      catalog.Service
	transactions storage.TransactionStore
}

func NewFunnerLife(services catalog.Service, transactions storage.TransactionStore) *FunnerLife {
	return &FunnerLife{catalog: services, transactions: transactions}
}

type serviceView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	BasePrice   float64  `json:"base_price"`
	GoldPrice   *float64 `json:"gold_price"`
	SilverPrice *float64 `json:"silver_price"`
	ProPrice    *float64 `json:"pro_price"`
	Status      string   `json:"status"`
}

type servicesResponse struct {
	Count          int                     `json:"count"`
	Results        []serviceView           `json:"results"`
	CategoryCounts []catalog.CategoryCount `json:"category_counts,omitempty"`
}

// HandleServices handles GET /api/funnerlife/services requests.
func (h *FunnerLife) HandleServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	listing, err := h.catalog.List(ctx, catalog.Query{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Counts:   q.Get("counts") == "true",
	})
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to list services"), xerrors.WithCause(err)))
		return
	}

	results := make([]serviceView, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		results = append(results, serviceView{
			ID:          e.ServiceID,
			Name:        e.Name,
			Category:    e.Category,
			BasePrice:   e.Price,
			GoldPrice:   e.PriceGold,
			SilverPrice: e.PriceSilver,
			ProPrice:    e.PricePro,
			Status:      catalog.DisplayStatus(e.Status),
		})
	}

	xhttp.WriteOK(w, servicesResponse{
		Count:          len(results),
		Results:        results,
		CategoryCounts: listing.Counts,
	})
}

// HandleCallback handles POST /api/funnerlife/callback requests.
func (h *FunnerLife) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := xhttp.ReadBody(w, r, maxCallbackBytes)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var cb funnerlife.Callback
	if err := go_json.Unmarshal(body, &cb); err != nil {
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("invalid json"), xerrors.WithCause(err)))
		return
	}
	if cb.IDTrx == "" {
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("missing idtrx")))
		return
	}

	idtrx := string(cb.IDTrx)
	if err := h.transactions.RecordCallback(ctx, idtrx, body); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			xerrors.WriteError(ctx, w, xerrors.NotFound(xerrors.WithMessage("transaction not found")))
			return
		}
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to record callback"), xerrors.WithCause(err)))
		return
	}

	xslog.FromContext(ctx).InfoContext(ctx, "provider callback recorded",
		xslog.TransactionID(idtrx),
		slog.String("status", cb.Status),
	)

	xhttp.WriteOK(w, map[string]bool{"received": true})
}
