package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/order"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xcontext"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xerrors"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const ordersLimit = 500

type Orders struct {
	service order.Service
}

func NewOrders(service order.Service) *Orders {
	return &Orders{service: service}
}

type orderSummary struct {
	OrderID        string    `json:"order_id"`
	StandardStatus string    `json:"standard_status"`
	CustomStatus   string    `json:"custom_status"`
	LastEvent      string    `json:"last_event"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type transactionView struct {
	IDTrx      string             `json:"idtrx"`
	SKU        string             `json:"sku"`
	Target     string             `json:"target"`
	Response   go_json.RawMessage `json:"response"`
	Callback   go_json.RawMessage `json:"callback"`
	CallbackAt *time.Time         `json:"callback_at"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type orderDetail struct {
	orderSummary
	FullPayload  go_json.RawMessage `json:"full_payload"`
	Transactions []transactionView  `json:"transactions"`
	Refreshed    bool               `json:"refreshed"`
}

// HandleList handles GET /api/salla/orders requests.
func (h *Orders) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.service.List(ctx, ordersLimit)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to list orders"), xerrors.WithCause(err)))
		return
	}

	summaries := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, summarize(o))
	}

	xhttp.WriteOK(w, map[string]any{
		"count":  len(summaries),
		"orders": summaries,
	})
}

// HandleGet handles GET /api/salla/orders/{order_id} requests.
func (h *Orders) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := r.PathValue("order_id")
	refresh := r.URL.Query().Get("refresh") == "true"

	if refresh {
		subject, _ := xcontext.GetAdminSubject(ctx)
		xslog.FromContext(ctx).InfoContext(ctx, "order refresh requested",
			xslog.OrderID(orderID),
			slog.String("admin", subject),
		)
	}

	detail, err := h.service.Get(ctx, orderID, refresh)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			xerrors.WriteError(ctx, w, xerrors.NotFound(xerrors.WithMessage("order not found")))
		case errors.Is(err, order.ErrCredentialMissing):
			xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
				xerrors.WithCode("credential_missing"),
				xerrors.WithMessage("storefront token missing, cannot refresh order"),
				xerrors.WithCause(err),
			))
		default:
			xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to load order"), xerrors.WithCause(err)))
		}
		return
	}

	txs := make([]transactionView, 0, len(detail.Transactions))
	for _, tx := range detail.Transactions {
		view := transactionView{
			IDTrx:     tx.IDTrx,
			SKU:       tx.SKU,
			Target:    tx.Target,
			Response:  rawOrNull(tx.Response),
			Callback:  rawOrNull(tx.Callback),
			CreatedAt: tx.CreatedAt,
			UpdatedAt: tx.UpdatedAt,
		}
		if !tx.CallbackAt.IsZero() {
			view.CallbackAt = &tx.CallbackAt
		}
		txs = append(txs, view)
	}

	xhttp.WriteOK(w, orderDetail{
		orderSummary: summarize(detail.Order),
		FullPayload:  rawOrNull(detail.Order.Payload),
		Transactions: txs,
		Refreshed:    detail.Refreshed,
	})
}

func summarize(o storage.Order) orderSummary {
	return orderSummary{
		OrderID:        o.OrderID,
		StandardStatus: o.StandardStatus,
		CustomStatus:   o.CustomStatus,
		LastEvent:      o.LastEvent,
		UpdatedAt:      o.UpdatedAt,
	}
}

func rawOrNull(b []byte) go_json.RawMessage {
	if len(b) == 0 {
		return go_json.RawMessage("null")
	}
	return go_json.RawMessage(b)
}
