package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/webhook"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xerrors"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const (
	headerSallaSignature = "X-Salla-Signature"
	recentEventsLimit    = 100
)

type Webhook struct {
	service      webhook.Service
	events       storage.EventLog
	maxBodyBytes int64
}

func NewWebhook(service webhook.Service, events storage.EventLog, maxBodyBytes int64) *Webhook {
	return &Webhook{service: service, events: events, maxBodyBytes: maxBodyBytes}
}

// HandleWebhook handles POST /api/salla/webhook requests.
func (h *Webhook) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := xhttp.ReadBody(w, r, h.maxBodyBytes)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.service.Handle(ctx, webhook.Request{
		Body:      body,
		Signature: r.Header.Get(headerSallaSignature),
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
			// rejected deliveries get a bare status
			xslog.FromContext(ctx).WarnContext(ctx, "webhook rejected", xslog.Error(err))
			w.WriteHeader(http.StatusUnauthorized)
		case errors.Is(err, webhook.ErrMissingAccessToken):
			xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("authorize event carries no access token")))
		case errors.Is(err, webhook.ErrCredentialMissing):
			xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
				xerrors.WithCode("credential_missing"),
				xerrors.WithMessage("storefront token missing: reinstall the app or set it with the ctl tool"),
				xerrors.WithCause(err),
			))
		default:
			xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to process webhook"), xerrors.WithCause(err)))
		}
		return
	}

	xhttp.WriteOK(w, result)
}

type eventView struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SignatureValid bool      `json:"signature_valid"`
	ReceivedAt     time.Time `json:"received_at"`
}

// HandleListEvents handles GET /api/salla/webhook requests.
func (h *Webhook) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.events.ListEvents(ctx, recentEventsLimit)
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to list webhook events"), xerrors.WithCause(err)))
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			EventID:        e.EventID,
			EventType:      e.EventType,
			SignatureValid: e.SignatureValid,
			ReceivedAt:     e.ReceivedAt,
		})
	}

	xhttp.WriteOK(w, map[string]any{
		"count":  len(views),
		"events": views,
	})
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, xhttp.ErrBodyTooLarge) {
		xerrors.WriteError(ctx, w, xerrors.PayloadTooLarge(xerrors.WithMessage("request body too large")))
		return
	}
	xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("failed to read request body"), xerrors.WithCause(err)))
}
