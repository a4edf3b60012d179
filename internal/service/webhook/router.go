package webhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/fulfillment"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

type TokenSaver interface {
	Save(ctx context.Context, token *oauth2.Token) error
}

type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (salla.FetchResult, error)
}

type Config struct {
	Verifier         Verifier
	RequireSignature bool
	Events           storage.EventLog
	Orders           storage.OrderStore
	Tokens           TokenSaver
	Fetcher          OrderFetcher
	Dispatcher       fulfillment.Service
}

var _ Service = (*Router)(nil)

type Router struct {
	verifier         Verifier
	requireSignature bool
	events           storage.EventLog
	orders           storage.OrderStore
	tokens           TokenSaver
	fetcher          OrderFetcher
	dispatcher       fulfillment.Service
	now              func() time.Time
}

type Option func(*Router)

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

func NewRouter(cfg Config, opts ...Option) *Router {
	r := &Router{
		verifier:         cfg.Verifier,
		requireSignature: cfg.RequireSignature,
		events:           cfg.Events,
		orders:           cfg.Orders,
		tokens:           cfg.Tokens,
		fetcher:          cfg.Fetcher,
		dispatcher:       cfg.Dispatcher,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Handle(ctx context.Context, req Request) (Result, error) {
	logger := xslog.FromContext(ctx)

	verdict := r.verifier.Verify(req.Body, req.Signature)
	switch {
	case verdict == VerifyInvalid:
		return Result{}, ErrInvalidSignature
	case verdict == VerifyUnverifiable && r.requireSignature:
		return Result{}, ErrMissingSignature
	}

	env := parseEnvelope(req.Body)
	if env.EventID == "" {
		// Deliveries without an id cannot be deduplicated.
		env.EventID = "auto-" + strconv.FormatInt(r.now().UnixNano(), 10)
		logger.WarnContext(ctx, "webhook without event id", xslog.EventID(env.EventID))
	}

	ctx = xslog.WithAttrs(ctx, xslog.EventID(env.EventID), xslog.EventType(env.Event))
	logger = xslog.FromContext(ctx)
	result := Result{EventID: env.EventID, EventType: env.Event}

	created, err := r.events.RecordEvent(ctx, storage.WebhookEvent{
		EventID:        env.EventID,
		EventType:      env.Event,
		Payload:        env.Payload,
		SignatureValid: verdict == VerifyValid,
		ReceivedAt:     r.now(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		logger.InfoContext(ctx, "duplicate webhook delivery")
		result.Duplicate = true
		return result, nil
	}

	logger.InfoContext(ctx, "webhook recorded", xslog.SignatureValid(verdict == VerifyValid))

	switch {
	case env.Event == EventAppStoreAuthorize:
		return r.handleAuthorize(ctx, env, result)
	case IsOrderEvent(env.Event):
		return r.handleOrder(ctx, env, result)
	default:
		result.Ignored = true
		return result, nil
	}
}

func (r *Router) handleAuthorize(ctx context.Context, env envelope, result Result) (Result, error) {
	data := env.authorize()
	if data.AccessToken == "" {
		return Result{}, ErrMissingAccessToken
	}

	if err := r.tokens.Save(ctx, &oauth2.Token{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       data.Expiry,
	}); err != nil {
		return Result{}, fmt.Errorf("save storefront token: %w", err)
	}

	xslog.FromContext(ctx).InfoContext(ctx, "storefront token saved", xslog.Provider(storage.ProviderSalla))
	result.TokenSaved = true
	return result, nil
}

func (r *Router) handleOrder(ctx context.Context, env envelope, result Result) (Result, error) {
	logger := xslog.FromContext(ctx)

	orderID, ok := env.OrderID()
	if !ok {
		logger.WarnContext(ctx, "order event without order id")
		result.NoOrderID = true
		return result, nil
	}
	result.OrderID = orderID
	ctx = xslog.WithAttrs(ctx, xslog.OrderID(orderID))
	logger = xslog.FromContext(ctx)

	fetched, err := r.fetcher.FetchOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, oauth.ErrNoToken) || errors.Is(err, oauth.ErrTokenExpired) {
			return Result{}, fmt.Errorf("%w: %w", ErrCredentialMissing, err)
		}
		return Result{}, fmt.Errorf("fetch order: %w", err)
	}
	if fetched.Status != salla.FetchOK {
		logger.WarnContext(ctx, "storing incomplete order snapshot", xslog.Fetch(fetched))
	}

	if _, err := r.orders.UpsertOrder(ctx, storage.OrderUpsert{
		OrderID:        orderID,
		Payload:        fetched.Payload,
		StandardStatus: fetched.Order.Status.Slug,
		CustomStatus:   fetched.Order.Status.CustomSlug(),
		LastEvent:      env.Event,
	}); err != nil {
		return Result{}, fmt.Errorf("upsert order: %w", err)
	}

	report := r.dispatcher.Dispatch(ctx, orderID, fetched.Order)
	result.Saved = true
	result.Report = &report
	return result, nil
}
