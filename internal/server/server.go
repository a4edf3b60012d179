// Package server wires the HTTP handlers into routes and runs the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/server/handler"
	servermw "github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/server/middleware"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const (
	keyAddr            = "addr"
	keyShutdownTimeout = "shutdown_timeout"

	DefaultShutdownTimeout = 30 * time.Second
)

type Handlers struct {
	Webhook    *handler.Webhook
	Orders     *handler.Orders
	FunnerLife *handler.FunnerLife
	Health     *handler.Health
}

// Routes mounts every endpoint. Inbound callers from the storefront and the
// provider are rate limited per IP; dashboard reads need an admin token.
func Routes(h Handlers, limiter storage.RateLimiter, admin *servermw.AdminVerifier) http.Handler {
	limited := servermw.RateLimitWithBackend(limiter)
	authed := servermw.AdminAuth(admin)

	mux := http.NewServeMux()

	mux.Handle("POST /api/salla/webhook", limited(http.HandlerFunc(h.Webhook.HandleWebhook)))
	mux.Handle("POST /api/funnerlife/callback", limited(http.HandlerFunc(h.FunnerLife.HandleCallback)))

	mux.Handle("GET /api/salla/webhook", authed(http.HandlerFunc(h.Webhook.HandleListEvents)))
	mux.Handle("GET /api/salla/orders", authed(http.HandlerFunc(h.Orders.HandleList)))
	mux.Handle("GET /api/salla/orders/{order_id}", authed(http.HandlerFunc(h.Orders.HandleGet)))
	mux.Handle("GET /api/funnerlife/services", authed(http.HandlerFunc(h.FunnerLife.HandleServices)))

	mux.HandleFunc("GET /health", h.Health.HandleHealth)

	return mux
}

func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// order webhooks fetch from the storefront and charge the provider inline
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownTimeout.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	logger := xslog.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server", xslog.Version(), slog.String(keyAddr, srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.InfoContext(ctx, "shutdown signal received, draining requests",
		slog.Duration(keyShutdownTimeout, shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}
