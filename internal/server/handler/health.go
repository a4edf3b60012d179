package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const healthTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	store   Pinger
	backend Pinger
	tokens  oauth.TokenChecker
}

func NewHealth(store Pinger, backend Pinger, tokens oauth.TokenChecker) *Health {
	return &Health{store: store, backend: backend, tokens: tokens}
}

type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Backend    string `json:"backend"`
	SallaToken bool   `json:"salla_token"`
}

// HandleHealth handles GET /health requests. A missing storefront token is
// reported but does not degrade the service.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	logger := xslog.FromContext(ctx)

	resp := healthResponse{Status: "ok", Database: "ok", Backend: "ok"}

	if err := h.store.Ping(ctx); err != nil {
		logger.ErrorContext(ctx, "database ping failed", xslog.Error(err))
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if err := h.backend.Ping(ctx); err != nil {
		logger.ErrorContext(ctx, "backend ping failed", xslog.Error(err))
		resp.Status = "degraded"
		resp.Backend = "unreachable"
	}

	hasToken, err := h.tokens.HasToken(ctx)
	if err != nil {
		logger.WarnContext(ctx, "token lookup failed", xslog.Error(err))
	}
	resp.SallaToken = hasToken

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	xhttp.WriteJSON(w, status, resp)
}
