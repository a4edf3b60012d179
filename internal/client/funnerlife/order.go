package funnerlife

import (
	"context"
	"net/http"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

type ChargeRequest struct {
	IDTrx       string
	Service     string
	Target      string
	CallbackURL string
}

type chargeBody struct {
	APIKey   string `json:"api_key"`
	IDTrx    string `json:"idtrx"`
	Service  string `json:"service"`
	Target   string `json:"target"`
	Callback string `json:"callback"`
}

// ChargeResult is the raw outcome of a charge attempt. HTTPStatus is zero
// when no response was received.
type ChargeResult struct {
	HTTPStatus int
	Body       []byte
	Err        error
}

func (r ChargeResult) OK() bool {
	return r.Err == nil && r.HTTPStatus >= http.StatusOK && r.HTTPStatus < http.StatusMultipleChoices
}

// Charge places a top-up order. It never retries and never returns an
// error; failures are captured in the result so the caller can record them.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) ChargeResult {
	status, body, err := c.post(ctx, "order", chargeBody{
		APIKey:   c.apiKey,
		IDTrx:    req.IDTrx,
		Service:  req.Service,
		Target:   req.Target,
		Callback: req.CallbackURL,
	})

	res := ChargeResult{HTTPStatus: status, Body: body, Err: err}
	if !res.OK() {
		c.logger.WarnContext(ctx, "charge not accepted",
			xslog.TransactionID(req.IDTrx),
			xslog.SKU(req.Service),
			xslog.HTTPStatus(status),
			xslog.ErrorAny(err),
		)
	}
	return res
}
