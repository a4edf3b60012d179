package webhook

import (
	"context"
	"errors"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/fulfillment"
)

var (
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMissingAccessToken = errors.New("authorize event without access token")

	// ErrCredentialMissing means the storefront token is absent or expired
	// beyond refresh. It needs an operator, not a retry.
	ErrCredentialMissing = errors.New("storefront credential missing")
)

type Request struct {
	Body      []byte
	Signature string
}

// Result is the acknowledgement body returned to the storefront. Exactly
// one of the flags is set.
type Result struct {
	Duplicate  bool `json:"duplicate,omitempty"`
	TokenSaved bool `json:"token_saved,omitempty"`
	Ignored    bool `json:"ignored,omitempty"`
	NoOrderID  bool `json:"no_order_id,omitempty"`
	Saved      bool `json:"saved,omitempty"`

	EventID   string              `json:"-"`
	EventType string              `json:"-"`
	OrderID   string              `json:"-"`
	Report    *fulfillment.Report `json:"-"`
}

type Service interface {
	// Handle verifies, records and routes one webhook delivery.
	// Returns ErrMissingSignature or ErrInvalidSignature before anything is
	// recorded. Returns ErrCredentialMissing when an order event cannot be
	// fetched for lack of a storefront token; the event stays recorded.
	Handle(ctx context.Context, req Request) (Result, error)
}
