package storage

import "time"

// ProviderSalla is the TokenStore key for storefront credentials.
const ProviderSalla = "salla"

type WebhookEvent struct {
	EventID        string
	EventType      string
	Payload        []byte
	SignatureValid bool
	ReceivedAt     time.Time
}

type OrderUpsert struct {
	OrderID        string
	Payload        []byte
	StandardStatus string
	CustomStatus   string
	LastEvent      string
}

type Order struct {
	OrderID        string
	Payload        []byte
	StandardStatus string
	CustomStatus   string
	LastEvent      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Token struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the provider did not report an expiry.
	ExpiresAt time.Time
	UpdatedAt time.Time
}

type Transaction struct {
	IDTrx      string
	OrderID    string
	SKU        string
	Target     string
	Response   []byte
	Callback   []byte
	CallbackAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CatalogEntry struct {
	ServiceID    string
	Name         string
	Category     string
	Price        float64
	PriceGold    *float64
	PriceSilver  *float64
	PricePro     *float64
	Status       string
	LastSyncedAt time.Time
}
