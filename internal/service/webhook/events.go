package webhook

import (
	"bytes"
	"strconv"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
)

const (
	EventAppStoreAuthorize = "app.store.authorize"
	eventUnknown           = "unknown"
)

var orderEvents = map[string]struct{}{
	"order.created":         {},
	"order.updated":         {},
	"order.status.updated":  {},
	"order.payment.updated": {},
	"invoice.created":       {},
}

func IsOrderEvent(eventType string) bool {
	_, ok := orderEvents[eventType]
	return ok
}

type envelope struct {
	Event   string
	EventID string
	Data    map[string]go_json.RawMessage
	// Payload is the body as stored: the original bytes when they form a
	// JSON object, "{}" otherwise.
	Payload []byte
}

// parseEnvelope never fails. Malformed or non-object bodies become an empty
// payload of type "unknown".
func parseEnvelope(body []byte) envelope {
	env := envelope{Event: eventUnknown, Payload: []byte("{}")}

	var raw map[string]go_json.RawMessage
	if err := go_json.Unmarshal(body, &raw); err != nil || raw == nil {
		return env
	}
	env.Payload = bytes.TrimSpace(body)

	var event string
	if go_json.Unmarshal(raw["event"], &event) == nil && event != "" {
		env.Event = event
	}
	env.EventID = text(raw["event_id"])

	var data map[string]go_json.RawMessage
	if go_json.Unmarshal(raw["data"], &data) == nil {
		env.Data = data
	}
	return env
}

// OrderID returns the first of data.id, data.order_id and data.checkout_id
// that is present and non-zero.
func (e envelope) OrderID() (string, bool) {
	for _, key := range []string{"id", "order_id", "checkout_id"} {
		if id := text(e.Data[key]); id != "" && id != "0" {
			return id, true
		}
	}
	return "", false
}

type authorizeData struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

func (e envelope) authorize() authorizeData {
	a := authorizeData{
		AccessToken:  text(e.Data["access_token"]),
		RefreshToken: text(e.Data["refresh_token"]),
	}
	if expires, err := strconv.ParseInt(text(e.Data["expires"]), 10, 64); err == nil && expires > 0 {
		a.Expiry = time.Unix(expires, 0).UTC()
	}
	return a
}

func text(raw go_json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var t salla.Text
	if err := go_json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t.String()
}
