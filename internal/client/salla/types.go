package salla

import (
	"bytes"
	"fmt"

	go_json "github.com/goccy/go-json"
)

// Text is a JSON scalar read as a string. Storefront payloads send ids and
// skus as either strings or numbers; numbers keep their literal form.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := go_json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("salla: cannot read %s as text", b)
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Values is an option value list. A bare scalar is read as a single value.
type Values []string

func (v *Values) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []Text
		if err := go_json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make(Values, 0, len(items))
		for _, item := range items {
			out = append(out, string(item))
		}
		*v = out
		return nil
	}

	var single Text
	if err := go_json.Unmarshal(b, &single); err != nil {
		return err
	}
	if single == "" {
		*v = nil
		return nil
	}
	*v = Values{string(single)}
	return nil
}

// First returns the first value, if any.
func (v Values) First() (string, bool) {
	if len(v) == 0 || v[0] == "" {
		return "", false
	}
	return v[0], true
}

type Status struct {
	Slug       string        `json:"slug"`
	Name       string        `json:"name"`
	Customized *CustomStatus `json:"customized,omitempty"`
}

type CustomStatus struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (s *Status) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return go_json.Unmarshal(b, &s.Slug)
	}
	type plain Status
	var p plain
	if err := go_json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Status(p)
	return nil
}

func (s Status) CustomSlug() string {
	if s.Customized == nil {
		return ""
	}
	return s.Customized.Slug
}

type ItemOption struct {
	Name  string `json:"name"`
	Value Values `json:"value"`
}

type Item struct {
	ID       Text         `json:"id"`
	Name     string       `json:"name"`
	SKU      Text         `json:"sku"`
	Quantity Text         `json:"quantity"`
	Options  []ItemOption `json:"options"`

	// Err is set when the item could not be read. Only ID, Name and SKU are
	// filled in then, as far as they were readable.
	Err error `json:"-"`
}

// Order is the subset of an order document the fulfillment pipeline reads.
// The full document is kept as raw JSON alongside it.
type Order struct {
	ID     Text   `json:"id"`
	Status Status `json:"status"`
	Items  []Item `json:"items"`
}

// UnmarshalJSON reads each line item on its own so that one unreadable item
// does not hide the others.
func (o *Order) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     Text                 `json:"id"`
		Status Status               `json:"status"`
		Items  []go_json.RawMessage `json:"items"`
	}
	if err := go_json.Unmarshal(b, &raw); err != nil {
		return err
	}

	o.ID = raw.ID
	o.Status = raw.Status
	o.Items = nil
	for i, r := range raw.Items {
		o.Items = append(o.Items, decodeItem(i, r))
	}
	return nil
}

func decodeItem(index int, raw go_json.RawMessage) Item {
	var item Item
	err := go_json.Unmarshal(raw, &item)
	if err == nil {
		return item
	}

	var head struct {
		ID   go_json.RawMessage `json:"id"`
		Name go_json.RawMessage `json:"name"`
		SKU  go_json.RawMessage `json:"sku"`
	}
	_ = go_json.Unmarshal(raw, &head)

	partial := Item{Err: fmt.Errorf("salla: item %d: %w", index, err)}
	_ = go_json.Unmarshal(head.ID, &partial.ID)
	_ = go_json.Unmarshal(head.Name, &partial.Name)
	_ = go_json.Unmarshal(head.SKU, &partial.SKU)
	return partial
}
