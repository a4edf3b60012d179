package funnerlife

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	go_json "github.com/goccy/go-json"
)

// ID is a service or transaction identifier the API sends as either a
// string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := go_json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	*id = ID(b)
	return nil
}

// Amount is a price sent as a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("funnerlife: invalid amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

func (a *Amount) Float() *float64 {
	if a == nil {
		return nil
	}
	f := float64(*a)
	return &f
}

type Service struct {
	ID          ID      `json:"id"`
	Name        string  `json:"nama_layanan"`
	Category    string  `json:"kategori"`
	Price       Amount  `json:"harga"`
	PriceGold   *Amount `json:"harga_gold"`
	PriceSilver *Amount `json:"harga_silver"`
	PricePro    *Amount `json:"harga_pro"`
	Status      string  `json:"status"`
}

// Callback is the transaction update the provider posts back.
type Callback struct {
	IDTrx      ID     `json:"idtrx"`
	Status     string `json:"status"`
	Keterangan string `json:"keterangan,omitempty"`
}
