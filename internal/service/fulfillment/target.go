package fulfillment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
)

var (
	ErrMissingOption = errors.New("item has no player id option")
	ErrEmptyOption   = errors.New("player id option has no value")
)

// PlayerID reads the customer-entered account id from the first option.
func PlayerID(item salla.Item) (string, error) {
	if len(item.Options) == 0 {
		return "", ErrMissingOption
	}
	v, ok := item.Options[0].Value.First()
	if !ok {
		return "", ErrEmptyOption
	}
	return strings.TrimSpace(v), nil
}

// ZoneID reads the optional server zone from the second option.
func ZoneID(item salla.Item) (string, bool) {
	if len(item.Options) < 2 {
		return "", false
	}
	v, ok := item.Options[1].Value.First()
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Target builds the provider target for an item. Zoned categories append
// the zone as "player|zone" when the customer supplied one.
func Target(item salla.Item, category string, zoned map[string]struct{}) (string, error) {
	player, err := PlayerID(item)
	if err != nil {
		return "", err
	}
	if player == "" {
		return "", ErrEmptyOption
	}

	if _, ok := zoned[category]; !ok {
		return player, nil
	}
	if zone, ok := ZoneID(item); ok {
		return fmt.Sprintf("%s|%s", player, zone), nil
	}
	return player, nil
}
