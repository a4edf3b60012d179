package fulfillment

import (
	"errors"
	"testing"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
)

func TestTarget(t *testing.T) {
	t.Parallel()

	zoned := toSet([]string{"Mobile Legends"})

	tests := []struct {
		name     string
		options  []salla.ItemOption
		category string
		want     string
		wantErr  error
	}{
		{
			name:     "player id only",
			options:  []salla.ItemOption{{Name: "Player ID", Value: salla.Values{"P123"}}},
			category: "Free Fire",
			want:     "P123",
		},
		{
			name: "zoned category with zone",
			options: []salla.ItemOption{
				{Name: "Player ID", Value: salla.Values{"P123"}},
				{Name: "Zone ID", Value: salla.Values{"Z9"}},
			},
			category: "Mobile Legends",
			want:     "P123|Z9",
		},
		{
			name: "zoned category without zone value",
			options: []salla.ItemOption{
				{Name: "Player ID", Value: salla.Values{"P123"}},
				{Name: "Zone ID"},
			},
			category: "Mobile Legends",
			want:     "P123",
		},
		{
			name: "zone ignored outside zoned categories",
			options: []salla.ItemOption{
				{Name: "Player ID", Value: salla.Values{"P123"}},
				{Name: "Zone ID", Value: salla.Values{"Z9"}},
			},
			category: "PUBG Mobile",
			want:     "P123",
		},
		{
			name:     "player id is trimmed",
			options:  []salla.ItemOption{{Value: salla.Values{"  P123 "}}},
			category: "Roblox",
			want:     "P123",
		},
		{
			name:     "no options",
			category: "Free Fire",
			wantErr:  ErrMissingOption,
		},
		{
			name:     "empty player id",
			options:  []salla.ItemOption{{Name: "Player ID", Value: salla.Values{}}},
			category: "Free Fire",
			wantErr:  ErrEmptyOption,
		},
		{
			name:     "blank player id",
			options:  []salla.ItemOption{{Name: "Player ID", Value: salla.Values{"   "}}},
			category: "Free Fire",
			wantErr:  ErrEmptyOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Target(salla.Item{SKU: "ML86", Options: tt.options}, tt.category, zoned)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Target() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Target() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Target() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestZoneID(t *testing.T) {
	t.Parallel()

	if _, ok := ZoneID(salla.Item{Options: []salla.ItemOption{{Value: salla.Values{"P1"}}}}); ok {
		t.Error("ZoneID() ok = true for a single option")
	}
	zone, ok := ZoneID(salla.Item{Options: []salla.ItemOption{{Value: salla.Values{"P1"}}, {Value: salla.Values{"2041"}}}})
	if !ok || zone != "2041" {
		t.Errorf("ZoneID() = %q, %v; want 2041, true", zone, ok)
	}
}
