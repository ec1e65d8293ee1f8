package cache

import (
	"testing"
	"time"
)

func TestOptions_WithDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         Options
		wantMenu   time.Duration
		wantKeySet time.Duration
	}{
		{"zero values", Options{}, DefaultMenuTTL, DefaultKeySetTTL},
		{"negative values", Options{MenuTTL: -time.Second, KeySetTTL: -time.Second}, DefaultMenuTTL, DefaultKeySetTTL},
		{"explicit values", Options{MenuTTL: 5 * time.Second, KeySetTTL: time.Hour}, 5 * time.Second, time.Hour},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.in.withDefaults()
			if got.MenuTTL != tt.wantMenu {
				t.Errorf("MenuTTL = %v, want %v", got.MenuTTL, tt.wantMenu)
			}
			if got.KeySetTTL != tt.wantKeySet {
				t.Errorf("KeySetTTL = %v, want %v", got.KeySetTTL, tt.wantKeySet)
			}
		})
	}
}
