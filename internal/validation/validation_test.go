package validation

import (
	"math"
	"testing"
)

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"canonical uuid", "11111111-1111-1111-1111-111111111111", true},
		{"random uuid", "b2c9a1d4-8f3e-4f6a-9c7b-2d5e8a1f4c3b", true},
		{"empty", "", false},
		{"not a uuid", "user-42", false},
		{"truncated", "11111111-1111-1111-1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUserID(tt.id); got != tt.want {
				t.Fatalf("IsValidUserID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   bool
	}{
		{"positive", 1000, true},
		{"small positive", 0.01, true},
		{"zero", 0, false},
		{"negative", -100, false},
		{"NaN", math.NaN(), false},
		{"infinity", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAmount(tt.amount); got != tt.want {
				t.Fatalf("IsValidAmount(%v) = %v, want %v", tt.amount, got, tt.want)
			}
		})
	}
}
