package domain

import (
	"errors"
	"testing"
)

func TestChatTokenPrice(t *testing.T) {
	price, err := ChatTokenPrice("gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price <= 0 {
		t.Errorf("price = %v, want > 0", price)
	}

	if _, err := ChatTokenPrice("no-such-model"); !errors.Is(err, ErrUnknownModelPricing) {
		t.Errorf("expected ErrUnknownModelPricing, got %v", err)
	}
}

func TestDallEImagePrice(t *testing.T) {
	tests := []struct {
		size     string
		expected float64
	}{
		{"256x256", 0.016},
		{"1024x1024", 0.020},
		{"1792x1024", 0.080},
		{"640x480", 0.020}, // unknown size falls back to the default size price
	}

	for _, test := range tests {
		if got := DallEImagePrice(test.size); got != test.expected {
			t.Errorf("DallEImagePrice(%q) = %v, want %v", test.size, got, test.expected)
		}
	}
}
