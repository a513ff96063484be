package shopify

import "testing"

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare handle gains suffix", input: "merchant-store", expected: "merchant-store.myshopify.com"},
		{name: "full domain passes through", input: "merchant-store.myshopify.com", expected: "merchant-store.myshopify.com"},
		{name: "upper case is lowered", input: "Merchant-Store.MyShopify.com", expected: "merchant-store.myshopify.com"},
		{name: "scheme and path are stripped", input: "https://merchant-store.myshopify.com/admin", expected: "merchant-store.myshopify.com"},
		{name: "trailing slash is stripped", input: "merchant-store.myshopify.com/", expected: "merchant-store.myshopify.com"},
		{name: "surrounding whitespace is trimmed", input: "  merchant-store  ", expected: "merchant-store.myshopify.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			normalized, err := NormalizeShopDomain(tc.input)
			if err != nil {
				t.Fatalf("normalize %q: %v", tc.input, err)
			}
			if normalized != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, normalized)
			}
		})
	}
}

func TestNormalizeShopDomain_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "wrong suffix", input: "merchant-store.example.com"},
		{name: "path without scheme", input: "merchant/store"},
		{name: "scheme without host", input: "https://"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeShopDomain(tc.input); err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
		})
	}
}

func TestDomainValidator_ValidateShopDomain(t *testing.T) {
	validator := NewDomainValidator()

	if err := validator.ValidateShopDomain("merchant-store.myshopify.com"); err != nil {
		t.Fatalf("expected valid shop domain, got %v", err)
	}
	if err := validator.ValidateShopDomain("merchant-store.example.com"); err == nil {
		t.Fatalf("expected invalid shop domain error")
	}
}
