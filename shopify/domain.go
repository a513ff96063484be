// Package shopify normalizes and validates shop domains for session
// operations. Stored values are never rewritten; callers validate only.
package shopify

import (
	"fmt"
	"net/url"
	"strings"
)

const domainSuffix = ".myshopify.com"

// NormalizeShopDomain lowers and trims the input, strips a scheme and path
// when present, and appends the canonical suffix to bare shop handles.
func NormalizeShopDomain(value string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "", fmt.Errorf("shopify: shop domain is required")
	}
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("shopify: parse shop domain: %w", err)
		}
		trimmed = strings.TrimSpace(strings.ToLower(parsed.Hostname()))
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", fmt.Errorf("shopify: invalid shop domain")
	}
	if !strings.Contains(trimmed, ".") {
		trimmed += domainSuffix
	}
	if !strings.HasSuffix(trimmed, domainSuffix) {
		return "", fmt.Errorf("shopify: shop domain must end with %q", domainSuffix)
	}
	return trimmed, nil
}

// DomainValidator rejects shops that do not normalize to a canonical
// *.myshopify.com host.
type DomainValidator struct{}

func NewDomainValidator() DomainValidator {
	return DomainValidator{}
}

func (DomainValidator) ValidateShopDomain(shop string) error {
	_, err := NormalizeShopDomain(shop)
	return err
}
