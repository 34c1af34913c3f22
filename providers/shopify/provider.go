package shopify

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

const (
	ProviderID = "shopify"

	defaultDomainSuffix = ".myshopify.com"
)

const (
	ScopeReadOrders                            = "read_orders"
	ScopeReadMerchantManagedFulfillmentOrders  = "read_merchant_managed_fulfillment_orders"
	ScopeWriteMerchantManagedFulfillmentOrders = "write_merchant_managed_fulfillment_orders"
	ScopeReadAssignedFulfillmentOrders         = "read_assigned_fulfillment_orders"
	ScopeWriteAssignedFulfillmentOrders        = "write_assigned_fulfillment_orders"
	ScopeWriteThirdPartyFulfillmentOrders      = "write_third_party_fulfillment_orders"
)

// FulfillmentScopes are the grants the order update flow needs to list
// fulfillment orders and submit fulfillment requests.
var FulfillmentScopes = []string{
	ScopeReadOrders,
	ScopeReadMerchantManagedFulfillmentOrders,
	ScopeWriteMerchantManagedFulfillmentOrders,
}

// DefaultScopes returns the normalized install-time scope list.
func DefaultScopes() []string {
	return NormalizeScopes(core.DefaultAPIScopes)
}

// NormalizeScopes lowercases, trims and dedupes scopes. A "shopify:" grant
// prefix is stripped.
func NormalizeScopes(scopes []string) []string {
	set := map[string]struct{}{}
	for _, scope := range scopes {
		normalized := normalizeScope(scope)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for scope := range set {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// ParseScopeList splits the comma separated scope string stored on a session.
func ParseScopeList(raw string) []string {
	return NormalizeScopes(strings.Split(raw, ","))
}

// MissingScopes lists the entries of required that granted does not cover.
// write_x implies read_x, as it does on the platform.
func MissingScopes(granted []string, required []string) []string {
	have := NormalizeScopes(granted)
	missing := []string{}
	for _, scope := range NormalizeScopes(required) {
		if slices.Contains(have, scope) {
			continue
		}
		if rest, ok := strings.CutPrefix(scope, "read_"); ok && slices.Contains(have, "write_"+rest) {
			continue
		}
		missing = append(missing, scope)
	}
	return missing
}

// NormalizeShopDomain accepts "shop", "shop.myshopify.com" or a URL and returns
// the lowercase myshopify host.
func NormalizeShopDomain(value string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "", fmt.Errorf("providers/shopify: shop domain is required")
	}
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("providers/shopify: parse shop domain: %w", err)
		}
		trimmed = strings.TrimSpace(strings.ToLower(parsed.Hostname()))
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", fmt.Errorf("providers/shopify: invalid shop domain")
	}
	if !strings.Contains(trimmed, ".") {
		trimmed += defaultDomainSuffix
	}
	if !strings.HasSuffix(trimmed, defaultDomainSuffix) {
		return "", fmt.Errorf("providers/shopify: shop domain must end with %q", defaultDomainSuffix)
	}
	return trimmed, nil
}

func normalizeScope(value string) string {
	normalized := strings.TrimSpace(strings.ToLower(value))
	return strings.TrimPrefix(normalized, "shopify:")
}
