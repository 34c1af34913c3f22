package shopify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

const defaultRetryAfter429 = 2 * time.Second

// NormalizeAdminAPIResponse extracts request id, api version, call limit and
// retry hints from an admin API response.
func NormalizeAdminAPIResponse(_ context.Context, response core.TransportResponse) (core.ProviderResponseMeta, error) {
	meta := core.ProviderResponseMeta{
		StatusCode: response.StatusCode,
		Headers:    copyStringMap(response.Headers),
		Metadata:   copyAnyMap(response.Metadata),
	}

	if requestID := headerValue(meta.Headers, "x-request-id"); requestID != "" {
		meta.Metadata["shopify_request_id"] = requestID
	}
	if apiVersion := headerValue(meta.Headers, HeaderAPIVersion); apiVersion != "" {
		meta.Metadata["shopify_api_version"] = apiVersion
	}

	if used, limit, ok := parseCallLimit(headerValue(meta.Headers, "x-shopify-shop-api-call-limit")); ok {
		remaining := max(limit-used, 0)
		meta.Headers["X-RateLimit-Limit"] = strconv.Itoa(limit)
		meta.Headers["X-RateLimit-Remaining"] = strconv.Itoa(remaining)
		meta.Metadata["shopify_api_call_used"] = used
		meta.Metadata["shopify_api_call_limit"] = limit
		meta.Metadata["shopify_api_call_remaining"] = remaining
	}

	if retryAfter, ok := parseRetryAfter(meta.Headers); ok {
		meta.RetryAfter = &retryAfter
	} else if meta.StatusCode == 429 {
		retryAfter := defaultRetryAfter429
		meta.RetryAfter = &retryAfter
	}
	if meta.RetryAfter != nil {
		meta.Metadata["shopify_retry_after_seconds"] = int64(meta.RetryAfter.Seconds())
	}
	if reason := readErrorType(response.Body); reason != "" {
		meta.Metadata["shopify_error_type"] = reason
	}
	return meta, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func parseCallLimit(value string) (used int, limit int, ok bool) {
	usedRaw, limitRaw, found := strings.Cut(strings.TrimSpace(value), "/")
	if !found {
		return 0, 0, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(usedRaw))
	if err != nil || used < 0 {
		return 0, 0, false
	}
	limit, err = strconv.Atoi(strings.TrimSpace(limitRaw))
	if err != nil || limit <= 0 {
		return 0, 0, false
	}
	return used, limit, true
}

func parseRetryAfter(headers map[string]string) (time.Duration, bool) {
	raw := headerValue(headers, "retry-after")
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func readErrorType(body []byte) string {
	lowered := strings.ToLower(strings.TrimSpace(string(body)))
	switch {
	case lowered == "":
		return ""
	case strings.Contains(lowered, "throttle"):
		return "throttle"
	case strings.Contains(lowered, "not found"):
		return "not_found"
	case strings.Contains(lowered, "access token"):
		return "invalid_token"
	}
	return ""
}

func headerValue(headers map[string]string, key string) string {
	key = strings.TrimSpace(key)
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func copyStringMap(input map[string]string) map[string]string {
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func copyAnyMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
