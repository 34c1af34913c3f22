package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

const (
	HeaderHMAC        = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID   = "X-Shopify-Webhook-Id"
	HeaderTriggeredAt = "X-Shopify-Triggered-At"
	HeaderTopic       = "X-Shopify-Topic"
	HeaderShopDomain  = "X-Shopify-Shop-Domain"
	HeaderAPIVersion  = "X-Shopify-API-Version"
)

const defaultWebhookReplayWindow = 5 * time.Minute

type WebhookConfig struct {
	Secret             string
	ReplayWindow       time.Duration
	Now                func() time.Time
	RequireTriggeredAt bool
}

func DefaultWebhookConfig(secret string) WebhookConfig {
	return WebhookConfig{
		Secret:       strings.TrimSpace(secret),
		ReplayWindow: defaultWebhookReplayWindow,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WebhookVerifier authenticates a webhook delivery: base64 HMAC-SHA256 of the
// raw body keyed with the app secret, a non-empty webhook id and, when the
// triggered-at header is present, a bounded clock skew.
type WebhookVerifier struct {
	Secret             string
	ReplayWindow       time.Duration
	Now                func() time.Time
	RequireTriggeredAt bool
}

func NewWebhookVerifier(cfg WebhookConfig) WebhookVerifier {
	return WebhookVerifier{
		Secret:             strings.TrimSpace(cfg.Secret),
		ReplayWindow:       cfg.ReplayWindow,
		Now:                cfg.Now,
		RequireTriggeredAt: cfg.RequireTriggeredAt,
	}
}

func (v WebhookVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	if err := verifySignature(v.Secret, headerValue(req.Headers, HeaderHMAC), req.Body); err != nil {
		return err
	}
	if _, err := ExtractDeliveryID(req); err != nil {
		return err
	}

	triggered := headerValue(req.Headers, HeaderTriggeredAt)
	if triggered == "" {
		if v.RequireTriggeredAt {
			return fmt.Errorf("providers/shopify: %s header is required", HeaderTriggeredAt)
		}
		return nil
	}
	triggeredAt, err := time.Parse(time.RFC3339Nano, triggered)
	if err != nil {
		return fmt.Errorf("providers/shopify: invalid %s header: %w", HeaderTriggeredAt, err)
	}

	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now().UTC()
	}
	window := v.ReplayWindow
	if window <= 0 {
		window = defaultWebhookReplayWindow
	}
	delta := now.Sub(triggeredAt.UTC())
	if delta < 0 {
		delta = -delta
	}
	if delta > window {
		return fmt.Errorf("providers/shopify: webhook trigger time outside replay window")
	}
	return nil
}

func verifySignature(secret string, header string, body []byte) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("providers/shopify: signature secret is required")
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("providers/shopify: %s signature header is required", HeaderHMAC)
	}
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return fmt.Errorf("providers/shopify: decode base64 signature: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, SignBody(secret, body)) != 1 {
		return fmt.Errorf("providers/shopify: signature verification failed")
	}
	return nil
}

// SignBody returns the raw HMAC-SHA256 digest of body.
func SignBody(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader is the header value a delivery of body carries.
func SignatureHeader(secret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(SignBody(secret, body))
}

func ExtractDeliveryID(req core.InboundRequest) (string, error) {
	deliveryID := headerValue(req.Headers, HeaderWebhookID)
	if deliveryID == "" {
		return "", fmt.Errorf("providers/shopify: %s header is required", HeaderWebhookID)
	}
	return deliveryID, nil
}

// HeaderValue is a case-insensitive lookup over a flattened header map.
func HeaderValue(headers map[string]string, key string) string {
	return headerValue(headers, key)
}
