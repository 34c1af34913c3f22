package shopify

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

func TestWebhookVerifier_VerifyAndReplayWindow(t *testing.T) {
	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"id":450789469}`)
	cfg := DefaultWebhookConfig("shopify_secret")
	cfg.Now = func() time.Time { return now }
	verifier := NewWebhookVerifier(cfg)

	req := core.InboundRequest{
		Body: body,
		Headers: map[string]string{
			"x-shopify-hmac-sha256":  SignatureHeader("shopify_secret", body),
			"X-Shopify-Webhook-Id":   "delivery_1",
			"X-Shopify-Triggered-At": now.Format(time.RFC3339),
		},
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("verify webhook: %v", err)
	}
	deliveryID, err := ExtractDeliveryID(req)
	if err != nil {
		t.Fatalf("extract delivery id: %v", err)
	}
	if deliveryID != "delivery_1" {
		t.Fatalf("expected delivery id delivery_1, got %q", deliveryID)
	}

	req.Headers["X-Shopify-Triggered-At"] = now.Add(-10 * time.Minute).Format(time.RFC3339)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected stale triggered-at header to fail replay-window check")
	}
}

func TestWebhookVerifier_Rejections(t *testing.T) {
	body := []byte(`{"id":1}`)
	tests := []struct {
		name    string
		secret  string
		require bool
		headers map[string]string
	}{
		{
			name:    "missing signature",
			secret:  "shopify_secret",
			headers: map[string]string{"X-Shopify-Webhook-Id": "d1"},
		},
		{
			name:   "wrong secret",
			secret: "shopify_secret",
			headers: map[string]string{
				"X-Shopify-Hmac-Sha256": SignatureHeader("other", body),
				"X-Shopify-Webhook-Id":  "d1",
			},
		},
		{
			name:   "not base64",
			secret: "shopify_secret",
			headers: map[string]string{
				"X-Shopify-Hmac-Sha256": "%%%",
				"X-Shopify-Webhook-Id":  "d1",
			},
		},
		{
			name:   "missing delivery id",
			secret: "shopify_secret",
			headers: map[string]string{
				"X-Shopify-Hmac-Sha256": SignatureHeader("shopify_secret", body),
			},
		},
		{
			name:    "missing triggered at when required",
			secret:  "shopify_secret",
			require: true,
			headers: map[string]string{
				"X-Shopify-Hmac-Sha256": SignatureHeader("shopify_secret", body),
				"X-Shopify-Webhook-Id":  "d1",
			},
		},
		{
			name:   "empty secret",
			secret: "",
			headers: map[string]string{
				"X-Shopify-Hmac-Sha256": SignatureHeader("", body),
				"X-Shopify-Webhook-Id":  "d1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWebhookConfig(tt.secret)
			cfg.RequireTriggeredAt = tt.require
			err := NewWebhookVerifier(cfg).Verify(context.Background(), core.InboundRequest{Body: body, Headers: tt.headers})
			if err == nil {
				t.Fatalf("expected verification failure")
			}
		})
	}
}

func TestWebhookVerifier_SignatureFailureMapsToUnauthorized(t *testing.T) {
	body := []byte(`{}`)
	err := NewWebhookVerifier(DefaultWebhookConfig("secret")).Verify(context.Background(), core.InboundRequest{
		Body: body,
		Headers: map[string]string{
			"X-Shopify-Hmac-Sha256": SignatureHeader("nope", body),
			"X-Shopify-Webhook-Id":  "d1",
		},
	})
	mapped := core.MapError(err)
	if mapped == nil || mapped.TextCode != core.ErrorUnauthorized {
		t.Fatalf("expected unauthorized mapping, got %#v", mapped)
	}
}
