package core

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
	err error
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, p.err
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
	if cfg.Webhooks.Path != "/api/webhooks" {
		t.Fatalf("expected default webhooks path, got %q", cfg.Webhooks.Path)
	}
	if cfg.Auth.Path != "/api/auth" || cfg.Auth.CallbackPath != "/api/auth/callback" {
		t.Fatalf("unexpected auth paths %#v", cfg.Auth)
	}
	if cfg.BillingEnabled() {
		t.Fatalf("expected billing to be disabled by default")
	}
	if len(cfg.API.Scopes) != len(DefaultAPIScopes) {
		t.Fatalf("expected default scopes, got %d", len(cfg.API.Scopes))
	}
}

func TestConfigValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing api version", mutate: func(c *Config) { c.API.APIVersion = "" }},
		{name: "empty scopes", mutate: func(c *Config) { c.API.Scopes = nil }},
		{name: "blank scope", mutate: func(c *Config) { c.API.Scopes = []string{"read_orders", ""} }},
		{name: "relative webhook path", mutate: func(c *Config) { c.Webhooks.Path = "api/webhooks" }},
		{name: "unknown driver", mutate: func(c *Config) { c.SessionStorage.Driver = "mysql" }},
		{name: "bad admin url", mutate: func(c *Config) { c.API.AdminBaseURL = "::nope" }},
		{name: "bad billing interval", mutate: func(c *Config) {
			c.Billing = map[string]BillingPlan{"plan": {Amount: 1, CurrencyCode: "USD", Interval: "WEEKLY"}}
		}},
		{name: "blank billing name", mutate: func(c *Config) {
			c.Billing = map[string]BillingPlan{" ": {Amount: 1, CurrencyCode: "USD", Interval: BillingIntervalOneTime}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestExampleBillingConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Billing = ExampleBillingConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected example billing to validate: %v", err)
	}
	plan, ok := cfg.Billing["My Shopify One-Time Charge"]
	if !ok || plan.Amount != 5.0 || plan.CurrencyCode != "USD" || plan.Interval != BillingIntervalOneTime {
		t.Fatalf("unexpected example plan %#v", cfg.Billing)
	}
	if !cfg.BillingEnabled() {
		t.Fatalf("expected billing to be enabled")
	}
}

func TestResolveConfig_LayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"app_name": "from-config",
		"api": map[string]any{
			"api_version": "2024-01",
			"host_name":   "app.example.test",
		},
		"session_storage": map[string]any{
			"driver": "postgres",
			"dsn":    "postgres://localhost/shopify",
		},
	}})

	cfg, err := ResolveConfig(context.Background(), Config{AppName: "from-runtime"}, provider, nil)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.AppName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.AppName)
	}
	if cfg.API.APIVersion != "2024-01" || cfg.API.HostName != "app.example.test" {
		t.Fatalf("expected config layer api values, got %#v", cfg.API)
	}
	if cfg.SessionStorage.Driver != "postgres" {
		t.Fatalf("expected config layer driver, got %q", cfg.SessionStorage.Driver)
	}
	if cfg.Webhooks.Path != DefaultWebhooksPath {
		t.Fatalf("expected default webhooks path to survive, got %q", cfg.Webhooks.Path)
	}
	if len(cfg.API.Scopes) != len(DefaultAPIScopes) {
		t.Fatalf("expected default scopes to survive, got %v", cfg.API.Scopes)
	}
}

func TestResolveConfig_RuntimeDurationsOverrideDefaults(t *testing.T) {
	cfg, err := ResolveConfig(context.Background(), Config{
		HTTP:     HTTPConfig{Timeout: 3 * time.Second},
		Webhooks: WebhooksConfig{ReplayWindow: time.Minute, RequireTriggeredAt: true},
	}, nil, nil)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Fatalf("expected runtime timeout, got %s", cfg.HTTP.Timeout)
	}
	if cfg.Webhooks.ReplayWindow != time.Minute || !cfg.Webhooks.RequireTriggeredAt {
		t.Fatalf("expected runtime webhook settings, got %#v", cfg.Webhooks)
	}
}

func TestResolveConfig_ProviderErrorIsValidationEnvelope(t *testing.T) {
	_, err := ResolveConfig(context.Background(), Config{}, &fixedConfigProvider{err: errors.New("boom")}, nil)
	if err == nil {
		t.Fatalf("expected provider error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != ErrorConfigurationInvalid {
		t.Fatalf("expected %q, got %q", ErrorConfigurationInvalid, rich.TextCode)
	}
}

func TestResolveConfig_InvalidRuntimeOverrideFails(t *testing.T) {
	_, err := ResolveConfig(context.Background(), Config{
		SessionStorage: SessionStorageConfig{Driver: "oracle"},
	}, nil, nil)
	if err == nil {
		t.Fatalf("expected invalid driver to fail resolution")
	}
}
