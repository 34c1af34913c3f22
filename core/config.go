package core

import (
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

const (
	DefaultAPIVersion       = "2023-07"
	DefaultAuthPath         = "/api/auth"
	DefaultAuthCallbackPath = "/api/auth/callback"
	DefaultWebhooksPath     = "/api/webhooks"
	DefaultSessionDriver    = "sqlite3"
	DefaultSessionDSN       = "file:database.sqlite?_foreign_keys=on"
)

const (
	BillingIntervalOneTime     = "ONE_TIME"
	BillingIntervalEvery30Days = "EVERY_30_DAYS"
	BillingIntervalAnnual      = "ANNUAL"
)

// DefaultAPIScopes is the access scope list requested at install time.
var DefaultAPIScopes = []string{
	"write_products",
	"read_products",
	"read_orders",
	"write_orders",
	"read_draft_orders",
	"write_draft_orders",
	"read_metaobjects",
	"write_metaobjects",
	"read_product_listings",
	"read_order_edits",
	"write_order_edits",
	"read_customers",
	"write_customers",
	"read_shipping",
	"write_shipping",
	"read_metaobject_definitions",
	"write_metaobject_definitions",
	"read_merchant_managed_fulfillment_orders",
	"write_merchant_managed_fulfillment_orders",
	"read_fulfillments",
	"write_fulfillments",
	"read_assigned_fulfillment_orders",
	"write_assigned_fulfillment_orders",
	"write_third_party_fulfillment_orders",
}

type APIConfig struct {
	APIKey       string   `koanf:"api_key" mapstructure:"api_key"`
	APISecretKey string   `koanf:"api_secret_key" mapstructure:"api_secret_key"`
	HostName     string   `koanf:"host_name" mapstructure:"host_name"`
	APIVersion   string   `koanf:"api_version" mapstructure:"api_version" validate:"required"`
	Scopes       []string `koanf:"scopes" mapstructure:"scopes" validate:"required,min=1,dive,required"`
	// AdminBaseURL replaces https://<shop> when set. Used against local fakes.
	AdminBaseURL string `koanf:"admin_base_url" mapstructure:"admin_base_url" validate:"omitempty,url"`
}

type AuthConfig struct {
	Path         string `koanf:"path" mapstructure:"path" validate:"required,startswith=/"`
	CallbackPath string `koanf:"callback_path" mapstructure:"callback_path" validate:"required,startswith=/"`
}

type WebhooksConfig struct {
	Path               string        `koanf:"path" mapstructure:"path" validate:"required,startswith=/"`
	ReplayWindow       time.Duration `koanf:"replay_window" mapstructure:"replay_window" validate:"gte=0"`
	RequireTriggeredAt bool          `koanf:"require_triggered_at" mapstructure:"require_triggered_at"`
}

type SessionStorageConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver" validate:"required,oneof=sqlite3 sqlite postgres"`
	DSN    string `koanf:"dsn" mapstructure:"dsn" validate:"required"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type BillingPlan struct {
	Amount       float64 `koanf:"amount" mapstructure:"amount" validate:"gt=0"`
	CurrencyCode string  `koanf:"currency_code" mapstructure:"currency_code" validate:"required,len=3"`
	Interval     string  `koanf:"interval" mapstructure:"interval" validate:"required,oneof=ONE_TIME EVERY_30_DAYS ANNUAL"`
}

type HTTPConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

type Config struct {
	AppName        string                 `koanf:"app_name" mapstructure:"app_name" validate:"required"`
	API            APIConfig              `koanf:"api" mapstructure:"api"`
	Auth           AuthConfig             `koanf:"auth" mapstructure:"auth"`
	Webhooks       WebhooksConfig         `koanf:"webhooks" mapstructure:"webhooks"`
	SessionStorage SessionStorageConfig   `koanf:"session_storage" mapstructure:"session_storage"`
	Billing        map[string]BillingPlan `koanf:"billing" mapstructure:"billing" validate:"omitempty,dive"`
	HTTP           HTTPConfig             `koanf:"http" mapstructure:"http"`
}

func DefaultConfig() Config {
	return Config{
		AppName: "shopify-fulfillment",
		API: APIConfig{
			APIVersion: DefaultAPIVersion,
			Scopes:     append([]string(nil), DefaultAPIScopes...),
		},
		Auth: AuthConfig{
			Path:         DefaultAuthPath,
			CallbackPath: DefaultAuthCallbackPath,
		},
		Webhooks: WebhooksConfig{
			Path:         DefaultWebhooksPath,
			ReplayWindow: 5 * time.Minute,
		},
		SessionStorage: SessionStorageConfig{
			Driver: DefaultSessionDriver,
			DSN:    DefaultSessionDSN,
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// ExampleBillingConfig is a one-time charge plan. Billing stays disabled unless
// a plan map like this one is configured.
func ExampleBillingConfig() map[string]BillingPlan {
	return map[string]BillingPlan{
		"My Shopify One-Time Charge": {
			Amount:       5.0,
			CurrencyCode: "USD",
			Interval:     BillingIntervalOneTime,
		},
	}
}

var configValidator = validatorv10.New()

func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("core: invalid config: %w", err)
	}
	for name := range c.Billing {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("core: invalid config: billing plan name is required")
		}
	}
	return nil
}

func (c Config) BillingEnabled() bool {
	return len(c.Billing) > 0
}
