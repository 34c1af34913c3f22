package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticRawConfigLoader serves a fixed raw map, typically decoded from a file
// or environment by the host process.
type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads the config layer through provider and merges runtime
// overrides on top of it. Nil collaborators fall back to the cfgx provider and
// the go-options resolver.
func ResolveConfig(
	ctx context.Context,
	runtime Config,
	provider ConfigProvider,
	resolver OptionsResolver,
) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, WrapError(err, goerrors.CategoryValidation, "core: load config", http.StatusBadRequest, ErrorConfigurationInvalid, nil)
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return Config{}, WrapError(err, goerrors.CategoryValidation, "core: resolve config", http.StatusBadRequest, ErrorConfigurationInvalid, nil)
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(target map[string]any, key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}

	setString(layer, "app_name", cfg.AppName)

	api := map[string]any{}
	setString(api, "api_key", cfg.API.APIKey)
	setString(api, "api_secret_key", cfg.API.APISecretKey)
	setString(api, "host_name", cfg.API.HostName)
	setString(api, "api_version", cfg.API.APIVersion)
	setString(api, "admin_base_url", cfg.API.AdminBaseURL)
	if includeZero || len(cfg.API.Scopes) > 0 {
		api["scopes"] = append([]string(nil), cfg.API.Scopes...)
	}
	if len(api) > 0 {
		layer["api"] = api
	}

	auth := map[string]any{}
	setString(auth, "path", cfg.Auth.Path)
	setString(auth, "callback_path", cfg.Auth.CallbackPath)
	if len(auth) > 0 {
		layer["auth"] = auth
	}

	webhooks := map[string]any{}
	setString(webhooks, "path", cfg.Webhooks.Path)
	if includeZero || cfg.Webhooks.ReplayWindow > 0 {
		webhooks["replay_window"] = cfg.Webhooks.ReplayWindow
	}
	if includeZero || cfg.Webhooks.RequireTriggeredAt {
		webhooks["require_triggered_at"] = cfg.Webhooks.RequireTriggeredAt
	}
	if len(webhooks) > 0 {
		layer["webhooks"] = webhooks
	}

	storage := map[string]any{}
	setString(storage, "driver", cfg.SessionStorage.Driver)
	setString(storage, "dsn", cfg.SessionStorage.DSN)
	if includeZero || cfg.SessionStorage.Debug {
		storage["debug"] = cfg.SessionStorage.Debug
	}
	if len(storage) > 0 {
		layer["session_storage"] = storage
	}

	if len(cfg.Billing) > 0 {
		billing := make(map[string]any, len(cfg.Billing))
		for name, plan := range cfg.Billing {
			billing[name] = map[string]any{
				"amount":        plan.Amount,
				"currency_code": plan.CurrencyCode,
				"interval":      plan.Interval,
			}
		}
		layer["billing"] = billing
	}

	if includeZero || cfg.HTTP.Timeout > 0 {
		layer["http"] = map[string]any{"timeout": cfg.HTTP.Timeout}
	}
	return layer
}
