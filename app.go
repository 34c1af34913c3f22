// Package fulfillment wires the webhook handler table, the fulfillment
// trigger and session storage into one explicitly constructed App.
package fulfillment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-shopify-fulfillment/command"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/providers/shopify"
	"github.com/goliatone/go-shopify-fulfillment/query"
	sqlstore "github.com/goliatone/go-shopify-fulfillment/store/sql"
	"github.com/goliatone/go-shopify-fulfillment/transport"
	"github.com/goliatone/go-shopify-fulfillment/trigger"
	"github.com/goliatone/go-shopify-fulfillment/webhooks"
)

type Config = core.Config

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type Commands struct {
	FulfillOrder *command.FulfillOrderCommand
	// SaveSession is nil when the session store is read only.
	SaveSession *command.SaveSessionCommand
}

type Queries struct {
	LookupSession *query.LookupSessionQuery
}

type App struct {
	config     Config
	logger     core.Logger
	storage    *persistence.Client
	sessions   core.SessionStore
	admin      core.AdminClient
	trigger    *trigger.Trigger
	handlers   webhooks.HandlerTable
	dispatcher *webhooks.Dispatcher
	commands   Commands
	queries    Queries
}

type Option func(*appOptions)

type appOptions struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	sessions       core.SessionStore
	admin          core.AdminClient
	metrics        core.MetricsRecorder
	configProvider core.ConfigProvider
	httpClient     transport.HTTPDoer
	outcome        webhooks.OutcomeHandler
	now            func() time.Time
}

func WithLogger(logger core.Logger) Option {
	return func(o *appOptions) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *appOptions) { o.loggerProvider = provider }
}

// WithSessionStore skips opening session storage.
func WithSessionStore(store core.SessionStore) Option {
	return func(o *appOptions) { o.sessions = store }
}

func WithAdminClient(client core.AdminClient) Option {
	return func(o *appOptions) { o.admin = client }
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *appOptions) { o.metrics = recorder }
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(o *appOptions) { o.configProvider = provider }
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(o *appOptions) { o.httpClient = client }
}

func WithOutcomeHandler(handler webhooks.OutcomeHandler) Option {
	return func(o *appOptions) { o.outcome = handler }
}

// WithNow overrides the clock used for the webhook replay window.
func WithNow(now func() time.Time) Option {
	return func(o *appOptions) { o.now = now }
}

// New resolves cfg, opens session storage unless a store is injected and builds
// the webhook pipeline. Close releases storage opened here.
func New(cfg Config, opts ...Option) (*App, error) {
	options := appOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	ctx := context.Background()

	resolved, err := core.ResolveConfig(ctx, cfg, options.configProvider, nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resolved.API.APISecretKey) == "" {
		return nil, core.NewError(
			"fulfillment: api secret key is required",
			goerrors.CategoryValidation,
			http.StatusBadRequest,
			core.ErrorConfigurationInvalid,
			map[string]any{"field": "api.api_secret_key"},
		)
	}

	logger := core.ResolveLogger("fulfillment", options.loggerProvider, options.logger)
	app := &App{config: resolved, logger: logger}

	if missing := shopify.MissingScopes(resolved.API.Scopes, shopify.FulfillmentScopes); len(missing) > 0 {
		logger.Warn("configured scopes cannot run the fulfillment flow", "missing_scopes", missing)
	}

	app.sessions = options.sessions
	if app.sessions == nil {
		client, err := sqlstore.Open(ctx, resolved.SessionStorage)
		if err != nil {
			return nil, err
		}
		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		app.storage = client
		app.sessions = factory.SessionStore()
	}

	if err := app.build(resolved, options); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(cfg Config, options appOptions) error {
	named := func(name string) core.Logger {
		return core.ResolveLogger(name, options.loggerProvider, options.logger)
	}

	a.admin = options.admin
	if a.admin == nil {
		httpClient := options.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.HTTP.Timeout}
		}
		rest := transport.NewRESTAdapter(httpClient, transport.WithLogger(named("fulfillment.transport")))
		admin, err := shopify.NewAdminClient(rest, shopify.AdminClientConfig{
			APIVersion: cfg.API.APIVersion,
			BaseURL:    cfg.API.AdminBaseURL,
			Timeout:    cfg.HTTP.Timeout,
		}, named("fulfillment.admin"))
		if err != nil {
			return err
		}
		a.admin = admin
	}

	trig, err := trigger.New(a.sessions, a.admin,
		trigger.WithLogger(named("fulfillment.trigger")),
		trigger.WithMetricsRecorder(options.metrics),
	)
	if err != nil {
		return err
	}
	a.trigger = trig

	outcome := options.outcome
	if outcome == nil {
		outcome = webhooks.AcknowledgeOutcome(named("fulfillment.webhooks"))
	}
	a.handlers, err = webhooks.NewHandlerTable(webhooks.TableConfig{
		CallbackURL: cfg.Webhooks.Path,
		Fulfiller:   trig,
		Outcome:     outcome,
		Logger:      named("fulfillment.webhooks"),
	})
	if err != nil {
		return err
	}

	verifierConfig := shopify.DefaultWebhookConfig(cfg.API.APISecretKey)
	if cfg.Webhooks.ReplayWindow > 0 {
		verifierConfig.ReplayWindow = cfg.Webhooks.ReplayWindow
	}
	verifierConfig.RequireTriggeredAt = cfg.Webhooks.RequireTriggeredAt
	if options.now != nil {
		verifierConfig.Now = options.now
	}
	a.dispatcher, err = webhooks.NewDispatcher(a.handlers, shopify.NewWebhookVerifier(verifierConfig),
		webhooks.WithDispatcherLogger(named("fulfillment.webhooks")),
		webhooks.WithDispatcherMetrics(options.metrics),
	)
	if err != nil {
		return err
	}

	a.commands = Commands{FulfillOrder: command.NewFulfillOrderCommand(trig)}
	if writer, ok := a.sessions.(core.SessionWriter); ok {
		a.commands.SaveSession = command.NewSaveSessionCommand(writer)
	}
	a.queries = Queries{LookupSession: query.NewLookupSessionQuery(a.sessions)}
	return nil
}

func (a *App) Config() Config {
	if a == nil {
		return Config{}
	}
	return a.config
}

func (a *App) Handlers() webhooks.HandlerTable {
	if a == nil {
		return nil
	}
	return a.handlers
}

func (a *App) Dispatcher() *webhooks.Dispatcher {
	if a == nil {
		return nil
	}
	return a.dispatcher
}

func (a *App) Commands() Commands {
	if a == nil {
		return Commands{}
	}
	return a.commands
}

func (a *App) Queries() Queries {
	if a == nil {
		return Queries{}
	}
	return a.queries
}

// Fulfill runs the trigger directly, outside any webhook delivery.
func (a *App) Fulfill(ctx context.Context, shop string, orderID string) trigger.Result {
	if a == nil || a.trigger == nil {
		return trigger.Result{
			Status:  trigger.StatusUpstreamFailure,
			Stage:   trigger.StageSessionLookup,
			Shop:    shop,
			OrderID: orderID,
			Err:     core.InternalError("fulfillment: app is not initialized", nil),
		}
	}
	return a.trigger.Fulfill(ctx, shop, orderID)
}

// RegisterRoutes mounts the webhook callback path.
func (a *App) RegisterRoutes(routes gin.IRoutes) error {
	if a == nil || a.dispatcher == nil {
		return fmt.Errorf("fulfillment: app is not initialized")
	}
	if routes == nil {
		return fmt.Errorf("fulfillment: routes are required")
	}
	a.dispatcher.RegisterRoutes(routes)
	return nil
}

// Close releases session storage opened by New. Injected stores are left
// untouched.
func (a *App) Close() error {
	if a == nil || a.storage == nil {
		return nil
	}
	client := a.storage
	a.storage = nil
	return client.Close()
}
