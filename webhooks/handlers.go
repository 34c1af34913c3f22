package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/trigger"
)

const DeliveryMethodHTTP = "http"

// CallbackFunc receives one verified delivery. topic is the header form of the
// topic, body the raw payload.
type CallbackFunc func(ctx context.Context, topic string, shop string, body []byte, webhookID string) error

type Handler struct {
	DeliveryMethod string
	CallbackURL    string
	Callback       CallbackFunc
}

type HandlerTable map[Topic]Handler

// Topics returns the registered topics in a stable order.
func (t HandlerTable) Topics() []Topic {
	topics := make([]Topic, 0, len(t))
	for topic := range t {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// CallbackURLs returns the distinct callback paths of the table.
func (t HandlerTable) CallbackURLs() []string {
	seen := map[string]struct{}{}
	urls := []string{}
	for _, topic := range t.Topics() {
		url := t[topic].CallbackURL
		if _, ok := seen[url]; ok || url == "" {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}

type Fulfiller interface {
	Fulfill(ctx context.Context, shop string, orderID string) trigger.Result
}

// OutcomeHandler decides what an ORDERS_UPDATED delivery answers once the
// trigger finished. A nil return acknowledges the delivery.
type OutcomeHandler func(ctx context.Context, result trigger.Result) error

// AcknowledgeOutcome logs non-submitted results and always acknowledges.
func AcknowledgeOutcome(logger core.Logger) OutcomeHandler {
	observer := core.NewObserver(logger, nil)
	return func(ctx context.Context, result trigger.Result) error {
		if result.Submitted() {
			return nil
		}
		observer.Log(ctx, "warn", "order update acknowledged without fulfillment", result.Fields())
		return nil
	}
}

// RetryOnUpstreamFailure returns the trigger error for upstream failures so
// the platform redelivers. Missing sessions and orders are still acknowledged.
//
// Redeliveries carry the X-Shopify-Triggered-At of the first attempt, and the
// verifier rejects one older than its replay window with 401 before it reaches
// the trigger. Pair this handler with a core.WebhooksConfig.ReplayWindow that
// covers the platform retry schedule, otherwise only retries landing inside
// the default five minutes get through.
func RetryOnUpstreamFailure(logger core.Logger) OutcomeHandler {
	acknowledge := AcknowledgeOutcome(logger)
	return func(ctx context.Context, result trigger.Result) error {
		if result.Status == trigger.StatusUpstreamFailure && result.Err != nil {
			return core.WrapError(
				result.Err,
				goerrors.CategoryExternal,
				"webhooks: fulfillment trigger failed",
				http.StatusServiceUnavailable,
				core.ErrorUpstreamFailed,
				result.Fields(),
			)
		}
		return acknowledge(ctx, result)
	}
}

type TableConfig struct {
	CallbackURL string
	Fulfiller   Fulfiller
	Outcome     OutcomeHandler
	Logger      core.Logger
}

// NewHandlerTable builds the handler for every supported topic. All handlers
// share one callback path.
func NewHandlerTable(cfg TableConfig) (HandlerTable, error) {
	if cfg.Fulfiller == nil {
		return nil, fmt.Errorf("webhooks: fulfiller is required")
	}
	callbackURL := strings.TrimSpace(cfg.CallbackURL)
	if callbackURL == "" {
		callbackURL = core.DefaultWebhooksPath
	}
	observer := core.NewObserver(cfg.Logger, nil)
	outcome := cfg.Outcome
	if outcome == nil {
		outcome = AcknowledgeOutcome(cfg.Logger)
	}

	handler := func(callback CallbackFunc) Handler {
		return Handler{DeliveryMethod: DeliveryMethodHTTP, CallbackURL: callbackURL, Callback: callback}
	}

	return HandlerTable{
		TopicCustomersDataRequest: handler(func(ctx context.Context, topic, shop string, body []byte, webhookID string) error {
			var payload CustomersDataRequestPayload
			if err := decodePayload(body, &payload, topic, shop, webhookID); err != nil {
				return err
			}
			observer.Log(ctx, "info", "customer data request received", map[string]any{
				"topic":       topic,
				"shop":        shop,
				"webhook_id":  webhookID,
				"customer_id": payload.Customer.ID.String(),
				"orders":      len(payload.OrdersRequested),
			})
			return nil
		}),
		TopicProductsUpdate: handler(func(ctx context.Context, topic, shop string, body []byte, webhookID string) error {
			var payload any
			if err := decodePayload(body, &payload, topic, shop, webhookID); err != nil {
				return err
			}
			observer.Log(ctx, "info", "product update", map[string]any{
				"topic":      topic,
				"shop":       shop,
				"webhook_id": webhookID,
				"payload":    payload,
			})
			return nil
		}),
		TopicCustomersRedact: handler(func(ctx context.Context, topic, shop string, body []byte, webhookID string) error {
			var payload CustomersRedactPayload
			if err := decodePayload(body, &payload, topic, shop, webhookID); err != nil {
				return err
			}
			observer.Log(ctx, "info", "customer redact received", map[string]any{
				"topic":       topic,
				"shop":        shop,
				"webhook_id":  webhookID,
				"customer_id": payload.Customer.ID.String(),
				"orders":      len(payload.OrdersToRedact),
			})
			return nil
		}),
		TopicShopRedact: handler(func(ctx context.Context, topic, shop string, body []byte, webhookID string) error {
			var payload ShopRedactPayload
			if err := decodePayload(body, &payload, topic, shop, webhookID); err != nil {
				return err
			}
			observer.Log(ctx, "info", "shop redact received", map[string]any{
				"topic":      topic,
				"shop":       shop,
				"webhook_id": webhookID,
				"shop_id":    payload.ShopID.String(),
			})
			return nil
		}),
		TopicOrdersUpdated: handler(func(ctx context.Context, topic, shop string, body []byte, webhookID string) error {
			var payload OrderUpdatedPayload
			if err := decodePayload(body, &payload, topic, shop, webhookID); err != nil {
				return err
			}
			result := cfg.Fulfiller.Fulfill(ctx, shop, payload.ID.String())
			return outcome(ctx, result)
		}),
	}, nil
}

// decodePayload rejects bodies that are not JSON. Any valid JSON is accepted;
// fields that do not fit target are left at their zero value since the typed
// view only feeds log fields and the order id.
func decodePayload(body []byte, target any, topic, shop, webhookID string) error {
	if !json.Valid(body) {
		return core.NewError(
			"webhooks: invalid "+topic+" payload",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			core.ErrorBadInput,
			map[string]any{"topic": topic, "shop": shop, "webhook_id": webhookID},
		)
	}
	_ = json.Unmarshal(body, target)
	return nil
}
