// Package trigger submits a fulfillment request when an order changes.
package trigger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shopify-fulfillment/core"
)

const operationFulfill = "fulfillment.trigger"

type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusSessionNotFound    Status = "session_not_found"
	StatusNoFulfillmentOrder Status = "no_fulfillment_order"
	StatusUpstreamFailure    Status = "upstream_failure"
)

type Stage string

const (
	StageSessionLookup            Stage = "session_lookup"
	StageListFulfillmentOrders    Stage = "list_fulfillment_orders"
	StageCreateFulfillmentRequest Stage = "create_fulfillment_request"
)

// Result is the outcome of one Fulfill call. Stage is the last step that ran;
// Err is nil only when Status is submitted.
type Result struct {
	Status             Status
	Stage              Stage
	Shop               string
	OrderID            string
	FulfillmentOrderID int64
	Response           core.FulfillmentRequestResult
	Err                error
}

func (r Result) Submitted() bool {
	return r.Status == StatusSubmitted
}

func (r Result) Fields() map[string]any {
	fields := map[string]any{
		"shop":     r.Shop,
		"order_id": r.OrderID,
		"stage":    string(r.Stage),
		"status":   string(r.Status),
	}
	if r.FulfillmentOrderID > 0 {
		fields["fulfillment_order_id"] = r.FulfillmentOrderID
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	return fields
}

type Trigger struct {
	sessions core.SessionStore
	client   core.AdminClient
	logger   core.Logger
	metrics  core.MetricsRecorder
	observer core.Observer
}

type Option func(*Trigger)

func WithLogger(logger core.Logger) Option {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(t *Trigger) {
		if recorder != nil {
			t.metrics = recorder
		}
	}
}

func New(sessions core.SessionStore, client core.AdminClient, opts ...Option) (*Trigger, error) {
	if sessions == nil {
		return nil, fmt.Errorf("trigger: session store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("trigger: admin client is required")
	}
	t := &Trigger{sessions: sessions, client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.logger = core.ResolveLogger("trigger", nil, t.logger)
	t.observer = core.NewObserver(t.logger, t.metrics)
	return t, nil
}

// Fulfill resolves the session of shop, lists the fulfillment orders of the
// order and submits one fulfillment request for the first of them. Nothing is
// retried and no idempotency key is sent.
func (t *Trigger) Fulfill(ctx context.Context, shop string, orderID string) (result Result) {
	startedAt := time.Now()
	result = Result{Shop: shop, OrderID: orderID, Stage: StageSessionLookup}
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Status = StatusUpstreamFailure
			result.Err = core.InternalError(
				fmt.Sprintf("trigger: %s panicked: %v", result.Stage, recovered),
				map[string]any{"stage": string(result.Stage)},
			)
		}
		t.observer.Observe(ctx, startedAt, operationFulfill, string(result.Status), result.Err, result.Fields())
	}()

	session, found, err := t.sessions.FindByShop(ctx, shop)
	if err != nil {
		result.Status = StatusUpstreamFailure
		result.Err = err
		return result
	}
	if !found {
		result.Status = StatusSessionNotFound
		result.Err = core.NewError(
			"trigger: no session for shop",
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			core.ErrorSessionNotFound,
			map[string]any{"shop": shop},
		)
		return result
	}

	result.Stage = StageListFulfillmentOrders
	orders, err := t.client.ListFulfillmentOrders(ctx, session, orderID)
	if err != nil {
		result.Status = StatusUpstreamFailure
		result.Err = err
		return result
	}
	if len(orders) == 0 {
		result.Status = StatusNoFulfillmentOrder
		result.Err = core.NewError(
			"trigger: order has no fulfillment orders",
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			core.ErrorNoFulfillmentOrder,
			map[string]any{"shop": shop, "order_id": orderID},
		)
		return result
	}

	result.Stage = StageCreateFulfillmentRequest
	result.FulfillmentOrderID = orders[0].ID
	response, err := t.client.CreateFulfillmentRequest(ctx, session, core.FulfillmentRequest{
		FulfillmentOrderID: orders[0].ID,
		Message:            core.FulfillmentRequestMessage,
	}, core.SaveOptions{Update: true})
	if err != nil {
		result.Status = StatusUpstreamFailure
		result.Err = err
		return result
	}

	result.Status = StatusSubmitted
	result.Response = response
	return result
}
