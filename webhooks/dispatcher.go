package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/providers/shopify"
)

const (
	operationDelivery   = "webhook.delivery"
	DefaultMaxBodyBytes = 5 << 20
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// Delivery is one accepted webhook after verification and topic resolution.
type Delivery struct {
	Topic      Topic
	Shop       string
	WebhookID  string
	APIVersion string
	StatusCode int
}

type Dispatcher struct {
	table        HandlerTable
	verifier     Verifier
	observer     core.Observer
	maxBodyBytes int64
}

type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	logger       core.Logger
	metrics      core.MetricsRecorder
	maxBodyBytes int64
}

func WithDispatcherLogger(logger core.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.logger = logger
	}
}

func WithDispatcherMetrics(recorder core.MetricsRecorder) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.metrics = recorder
	}
}

func WithMaxBodyBytes(limit int64) DispatcherOption {
	return func(o *dispatcherOptions) {
		if limit > 0 {
			o.maxBodyBytes = limit
		}
	}
}

func NewDispatcher(table HandlerTable, verifier Verifier, opts ...DispatcherOption) (*Dispatcher, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("webhooks: handler table is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("webhooks: verifier is required")
	}
	options := dispatcherOptions{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Dispatcher{
		table:        table,
		verifier:     verifier,
		observer:     core.NewObserver(options.logger, options.metrics),
		maxBodyBytes: options.maxBodyBytes,
	}, nil
}

// Dispatch verifies req, resolves the handler for its topic and runs it. The
// returned error is already mapped to an envelope carrying the HTTP status.
func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (delivery Delivery, err error) {
	startedAt := time.Now()
	delivery = Delivery{
		Shop:       strings.TrimSpace(shopify.HeaderValue(req.Headers, shopify.HeaderShopDomain)),
		WebhookID:  shopify.HeaderValue(req.Headers, shopify.HeaderWebhookID),
		APIVersion: shopify.HeaderValue(req.Headers, shopify.HeaderAPIVersion),
	}
	rawTopic := shopify.HeaderValue(req.Headers, shopify.HeaderTopic)

	defer func() {
		if err != nil {
			mapped := core.MapError(err)
			err = mapped
			delivery.StatusCode = mapped.Code
		} else {
			delivery.StatusCode = http.StatusOK
		}
		d.observer.Observe(ctx, startedAt, operationDelivery, "", err, map[string]any{
			"topic":       rawTopic,
			"shop":        delivery.Shop,
			"webhook_id":  delivery.WebhookID,
			"api_version": delivery.APIVersion,
			"status_code": delivery.StatusCode,
		})
	}()

	if err := d.verifier.Verify(ctx, req); err != nil {
		return delivery, core.WrapError(
			err,
			goerrors.CategoryAuth,
			"webhooks: delivery verification failed",
			http.StatusUnauthorized,
			core.ErrorUnauthorized,
			nil,
		)
	}

	topic, err := ParseTopic(rawTopic)
	if err != nil {
		return delivery, core.BadInputError(err.Error(), nil)
	}
	delivery.Topic = topic
	handler, ok := d.table[topic]
	if !ok || handler.Callback == nil {
		return delivery, core.NewError(
			"webhooks: topic not supported",
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			core.ErrorTopicUnsupported,
			map[string]any{"topic": rawTopic},
		)
	}
	if delivery.Shop == "" {
		return delivery, core.BadInputError(
			"webhooks: "+shopify.HeaderShopDomain+" header is required",
			map[string]any{"topic": rawTopic},
		)
	}

	return delivery, handler.Callback(ctx, topic.Header(), delivery.Shop, req.Body, delivery.WebhookID)
}

// Handle is the gin handler for the callback path.
func (d *Dispatcher) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, d.maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": gin.H{"text_code": core.ErrorBadInput, "message": "webhooks: unable to read body"}})
		return
	}

	_, err = d.Dispatch(c.Request.Context(), core.InboundRequest{
		Headers: flattenHeaders(c.Request.Header),
		Body:    body,
	})
	if err != nil {
		mapped := core.MapError(err)
		c.JSON(mapped.Code, gin.H{"error": gin.H{"text_code": mapped.TextCode, "message": mapped.Message}})
		return
	}
	c.Status(http.StatusOK)
}

// RegisterRoutes mounts POST handlers for every callback path of the table.
func (d *Dispatcher) RegisterRoutes(routes gin.IRoutes) {
	for _, path := range d.table.CallbackURLs() {
		routes.POST(path, d.Handle)
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}
