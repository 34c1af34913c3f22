package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// SessionStore resolves the persisted session of an installed shop. The bool
// result is false when no row matches the shop exactly.
type SessionStore interface {
	FindByShop(ctx context.Context, shop string) (Session, bool, error)
}

type SessionWriter interface {
	Save(ctx context.Context, session Session) (Session, error)
}

// AdminClient is the subset of the platform admin REST API used by the
// fulfillment flow.
type AdminClient interface {
	ListFulfillmentOrders(ctx context.Context, session Session, orderID string) ([]FulfillmentOrder, error)
	CreateFulfillmentRequest(
		ctx context.Context,
		session Session,
		req FulfillmentRequest,
		opts SaveOptions,
	) (FulfillmentRequestResult, error)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type ProviderResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

// InboundRequest is a raw webhook delivery as seen by the verification layer.
type InboundRequest struct {
	Headers map[string]string
	Body    []byte
}
