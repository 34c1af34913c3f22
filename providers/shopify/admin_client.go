package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

const (
	operationListFulfillmentOrders    = "list_fulfillment_orders"
	operationCreateFulfillmentRequest = "create_fulfillment_request"
)

type AdminClientConfig struct {
	APIVersion string
	// BaseURL replaces https://<shop> when set.
	BaseURL string
	Timeout time.Duration
}

// AdminClient talks to the admin REST API on behalf of a persisted session.
type AdminClient struct {
	transport  core.TransportAdapter
	apiVersion string
	baseURL    string
	timeout    time.Duration
	logger     core.Logger
}

func NewAdminClient(transport core.TransportAdapter, cfg AdminClientConfig, logger core.Logger) (*AdminClient, error) {
	if transport == nil {
		return nil, ErrTransportNotConfigured
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		return nil, ErrAPIVersionRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("providers/shopify: invalid base url: %w", err)
		}
	}
	return &AdminClient{
		transport:  transport,
		apiVersion: version,
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
		logger:     core.ResolveLogger("providers.shopify.admin", nil, logger),
	}, nil
}

type fulfillmentOrderPayload struct {
	ID                 int64      `json:"id"`
	ShopID             int64      `json:"shop_id"`
	OrderID            int64      `json:"order_id"`
	AssignedLocationID int64      `json:"assigned_location_id"`
	RequestStatus      string     `json:"request_status"`
	Status             string     `json:"status"`
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

func (p *fulfillmentOrderPayload) toDomain() *core.FulfillmentOrder {
	if p == nil {
		return nil
	}
	return &core.FulfillmentOrder{
		ID:                 p.ID,
		OrderID:            p.OrderID,
		ShopID:             p.ShopID,
		Status:             p.Status,
		RequestStatus:      p.RequestStatus,
		AssignedLocationID: p.AssignedLocationID,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type listFulfillmentOrdersResponse struct {
	FulfillmentOrders []fulfillmentOrderPayload `json:"fulfillment_orders"`
}

type fulfillmentRequestBody struct {
	FulfillmentRequest struct {
		Message string `json:"message,omitempty"`
	} `json:"fulfillment_request"`
}

type fulfillmentRequestResponse struct {
	Original    *fulfillmentOrderPayload `json:"original_fulfillment_order"`
	Submitted   *fulfillmentOrderPayload `json:"submitted_fulfillment_order"`
	Unsubmitted *fulfillmentOrderPayload `json:"unsubmitted_fulfillment_order"`
}

// ListFulfillmentOrders returns every fulfillment order of the commerce order
// in the order the platform lists them.
func (c *AdminClient) ListFulfillmentOrders(
	ctx context.Context,
	session core.Session,
	orderID string,
) ([]core.FulfillmentOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, badInput("providers/shopify: order id is required", nil)
	}
	endpoint, err := c.endpoint(session, "orders", orderID, "fulfillment_orders.json")
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, session, operationListFulfillmentOrders, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var decoded listFulfillmentOrdersResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return nil, wrapUpstream(err, operationListFulfillmentOrders, "providers/shopify: decode fulfillment orders")
	}
	orders := make([]core.FulfillmentOrder, 0, len(decoded.FulfillmentOrders))
	for i := range decoded.FulfillmentOrders {
		orders = append(orders, *decoded.FulfillmentOrders[i].toDomain())
	}
	return orders, nil
}

// CreateFulfillmentRequest submits a fulfillment request for one fulfillment
// order. With opts.Update the response body is decoded into the result.
func (c *AdminClient) CreateFulfillmentRequest(
	ctx context.Context,
	session core.Session,
	req core.FulfillmentRequest,
	opts core.SaveOptions,
) (core.FulfillmentRequestResult, error) {
	if err := req.Validate(); err != nil {
		return core.FulfillmentRequestResult{}, wrapBadInput(err, "providers/shopify: invalid fulfillment request", nil)
	}
	endpoint, err := c.endpoint(
		session,
		"fulfillment_orders",
		strconv.FormatInt(req.FulfillmentOrderID, 10),
		"fulfillment_request.json",
	)
	if err != nil {
		return core.FulfillmentRequestResult{}, err
	}

	var body fulfillmentRequestBody
	body.FulfillmentRequest.Message = req.Message
	payload, err := json.Marshal(body)
	if err != nil {
		return core.FulfillmentRequestResult{}, core.InternalError("providers/shopify: encode fulfillment request", nil)
	}

	res, err := c.do(ctx, session, operationCreateFulfillmentRequest, http.MethodPost, endpoint, payload)
	if err != nil {
		return core.FulfillmentRequestResult{}, err
	}
	result := core.FulfillmentRequestResult{
		StatusCode: res.StatusCode,
		Metadata:   res.Metadata,
	}
	if !opts.Update || len(strings.TrimSpace(string(res.Body))) == 0 {
		return result, nil
	}

	var decoded fulfillmentRequestResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return core.FulfillmentRequestResult{}, wrapUpstream(
			err,
			operationCreateFulfillmentRequest,
			"providers/shopify: decode fulfillment request response",
		)
	}
	result.Original = decoded.Original.toDomain()
	result.Submitted = decoded.Submitted.toDomain()
	result.Unsubmitted = decoded.Unsubmitted.toDomain()
	return result, nil
}

func (c *AdminClient) endpoint(session core.Session, segments ...string) (string, error) {
	if err := session.Validate(); err != nil {
		return "", wrapBadInput(err, "providers/shopify: invalid session", map[string]any{"shop": session.Shop})
	}
	base := c.baseURL
	if base == "" {
		domain, err := NormalizeShopDomain(session.Shop)
		if err != nil {
			return "", wrapBadInput(err, "providers/shopify: invalid session shop", map[string]any{"shop": session.Shop})
		}
		base = "https://" + domain
	}
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return fmt.Sprintf("%s/admin/api/%s/%s", base, url.PathEscape(c.apiVersion), strings.Join(escaped, "/")), nil
}

func (c *AdminClient) do(
	ctx context.Context,
	session core.Session,
	operation string,
	method string,
	endpoint string,
	body []byte,
) (core.TransportResponse, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method:  method,
		URL:     endpoint,
		Headers: map[string]string{"X-Shopify-Access-Token": session.AccessToken},
		Body:    body,
		Timeout: c.timeout,
		Metadata: map[string]any{
			"operation": operation,
			"shop":      session.Shop,
		},
	})
	if err != nil {
		return core.TransportResponse{}, err
	}

	meta, err := NormalizeAdminAPIResponse(ctx, res)
	if err != nil {
		return core.TransportResponse{}, err
	}
	if remaining, ok := meta.Metadata["shopify_api_call_remaining"].(int); ok && remaining == 0 {
		c.logger.Warn("admin api call limit reached", "shop", session.Shop, "operation", operation)
	}
	if !isSuccess(res.StatusCode) {
		return core.TransportResponse{}, upstreamError(operation, meta)
	}
	res.Metadata = meta.Metadata
	return res, nil
}

var _ core.AdminClient = (*AdminClient)(nil)
