package devkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

// SessionStoreFixture is an in-memory session table keyed by session id.
type SessionStoreFixture struct {
	mu       sync.Mutex
	sessions map[string]core.Session
	lookups  []string
	Err      error
}

func NewSessionStoreFixture(sessions ...core.Session) *SessionStoreFixture {
	store := &SessionStoreFixture{sessions: map[string]core.Session{}}
	for _, session := range sessions {
		_, _ = store.Save(context.Background(), session)
	}
	return store
}

func (s *SessionStoreFixture) FindByShop(_ context.Context, shop string) (core.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, shop)
	if s.Err != nil {
		return core.Session{}, false, s.Err
	}
	var (
		match core.Session
		found bool
	)
	for _, session := range s.sessions {
		if session.Shop != shop {
			continue
		}
		if !found || sessionPrecedes(session, match) {
			match = session
			found = true
		}
	}
	return match, found, nil
}

// sessionPrecedes mirrors the SQL store: offline sessions first, then by id.
func sessionPrecedes(a core.Session, b core.Session) bool {
	if a.IsOnline != b.IsOnline {
		return !a.IsOnline
	}
	return a.ID < b.ID
}

func (s *SessionStoreFixture) Save(_ context.Context, session core.Session) (core.Session, error) {
	if err := session.Validate(); err != nil {
		return core.Session{}, err
	}
	if session.ID == "" {
		session.ID = "offline_" + session.Shop
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session, nil
}

func (s *SessionStoreFixture) Lookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

type FulfillmentRequestCall struct {
	Session core.Session
	Request core.FulfillmentRequest
	Options core.SaveOptions
}

// AdminClientFixture serves canned fulfillment orders per order id and
// records every call it receives.
type AdminClientFixture struct {
	mu        sync.Mutex
	orders    map[string][]core.FulfillmentOrder
	listCalls []string
	requests  []FulfillmentRequestCall

	ListErr   error
	CreateErr error
	// BeforeCreate runs outside the lock, letting tests line up concurrent calls.
	BeforeCreate func()
}

func NewAdminClientFixture() *AdminClientFixture {
	return &AdminClientFixture{orders: map[string][]core.FulfillmentOrder{}}
}

func (c *AdminClientFixture) WithOrders(orderID string, orders ...core.FulfillmentOrder) *AdminClientFixture {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[orderID] = append([]core.FulfillmentOrder(nil), orders...)
	return c
}

func (c *AdminClientFixture) ListFulfillmentOrders(
	_ context.Context,
	session core.Session,
	orderID string,
) ([]core.FulfillmentOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls = append(c.listCalls, orderID)
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("devkit: session without access token")
	}
	return append([]core.FulfillmentOrder(nil), c.orders[orderID]...), nil
}

func (c *AdminClientFixture) CreateFulfillmentRequest(
	_ context.Context,
	session core.Session,
	req core.FulfillmentRequest,
	opts core.SaveOptions,
) (core.FulfillmentRequestResult, error) {
	if c.BeforeCreate != nil {
		c.BeforeCreate()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, FulfillmentRequestCall{Session: session, Request: req, Options: opts})
	if c.CreateErr != nil {
		return core.FulfillmentRequestResult{}, c.CreateErr
	}
	submitted := &core.FulfillmentOrder{ID: req.FulfillmentOrderID, RequestStatus: "submitted"}
	return core.FulfillmentRequestResult{StatusCode: 200, Original: submitted, Submitted: submitted}, nil
}

func (c *AdminClientFixture) ListCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.listCalls...)
}

func (c *AdminClientFixture) Requests() []FulfillmentRequestCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FulfillmentRequestCall(nil), c.requests...)
}

var (
	_ core.SessionStore  = (*SessionStoreFixture)(nil)
	_ core.SessionWriter = (*SessionStoreFixture)(nil)
	_ core.AdminClient   = (*AdminClientFixture)(nil)
)
