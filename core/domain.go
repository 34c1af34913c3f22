package core

import (
	"fmt"
	"strings"
	"time"
)

// FulfillmentRequestMessage is the fixed note attached to every submitted
// fulfillment request.
const FulfillmentRequestMessage = "Fulfill this ASAP please."

// Session is the persisted credential for one installed shop. Token fields are
// opaque here and only forwarded to the admin API client.
type Session struct {
	ID               string
	Shop             string
	State            string
	IsOnline         bool
	Scope            string
	Expires          *time.Time
	AccessToken      string
	OnlineAccessInfo string
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.Shop) == "" {
		return fmt.Errorf("core: session shop is required")
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return fmt.Errorf("core: session access token is required")
	}
	return nil
}

func (s Session) IsExpired(now time.Time) bool {
	if s.Expires == nil {
		return false
	}
	return !now.Before(*s.Expires)
}

type FulfillmentOrder struct {
	ID                 int64
	OrderID            int64
	ShopID             int64
	Status             string
	RequestStatus      string
	AssignedLocationID int64
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

type FulfillmentRequest struct {
	FulfillmentOrderID int64
	Message            string
}

func (r FulfillmentRequest) Validate() error {
	if r.FulfillmentOrderID <= 0 {
		return fmt.Errorf("core: fulfillment order id is required")
	}
	return nil
}

// SaveOptions mirrors the admin REST resource save contract. When Update is
// set the client decodes the response into the returned result.
type SaveOptions struct {
	Update bool
}

type FulfillmentRequestResult struct {
	StatusCode  int
	Original    *FulfillmentOrder
	Submitted   *FulfillmentOrder
	Unsubmitted *FulfillmentOrder
	Metadata    map[string]any
}
