package command

import (
	"strings"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

const (
	TypeFulfillOrder = "fulfillment.command.order.fulfill"
	TypeSaveSession  = "fulfillment.command.session.save"
)

// FulfillOrderMessage asks for a fulfillment request on the first
// fulfillment order of OrderID.
type FulfillOrderMessage struct {
	Shop    string
	OrderID string
}

func (FulfillOrderMessage) Type() string { return TypeFulfillOrder }

func (m FulfillOrderMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return commandValidationError("shop", "shop is required")
	}
	if strings.TrimSpace(m.OrderID) == "" {
		return commandValidationError("order_id", "order id is required")
	}
	return nil
}

type SaveSessionMessage struct {
	Session core.Session
}

func (SaveSessionMessage) Type() string { return TypeSaveSession }

func (m SaveSessionMessage) Validate() error {
	if strings.TrimSpace(m.Session.Shop) == "" {
		return commandValidationError("shop", "shop is required")
	}
	if strings.TrimSpace(m.Session.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	return nil
}
