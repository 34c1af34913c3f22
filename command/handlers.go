package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/trigger"
)

type Fulfiller interface {
	Fulfill(ctx context.Context, shop string, orderID string) trigger.Result
}

type FulfillOrderCommand struct {
	fulfiller Fulfiller
}

func NewFulfillOrderCommand(fulfiller Fulfiller) *FulfillOrderCommand {
	return &FulfillOrderCommand{fulfiller: fulfiller}
}

// Execute runs the trigger and stores its Result in the context collector.
// Trigger failures are part of the Result, not the returned error.
func (c *FulfillOrderCommand) Execute(ctx context.Context, msg FulfillOrderMessage) error {
	if c == nil || c.fulfiller == nil {
		return commandDependencyError("command: fulfiller is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	storeResult(ctx, c.fulfiller.Fulfill(ctx, msg.Shop, msg.OrderID))
	return nil
}

type SaveSessionCommand struct {
	writer core.SessionWriter
}

func NewSaveSessionCommand(writer core.SessionWriter) *SaveSessionCommand {
	return &SaveSessionCommand{writer: writer}
}

func (c *SaveSessionCommand) Execute(ctx context.Context, msg SaveSessionMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: session writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	saved, err := c.writer.Save(ctx, msg.Session)
	if err != nil {
		return err
	}
	storeResult(ctx, saved)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
