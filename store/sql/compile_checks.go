package sqlstore

import "github.com/goliatone/go-shopify-fulfillment/core"

var (
	_ core.SessionStore  = (*SessionStore)(nil)
	_ core.SessionWriter = (*SessionStore)(nil)
)
