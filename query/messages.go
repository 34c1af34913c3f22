package query

import "strings"

const TypeLookupSession = "fulfillment.query.session.lookup"

// LookupSessionMessage matches Shop exactly against stored sessions.
type LookupSessionMessage struct {
	Shop string
}

func (LookupSessionMessage) Type() string { return TypeLookupSession }

func (m LookupSessionMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return queryValidationError("shop", "shop is required")
	}
	return nil
}
